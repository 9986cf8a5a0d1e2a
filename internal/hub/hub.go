package hub

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/DoyleJ11/buckshot-backend/internal/engine"
	"github.com/DoyleJ11/buckshot-backend/internal/lobby"
	"github.com/DoyleJ11/buckshot-backend/internal/metrics"
	"github.com/DoyleJ11/buckshot-backend/internal/random"
)

var (
	ErrLobbyNotFound  = errors.New("lobby not found")
	ErrTooManyLobbies = errors.New("too many lobbies")
)

const (
	codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength  = 6
	maxNameLen  = 48
)

// GenerateCode returns a random lobby code.
func GenerateCode() (string, error) {
	code := make([]byte, codeLength)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			return "", err
		}
		code[i] = codeCharset[num.Int64()]
	}
	return string(code), nil
}

type Options struct {
	MaxLobbies int // 0 means unlimited
	InboxSize  int
	Logger     *zap.Logger
	Random     random.Source
}

// Info is the list view of one lobby.
type Info struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Phase   engine.Phase `json:"phase"`
	Players int          `json:"players"`
	Max     int          `json:"max_players"`
}

// Hub owns every running lobby, keyed by code.
type Hub struct {
	mu      sync.RWMutex
	lobbies map[string]*lobby.Lobby
	opts    Options
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context, opts Options) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Random == nil {
		opts.Random = random.New(1)
	}
	return &Hub{
		lobbies: make(map[string]*lobby.Lobby),
		opts:    opts,
		log:     opts.Logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Create starts a new lobby with a fresh code. An empty name defaults to
// the code.
func (h *Hub) Create(name string, settings engine.Settings) (*lobby.Lobby, error) {
	name = strings.TrimSpace(name)
	if r := []rune(name); len(r) > maxNameLen {
		name = string(r[:maxNameLen])
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ctx.Err() != nil {
		return nil, lobby.ErrClosed
	}
	if h.opts.MaxLobbies > 0 && len(h.lobbies) >= h.opts.MaxLobbies {
		return nil, ErrTooManyLobbies
	}

	var code string
	for {
		c, err := GenerateCode()
		if err != nil {
			return nil, fmt.Errorf("generate lobby code: %w", err)
		}
		if _, exists := h.lobbies[c]; !exists {
			code = c
			break
		}
		h.log.Debug("collision on code, regenerating", zap.String("code", c))
	}
	if name == "" {
		name = code
	}

	g := engine.NewGame(name, settings, h.opts.Random, nil)
	lb := lobby.NewLobby(h.ctx, code, g, lobby.Options{
		InboxSize: h.opts.InboxSize,
		Logger:    h.log,
		OnEmpty: func(id string) {
			// Runs on the lobby goroutine; Remove only cancels it.
			h.Remove(id)
		},
	})
	h.lobbies[code] = lb
	metrics.SetLobbies(len(h.lobbies))
	h.log.Info("lobby created", zap.String("lobby", code), zap.String("name", name))
	return lb, nil
}

func (h *Hub) Get(code string) (*lobby.Lobby, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	lb, ok := h.lobbies[normalizeCode(code)]
	if !ok {
		return nil, ErrLobbyNotFound
	}
	return lb, nil
}

// List returns every lobby that answered within ctx, sorted by code.
func (h *Hub) List(ctx context.Context) []Info {
	h.mu.RLock()
	lobbies := make([]*lobby.Lobby, 0, len(h.lobbies))
	for _, lb := range h.lobbies {
		lobbies = append(lobbies, lb)
	}
	h.mu.RUnlock()

	out := make([]Info, 0, len(lobbies))
	for _, lb := range lobbies {
		v, err := lb.State(ctx)
		if err != nil {
			continue
		}
		out = append(out, Info{
			ID:      v.ID,
			Name:    v.State.Name,
			Phase:   v.State.Phase,
			Players: v.State.Connected,
			Max:     v.State.CompetitorCap,
		})
	}
	slices.SortFunc(out, func(a, b Info) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// Remove stops and forgets a lobby. It reports whether the lobby existed.
func (h *Hub) Remove(code string) bool {
	code = normalizeCode(code)
	h.mu.Lock()
	defer h.mu.Unlock()
	lb, ok := h.lobbies[code]
	if !ok {
		return false
	}
	lb.Stop()
	delete(h.lobbies, code)
	metrics.SetLobbies(len(h.lobbies))
	h.log.Info("lobby removed", zap.String("lobby", code))
	return true
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.lobbies)
}

// Shutdown stops every lobby and waits for them to exit or ctx to end.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	lobbies := make([]*lobby.Lobby, 0, len(h.lobbies))
	for _, lb := range h.lobbies {
		lobbies = append(lobbies, lb)
	}
	clear(h.lobbies)
	h.cancel()
	h.mu.Unlock()
	metrics.SetLobbies(0)

	for _, lb := range lobbies {
		select {
		case <-lb.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	h.log.Info("hub stopped", zap.Int("lobbies", len(lobbies)))
	return nil
}
