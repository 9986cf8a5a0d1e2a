package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/buckshot-backend/internal/engine"
	"github.com/DoyleJ11/buckshot-backend/internal/hub"
	"github.com/DoyleJ11/buckshot-backend/internal/lobby"
	"github.com/DoyleJ11/buckshot-backend/internal/metrics"
	"github.com/DoyleJ11/buckshot-backend/internal/types"
)

const (
	writeTimeout = 3 * time.Second
	pingInterval = 30 * time.Second
	maxFrame     = 64 << 10
)

type Options struct {
	Logger         *zap.Logger
	OriginPatterns []string
	OutboxSize     int
	CommandTimeout time.Duration
}

// Handler joins the player named in the query to the lobby, streams lobby
// updates to them and applies their commands. Closing the socket leaves the
// lobby, which forfeits the player's turn if they hold it.
func Handler(h *hub.Hub, opts Options) http.HandlerFunc {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.OutboxSize <= 0 {
		opts.OutboxSize = 16
	}
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = 5 * time.Second
	}

	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("lobby")
		username := r.URL.Query().Get("username")
		if code == "" || username == "" {
			rejectHTTP(w, errors.Join(engine.ErrUnsupportedCommand, errors.New("missing lobby or username")))
			return
		}

		lb, err := h.Get(code)
		if err != nil {
			rejectHTTP(w, err)
			return
		}

		// Join before upgrading so a rejected name gets a plain HTTP error.
		joinCtx, cancel := context.WithTimeout(r.Context(), opts.CommandTimeout)
		joined, err := lb.Do(joinCtx, engine.Command{Type: engine.CmdJoin, Player: username})
		cancel()
		if err != nil {
			rejectHTTP(w, err)
			return
		}
		name := joined.Outcome.Player.Name

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: opts.OriginPatterns})
		if err != nil {
			leave(lb, name, opts.CommandTimeout)
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")
		conn.SetReadLimit(maxFrame)

		metrics.WSConnected()
		defer metrics.WSDisconnected()

		clientID := uuid.NewString()
		clog := log.With(zap.String("lobby", lb.ID()), zap.String("client", clientID), zap.String("player", name))
		clog.Info("websocket connected")

		c := &client{conn: conn, log: clog}
		out := make(chan lobby.Update, opts.OutboxSize)
		if err := lb.Subscribe(r.Context(), clientID, out); err != nil {
			leave(lb, name, opts.CommandTimeout)
			return
		}

		left := false
		defer func() {
			lb.Unsubscribe(clientID)
			if !left {
				leave(lb, name, opts.CommandTimeout)
			}
			clog.Info("websocket disconnected")
		}()

		ctx, stop := context.WithCancel(r.Context())
		defer stop()

		// Writer goroutine
		go func() {
			defer stop()
			for {
				select {
				case <-ctx.Done():
					return
				case u, ok := <-out:
					if !ok {
						// The lobby dropped us: too slow, or it shut down.
						conn.Close(websocket.StatusGoingAway, "lobby closed")
						return
					}
					state := u.State
					err := c.write(ctx, types.ServerMessage{
						Type:    types.MsgUpdate,
						Version: u.Version,
						Events:  u.Events,
						State:   &state,
					})
					if err != nil {
						return
					}
				}
			}
		}()

		go c.keepalive(ctx)

		// Reader loop
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					if ctx.Err() == nil {
						clog.Debug("read failed", zap.Error(err))
					}
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = c.write(ctx, types.ServerMessage{Type: types.MsgError, Code: types.CodeBadRequest, Error: "bad json"})
				continue
			}

			cmd, ok := types.ToCommand(name, cm)
			if !ok {
				_ = c.write(ctx, types.ServerMessage{Type: types.MsgError, Code: types.CodeBadRequest, Error: "unknown type"})
				continue
			}

			cmdCtx, cancel := context.WithTimeout(ctx, opts.CommandTimeout)
			res, err := lb.Do(cmdCtx, cmd)
			cancel()
			if err != nil {
				if errors.Is(err, lobby.ErrClosed) {
					return
				}
				_ = c.write(ctx, types.ErrorMessage(err))
				continue
			}
			if cmd.Type == engine.CmdLeave {
				left = true
			}
			_ = c.write(ctx, types.ServerMessage{
				Type:    types.MsgResult,
				Version: res.Version,
				Shot:    res.Outcome.Shot,
				Item:    res.Outcome.Item,
				Player:  res.Outcome.Player,
			})
			if left {
				return
			}
		}
	}
}

type client struct {
	conn *websocket.Conn
	log  *zap.Logger
}

func (c *client) write(ctx context.Context, msg types.ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		c.log.Error("encode message", zap.Error(err))
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.conn.Write(wctx, websocket.MessageText, payload)
}

func (c *client) keepalive(ctx context.Context) {
	t := time.NewTicker(pingInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pctx)
			cancel()
			if err != nil {
				c.conn.Close(websocket.StatusPolicyViolation, "ping timeout")
				return
			}
		}
	}
}

// leave runs after the request context may already be gone.
func leave(lb *lobby.Lobby, name string, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	_, _ = lb.Do(ctx, engine.Command{Type: engine.CmdLeave, Player: name})
}

func rejectHTTP(w http.ResponseWriter, err error) {
	status, code := types.Classify(err)
	msg := types.ErrorMessage(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Code  string `json:"code"`
		Error string `json:"error"`
	}{Code: code, Error: msg.Error})
}
