package lobby

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/DoyleJ11/buckshot-backend/internal/engine"
	"github.com/DoyleJ11/buckshot-backend/internal/metrics"
)

// ErrClosed is returned once the lobby goroutine has exited.
var ErrClosed = errors.New("lobby closed")

const defaultInboxSize = 64

type Msg interface{ isLobbyMsg() }

// FromClient applies one command. Reply may be nil for fire-and-forget use;
// when set it must have room for one Result.
type FromClient struct {
	Cmd   engine.Command
	Reply chan Result
}

func (FromClient) isLobbyMsg() {}

// Subscribe registers an outbox for updates. The current state is sent
// immediately.
type Subscribe struct {
	ClientID string
	Outbox   chan Update
}

func (Subscribe) isLobbyMsg() {}

type Unsubscribe struct{ ClientID string }

func (Unsubscribe) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

// Result is what the requester of a command gets back.
type Result struct {
	Version int
	Outcome engine.Outcome
	Err     error
}

// Update is broadcast to every subscriber after each state change.
type Update struct {
	Version int
	Events  []engine.Event
	State   engine.Snapshot
}

type View struct {
	ID         string
	Version    int
	NumClients int
	State      engine.Snapshot
}

type Options struct {
	InboxSize int
	Logger    *zap.Logger
	// OnEmpty runs on the lobby goroutine once nobody is connected or
	// subscribed any more. It must not block on the lobby.
	OnEmpty func(id string)
}

type Lobby struct {
	id      string
	inbox   chan Msg
	game    *engine.Game
	version int
	clients map[string]chan Update
	log     *zap.Logger
	onEmpty func(id string)
	used    bool
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewLobby(parent context.Context, id string, game *engine.Game, opts Options) *Lobby {
	ctx, cancel := context.WithCancel(parent)

	size := opts.InboxSize
	if size <= 0 {
		size = defaultInboxSize
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	l := &Lobby{
		id:      id,
		inbox:   make(chan Msg, size),
		game:    game,
		clients: make(map[string]chan Update),
		log:     log.With(zap.String("lobby", id)),
		onEmpty: opts.OnEmpty,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go l.loop()
	return l
}

func (l *Lobby) ID() string { return l.id }

// Inbox exposes the raw message channel.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Done is closed when the lobby goroutine exits.
func (l *Lobby) Done() <-chan struct{} { return l.done }

// Stop ends the lobby without going through the inbox.
func (l *Lobby) Stop() { l.cancel() }

// Do sends cmd and waits for its result. ctx only bounds the wait; a command
// that reached the lobby is applied even if ctx is cancelled meanwhile.
func (l *Lobby) Do(ctx context.Context, cmd engine.Command) (Result, error) {
	reply := make(chan Result, 1)
	if err := l.send(ctx, FromClient{Cmd: cmd, Reply: reply}); err != nil {
		return Result{}, err
	}
	select {
	case res := <-reply:
		return res, res.Err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-l.done:
		return Result{}, ErrClosed
	}
}

// State returns the current view of the lobby.
func (l *Lobby) State(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if err := l.send(ctx, GetState{Reply: reply}); err != nil {
		return View{}, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return View{}, ctx.Err()
	case <-l.done:
		return View{}, ErrClosed
	}
}

func (l *Lobby) Subscribe(ctx context.Context, clientID string, outbox chan Update) error {
	return l.send(ctx, Subscribe{ClientID: clientID, Outbox: outbox})
}

// Unsubscribe is best effort; a closed lobby has already dropped everyone.
func (l *Lobby) Unsubscribe(clientID string) {
	select {
	case l.inbox <- Unsubscribe{ClientID: clientID}:
	case <-l.done:
	}
}

func (l *Lobby) send(ctx context.Context, m Msg) error {
	select {
	case <-l.done:
		return ErrClosed
	default:
	}
	select {
	case l.inbox <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrClosed
	}
}

func (l *Lobby) loop() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Subscribe:
				l.used = true
				l.clients[msg.ClientID] = msg.Outbox
				l.deliver(msg.ClientID, msg.Outbox, Update{Version: l.version, State: l.game.Snapshot()})

			case Unsubscribe:
				delete(l.clients, msg.ClientID)
				l.checkEmpty()

			case FromClient:
				res := l.apply(msg.Cmd)
				if msg.Reply != nil {
					msg.Reply <- res
				}
				l.checkEmpty()

			case GetState:
				msg.Reply <- View{
					ID:         l.id,
					Version:    l.version,
					NumClients: len(l.clients),
					State:      l.game.Snapshot(),
				}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

// apply runs one command against the game and broadcasts on success. An
// invariant failure may have changed state, so it is broadcast too.
func (l *Lobby) apply(cmd engine.Command) Result {
	out, err := l.game.Apply(cmd)
	command := string(cmd.Type)

	switch {
	case err == nil:
		metrics.Command(command, metrics.OutcomeOK)
	case errors.Is(err, engine.ErrInvariant):
		metrics.Command(command, metrics.OutcomeInvariant)
		l.log.Error("command broke engine invariant",
			zap.String("command", command),
			zap.String("player", cmd.Player),
			zap.Error(err))
	default:
		metrics.Command(command, metrics.OutcomeRejected)
		l.log.Debug("command rejected",
			zap.String("command", command),
			zap.String("player", cmd.Player),
			zap.Error(err))
		return Result{Version: l.version, Err: err}
	}

	if cmd.Type == engine.CmdJoin {
		l.used = true
	}
	for _, evt := range out.Events {
		switch evt.Type {
		case engine.EvtGameStarted:
			metrics.GameStarted()
			l.log.Info("game started", zap.String("host", evt.Player))
		case engine.EvtGameEnded:
			metrics.GameEnded()
			l.log.Info("game ended", zap.String("winner", evt.Winner), zap.Int("round", l.game.Round()))
		}
	}

	if len(out.Events) > 0 || err != nil {
		l.version++
		l.broadcast(Update{Version: l.version, Events: out.Events, State: l.game.Snapshot()})
	}
	return Result{Version: l.version, Outcome: out, Err: err}
}

// checkEmpty fires OnEmpty the first time a lobby that has been used has no
// connected players and no subscribers left.
func (l *Lobby) checkEmpty() {
	if l.onEmpty == nil || !l.used || len(l.clients) > 0 {
		return
	}
	if l.game.Snapshot().Connected > 0 {
		return
	}
	l.log.Info("lobby empty")
	fn := l.onEmpty
	l.onEmpty = nil
	fn(l.id)
}

func (l *Lobby) shutdown() {
	for id, ch := range l.clients {
		close(ch) // no more updates
		delete(l.clients, id)
	}
	l.cancel()
	l.log.Debug("lobby stopped")
}

func (l *Lobby) broadcast(u Update) {
	for id, ch := range l.clients {
		l.deliver(id, ch, u)
	}
}

// deliver never blocks the lobby: a subscriber whose buffer is full is dropped.
func (l *Lobby) deliver(id string, ch chan Update, u Update) {
	select {
	case ch <- u:
	default:
		close(ch)
		delete(l.clients, id)
		l.log.Warn("dropped slow subscriber", zap.String("client", id))
	}
}
