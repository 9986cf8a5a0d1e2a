package lobby

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/buckshot-backend/internal/engine"
	"github.com/DoyleJ11/buckshot-backend/internal/random"
)

// helper: receive one update with a timeout so tests never hang
func recvUpdate(t *testing.T, ch <-chan Update, within time.Duration) Update {
	t.Helper()
	select {
	case u, ok := <-ch:
		require.True(t, ok, "client outbox closed unexpectedly")
		return u
	case <-time.After(within):
		t.Fatalf("timed out waiting for update")
		return Update{} // unreachable
	}
}

func recvNoUpdate(t *testing.T, ch <-chan Update, within time.Duration) {
	t.Helper()
	select {
	case u, ok := <-ch:
		if !ok {
			return
		}
		t.Fatalf("expected no update within %v, but got version %d", within, u.Version)
	case <-time.After(within):
	}
}

func newTestLobby(t *testing.T, opts Options) *Lobby {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	g := engine.NewGame("test", engine.DefaultSettings(), random.New(1), nil)
	return NewLobby(ctx, "ABC123", g, opts)
}

func do(t *testing.T, l *Lobby, cmd engine.Command) (Result, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return l.Do(ctx, cmd)
}

func TestLobby_Subscribe_SendsCurrentState(t *testing.T) {
	l := newTestLobby(t, Options{})

	out := make(chan Update, 2)
	require.NoError(t, l.Subscribe(context.Background(), "c1", out))

	first := recvUpdate(t, out, 100*time.Millisecond)
	assert.Equal(t, 0, first.Version)
	assert.Equal(t, engine.PhaseLobby, first.State.Phase)
	assert.Empty(t, first.Events)
}

func TestLobby_Command_BroadcastsAndVersionIncrements(t *testing.T) {
	l := newTestLobby(t, Options{})

	out := make(chan Update, 4)
	require.NoError(t, l.Subscribe(context.Background(), "c1", out))
	_ = recvUpdate(t, out, 100*time.Millisecond)

	res, err := do(t, l, engine.Command{Type: engine.CmdJoin, Player: "alice"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Version)
	require.NotNil(t, res.Outcome.Player)
	assert.True(t, res.Outcome.Player.Host)

	next := recvUpdate(t, out, 100*time.Millisecond)
	assert.Equal(t, 1, next.Version)
	assert.True(t, engine.ContainsEvent(next.Events, engine.EvtPlayerJoined))
	require.Len(t, next.State.Players, 1)
	assert.Equal(t, "alice", next.State.Players[0].Name)
}

func TestLobby_RejectedCommand_RepliesOnlyToSender(t *testing.T) {
	l := newTestLobby(t, Options{})
	_, err := do(t, l, engine.Command{Type: engine.CmdJoin, Player: "alice"})
	require.NoError(t, err)

	out := make(chan Update, 4)
	require.NoError(t, l.Subscribe(context.Background(), "c1", out))
	_ = recvUpdate(t, out, 100*time.Millisecond)

	res, err := do(t, l, engine.Command{Type: engine.CmdJoin, Player: "Alice"})
	require.ErrorIs(t, err, engine.ErrUsernameTaken)
	assert.Equal(t, 1, res.Version)

	recvNoUpdate(t, out, 100*time.Millisecond)
}

func TestLobby_DropSlowClient(t *testing.T) {
	l := newTestLobby(t, Options{})

	out := make(chan Update, 1)
	require.NoError(t, l.Subscribe(context.Background(), "c1", out))

	// The join snapshot fills the buffer, so the next broadcast drops us.
	_, err := do(t, l, engine.Command{Type: engine.CmdJoin, Player: "alice"})
	require.NoError(t, err)

	view, err := l.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, view.NumClients)
	assert.Equal(t, 1, view.Version)

	_ = recvUpdate(t, out, 100*time.Millisecond)
	_, ok := <-out
	assert.False(t, ok, "outbox should be closed")
}

func TestLobby_GameFlow(t *testing.T) {
	l := newTestLobby(t, Options{})
	for _, name := range []string{"alice", "bob"} {
		_, err := do(t, l, engine.Command{Type: engine.CmdJoin, Player: name})
		require.NoError(t, err)
	}

	res, err := do(t, l, engine.Command{Type: engine.CmdStartGame, Player: "alice"})
	require.NoError(t, err)
	assert.True(t, engine.ContainsEvent(res.Outcome.Events, engine.EvtGameStarted))

	view, err := l.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, engine.PhasePlaying, view.State.Phase)
	assert.Equal(t, "alice", view.State.Turn)

	_, err = do(t, l, engine.Command{Type: engine.CmdShoot, Player: "bob", Target: "alice"})
	require.ErrorIs(t, err, engine.ErrWrongTurn)

	res, err = do(t, l, engine.Command{Type: engine.CmdShoot, Player: "alice", Target: "bob"})
	require.NoError(t, err)
	require.NotNil(t, res.Outcome.Shot)
	assert.Equal(t, "bob", res.Outcome.Shot.Target)
}

func TestLobby_OnEmptyAfterLastPlayerLeaves(t *testing.T) {
	emptied := make(chan string, 1)
	l := newTestLobby(t, Options{OnEmpty: func(id string) { emptied <- id }})

	_, err := do(t, l, engine.Command{Type: engine.CmdJoin, Player: "alice"})
	require.NoError(t, err)
	out := make(chan Update, 8)
	require.NoError(t, l.Subscribe(context.Background(), "c1", out))

	_, err = do(t, l, engine.Command{Type: engine.CmdLeave, Player: "alice"})
	require.NoError(t, err)
	select {
	case <-emptied:
		t.Fatal("lobby reported empty while a subscriber remains")
	case <-time.After(50 * time.Millisecond):
	}

	l.Unsubscribe("c1")
	select {
	case id := <-emptied:
		assert.Equal(t, "ABC123", id)
	case <-time.After(time.Second):
		t.Fatal("OnEmpty was not called")
	}
}

func TestLobby_Shutdown_ClosesOutboxesAndRejectsCommands(t *testing.T) {
	l := newTestLobby(t, Options{})

	out := make(chan Update, 2)
	require.NoError(t, l.Subscribe(context.Background(), "c1", out))
	_ = recvUpdate(t, out, 100*time.Millisecond)

	l.Inbox() <- Shutdown{}

	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("lobby did not stop")
	}
	_, ok := <-out
	assert.False(t, ok)

	_, err := do(t, l, engine.Command{Type: engine.CmdJoin, Player: "alice"})
	require.ErrorIs(t, err, ErrClosed)
}

func TestLobby_Do_RespectsContext(t *testing.T) {
	l := newTestLobby(t, Options{})
	l.Stop()
	<-l.Done()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.State(ctx)
	require.Error(t, err)
}
