package types

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/DoyleJ11/buckshot-backend/internal/engine"
	"github.com/DoyleJ11/buckshot-backend/internal/hub"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"lobby missing", hub.ErrLobbyNotFound, http.StatusNotFound, CodeLobbyNotFound},
		{"wrapped turn error", fmt.Errorf("shoot: %w", engine.ErrWrongTurn), http.StatusConflict, CodeNotYourTurn},
		{"not host", engine.ErrNotHost, http.StatusForbidden, CodeNotHost},
		{"precondition", &engine.PreconditionError{Item: engine.ItemSkip, Reason: "no"}, http.StatusUnprocessableEntity, CodePrecondition},
		{"invalid username", fmt.Errorf("%w: empty", engine.ErrInvalidUsername), http.StatusBadRequest, CodeInvalidUsername},
		{"invariant", engine.ErrChamberEmpty, http.StatusInternalServerError, CodeInternal},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, code := Classify(tc.err)
			assert.Equal(t, tc.wantStatus, status)
			assert.Equal(t, tc.wantCode, code)
		})
	}
}

func TestErrorMessageHidesInternalDetail(t *testing.T) {
	msg := ErrorMessage(engine.ErrChamberEmpty)
	assert.Equal(t, MsgError, msg.Type)
	assert.Equal(t, "internal error", msg.Error)

	msg = ErrorMessage(engine.ErrWrongTurn)
	assert.Equal(t, "not your turn", msg.Error)
}

func TestToCommand(t *testing.T) {
	cases := []struct {
		name   string
		msg    ClientMessage
		want   engine.CommandType
		wantOK bool
	}{
		{"shoot", ClientMessage{Type: MsgShoot, Target: "bob"}, engine.CmdShoot, true},
		{"use item", ClientMessage{Type: MsgUseItem, Item: &engine.ItemRequest{Item: engine.ItemRack}}, engine.CmdUseItem, true},
		{"use item without item", ClientMessage{Type: MsgUseItem}, "", false},
		{"start", ClientMessage{Type: MsgStart}, engine.CmdStartGame, true},
		{"leave", ClientMessage{Type: MsgLeave}, engine.CmdLeave, true},
		{"configure without settings", ClientMessage{Type: MsgConfigure}, "", false},
		{"unknown", ClientMessage{Type: "dance"}, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmd, ok := ToCommand("alice", tc.msg)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, cmd.Type)
			if ok {
				assert.Equal(t, "alice", cmd.Player)
			}
		})
	}
}
