package types

import (
	"context"
	"errors"
	"net/http"

	"github.com/DoyleJ11/buckshot-backend/internal/engine"
	"github.com/DoyleJ11/buckshot-backend/internal/hub"
	"github.com/DoyleJ11/buckshot-backend/internal/lobby"
)

// Error codes sent to clients alongside the message.
const (
	CodeBadRequest       = "bad_request"
	CodeLobbyNotFound    = "lobby_not_found"
	CodeLobbyClosed      = "lobby_closed"
	CodeTooManyLobbies   = "too_many_lobbies"
	CodeUnknownPlayer    = "unknown_player"
	CodeUsernameTaken    = "username_taken"
	CodeInvalidUsername  = "invalid_username"
	CodeLobbyFull        = "lobby_full"
	CodeNotHost          = "not_host"
	CodeNotEnoughPlayers = "not_enough_players"
	CodeGameInProgress   = "game_in_progress"
	CodeGameNotActive    = "game_not_active"
	CodeNotYourTurn      = "not_your_turn"
	CodeInvalidTarget    = "invalid_target"
	CodeItemNotHeld      = "item_not_held"
	CodeItemUnavailable  = "item_unavailable"
	CodePrecondition     = "precondition_failed"
	CodeUnsupported      = "unsupported_command"
	CodeTimeout          = "timeout"
	CodeInternal         = "internal"
)

var classes = []struct {
	err    error
	status int
	code   string
}{
	{hub.ErrLobbyNotFound, http.StatusNotFound, CodeLobbyNotFound},
	{lobby.ErrClosed, http.StatusGone, CodeLobbyClosed},
	{hub.ErrTooManyLobbies, http.StatusServiceUnavailable, CodeTooManyLobbies},
	{engine.ErrUnknownPlayer, http.StatusNotFound, CodeUnknownPlayer},
	{engine.ErrUsernameTaken, http.StatusConflict, CodeUsernameTaken},
	{engine.ErrInvalidUsername, http.StatusBadRequest, CodeInvalidUsername},
	{engine.ErrLobbyFull, http.StatusConflict, CodeLobbyFull},
	{engine.ErrNotHost, http.StatusForbidden, CodeNotHost},
	{engine.ErrNotEnoughPlayers, http.StatusUnprocessableEntity, CodeNotEnoughPlayers},
	{engine.ErrGameInProgress, http.StatusConflict, CodeGameInProgress},
	{engine.ErrGameNotActive, http.StatusConflict, CodeGameNotActive},
	{engine.ErrWrongTurn, http.StatusConflict, CodeNotYourTurn},
	{engine.ErrInvalidTarget, http.StatusUnprocessableEntity, CodeInvalidTarget},
	{engine.ErrItemNotHeld, http.StatusUnprocessableEntity, CodeItemNotHeld},
	{engine.ErrItemUnavailable, http.StatusUnprocessableEntity, CodeItemUnavailable},
	{engine.ErrUnsupportedCommand, http.StatusBadRequest, CodeUnsupported},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, CodeTimeout},
	{engine.ErrInvariant, http.StatusInternalServerError, CodeInternal},
}

// Classify maps an error to the HTTP status and client code it is reported
// with. Unknown errors are internal.
func Classify(err error) (int, string) {
	var pe *engine.PreconditionError
	if errors.As(err, &pe) {
		return http.StatusUnprocessableEntity, CodePrecondition
	}
	for _, c := range classes {
		if errors.Is(err, c.err) {
			return c.status, c.code
		}
	}
	return http.StatusInternalServerError, CodeInternal
}

// ErrorMessage builds the frame for err. Internal errors are not echoed.
func ErrorMessage(err error) ServerMessage {
	status, code := Classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	return ServerMessage{Type: MsgError, Code: code, Error: msg}
}
