package engine

import (
	"errors"
	"fmt"
)

var ErrWrongTurn = errors.New("not your turn")
var ErrInvalidTarget = errors.New("invalid target")
var ErrItemNotHeld = errors.New("item not held")
var ErrItemUnavailable = errors.New("item not available in this lobby")
var ErrUnsupportedCommand = errors.New("unsupported command")
var ErrGameNotActive = errors.New("game is not in progress")
var ErrGameInProgress = errors.New("game already in progress")
var ErrUsernameTaken = errors.New("username taken")
var ErrInvalidUsername = errors.New("invalid username")
var ErrLobbyFull = errors.New("lobby full")
var ErrUnknownPlayer = errors.New("player not found")
var ErrNotHost = errors.New("only the host can do that")
var ErrNotEnoughPlayers = errors.New("not enough players to start")

// ErrInvariant marks a sequencing or sizing defect inside the engine. Errors
// wrapping it are never expected from valid input and must not be swallowed.
var ErrInvariant = errors.New("engine invariant violated")

var ErrNoEligiblePlayers = fmt.Errorf("%w: no player with lives left", ErrInvariant)
var ErrTurnOrderUninitialized = fmt.Errorf("%w: turn order not initialized", ErrInvariant)
var ErrChamberEmpty = fmt.Errorf("%w: chamber is empty", ErrInvariant)
var ErrItemDeckExhausted = fmt.Errorf("%w: item deck exhausted", ErrInvariant)

// PreconditionError reports an item that cannot be used in the current state.
type PreconditionError struct {
	Item   ItemType
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("cannot use %s: %s", e.Item, e.Reason)
}

type Phase string

const (
	PhaseLobby   Phase = "lobby"
	PhasePlaying Phase = "playing"
	PhaseEnded   Phase = "ended"
)

// Shell is one round in the chamber.
type Shell string

const (
	ShellLive  Shell = "live"
	ShellBlank Shell = "blank"
)

func (s Shell) Valid() bool {
	return s == ShellLive || s == ShellBlank
}

type CommandType string

const (
	CmdJoin         CommandType = "Join"
	CmdLeave        CommandType = "Leave"
	CmdStartGame    CommandType = "StartGame"
	CmdShoot        CommandType = "Shoot"
	CmdUseItem      CommandType = "UseItem"
	CmdSetHost      CommandType = "SetHost"
	CmdConfigure    CommandType = "Configure"
	CmdSetSpectator CommandType = "SetSpectator"
)

/*
	CmdJoin         -> PlayerJoined
	CmdStartGame    -> GameStarted -> RoundStarted -> TurnStarted
	CmdShoot        -> ShotFired -> [PlayerEliminated] -> [GameEnded] | [RoundStarted] -> [TurnEnded -> (PlayerSkipped)* -> TurnStarted]
	CmdUseItem      -> ItemUsed -> same transition tail as CmdShoot
	CmdLeave        -> PlayerLeft -> (forfeit shot tail when it was their turn)
*/

type Command struct {
	Type      CommandType
	Player    string
	Target    string
	Item      ItemRequest
	Settings  *Settings
	Spectator bool
}

type EventType string

const (
	EvtPlayerJoined     EventType = "PlayerJoined"
	EvtPlayerLeft       EventType = "PlayerLeft"
	EvtHostChanged      EventType = "HostChanged"
	EvtSettingsChanged  EventType = "SettingsChanged"
	EvtSpectatorChanged EventType = "SpectatorChanged"
	EvtGameStarted      EventType = "GameStarted"
	EvtRoundStarted     EventType = "RoundStarted"
	EvtTurnStarted      EventType = "TurnStarted"
	EvtTurnEnded        EventType = "TurnEnded"
	EvtPlayerSkipped    EventType = "PlayerSkipped"
	EvtShotFired        EventType = "ShotFired"
	EvtItemUsed         EventType = "ItemUsed"
	EvtPlayerEliminated EventType = "PlayerEliminated"
	EvtGameEnded        EventType = "GameEnded"
)

// Event is a boundary notification safe to broadcast to every client in a lobby.
type Event struct {
	Type    EventType             `json:"type"`
	Player  string                `json:"player,omitempty"`
	Target  string                `json:"target,omitempty"`
	Round   int                   `json:"round,omitempty"`
	Live    int                   `json:"live,omitempty"`
	Blank   int                   `json:"blank,omitempty"`
	Dealt   map[string][]ItemType `json:"dealt,omitempty"`
	Shell   Shell                 `json:"shell,omitempty"`
	Damage  int                   `json:"damage,omitempty"`
	Lives   *int                  `json:"lives,omitempty"`
	Item    ItemType              `json:"item,omitempty"`
	Stolen  ItemType              `json:"stolen,omitempty"`
	Count   int                   `json:"count,omitempty"`
	Forfeit bool                  `json:"forfeit,omitempty"`
	Winner  string                `json:"winner,omitempty"`
}

// ShotResult describes one resolved shot.
type ShotResult struct {
	Shooter        string `json:"shooter"`
	Target         string `json:"target"`
	RedirectedFrom string `json:"redirected_from,omitempty"`
	Shell          Shell  `json:"shell"`
	Damage         int    `json:"damage"`
	SelfTargeted   bool   `json:"self_targeted"`
	Eliminated     bool   `json:"eliminated"`
	Forfeit        bool   `json:"forfeit,omitempty"`
	TurnEnded      bool   `json:"turn_ended"`
	RoundEnded     bool   `json:"round_ended"`
	GameEnded      bool   `json:"game_ended"`
}

// Outcome is everything a successful command produced. Shot, Item and Player
// are for the requester only; Events are for everyone.
type Outcome struct {
	Events []Event
	Shot   *ShotResult
	Item   *ItemResult
	Player *PlayerView
}

// Apply validates cmd against the current state and mutates the game on
// success. On error nothing has changed, unless the error wraps ErrInvariant.
func (g *Game) Apply(cmd Command) (Outcome, error) {
	switch cmd.Type {
	case CmdJoin:
		return g.join(cmd.Player)
	case CmdLeave:
		return g.leave(cmd.Player)
	case CmdStartGame:
		return g.start(cmd.Player)
	case CmdShoot:
		return g.shoot(cmd.Player, cmd.Target)
	case CmdUseItem:
		return g.useItem(cmd.Player, cmd.Item)
	case CmdSetHost:
		return g.setHost(cmd.Player, cmd.Target)
	case CmdConfigure:
		if cmd.Settings == nil {
			return Outcome{}, fmt.Errorf("%w: missing settings", ErrUnsupportedCommand)
		}
		return g.configure(cmd.Player, *cmd.Settings)
	case CmdSetSpectator:
		return g.setSpectator(cmd.Player, cmd.Spectator)
	default:
		return Outcome{}, ErrUnsupportedCommand
	}
}
