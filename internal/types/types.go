package types

import "github.com/DoyleJ11/buckshot-backend/internal/engine"

// Client message types accepted over the websocket.
const (
	MsgShoot     = "shoot"
	MsgUseItem   = "use_item"
	MsgStart     = "start"
	MsgLeave     = "leave"
	MsgSpectate  = "spectate"
	MsgSetHost   = "set_host"
	MsgConfigure = "configure"
)

// Server message types.
const (
	MsgUpdate = "update"
	MsgResult = "result"
	MsgError  = "error"
)

type ClientMessage struct {
	Type      string              `json:"type"`
	Target    string              `json:"target,omitempty"`
	Item      *engine.ItemRequest `json:"item,omitempty"`
	Spectator bool                `json:"spectator,omitempty"`
	Settings  *engine.Settings    `json:"settings,omitempty"`
}

// ServerMessage is every frame the server writes. Updates go to the whole
// lobby; results and errors only to the client that sent the command.
type ServerMessage struct {
	Type    string             `json:"type"`
	Version int                `json:"version,omitempty"`
	Events  []engine.Event     `json:"events,omitempty"`
	State   *engine.Snapshot   `json:"state,omitempty"`
	Shot    *engine.ShotResult `json:"shot,omitempty"`
	Item    *engine.ItemResult `json:"item,omitempty"`
	Player  *engine.PlayerView `json:"player,omitempty"`
	Code    string             `json:"code,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// ToCommand turns a client message into an engine command issued by player.
func ToCommand(player string, m ClientMessage) (engine.Command, bool) {
	switch m.Type {
	case MsgShoot:
		return engine.Command{Type: engine.CmdShoot, Player: player, Target: m.Target}, true
	case MsgUseItem:
		if m.Item == nil {
			return engine.Command{}, false
		}
		return engine.Command{Type: engine.CmdUseItem, Player: player, Item: *m.Item}, true
	case MsgStart:
		return engine.Command{Type: engine.CmdStartGame, Player: player}, true
	case MsgLeave:
		return engine.Command{Type: engine.CmdLeave, Player: player}, true
	case MsgSpectate:
		return engine.Command{Type: engine.CmdSetSpectator, Player: player, Spectator: m.Spectator}, true
	case MsgSetHost:
		return engine.Command{Type: engine.CmdSetHost, Player: player, Target: m.Target}, true
	case MsgConfigure:
		if m.Settings == nil {
			return engine.Command{}, false
		}
		return engine.Command{Type: engine.CmdConfigure, Player: player, Settings: m.Settings}, true
	default:
		return engine.Command{}, false
	}
}
