// Package types holds the wire protocol shared by the HTTP and websocket
// transports.
//
// Client -> Server (websocket text frames, one JSON object each)
//
//	shoot:      { "type": "shoot", "target": string }
//	use_item:   { "type": "use_item", "item": { "item": ItemType, "target"?: string,
//	              "shell"?: "live" | "blank", "count"?: number, "steal"?: ItemRequest } }
//	start:      { "type": "start" }
//	leave:      { "type": "leave" }
//	spectate:   { "type": "spectate", "spectator": boolean }
//	set_host:   { "type": "set_host", "target": string }
//	configure:  { "type": "configure", "settings": Settings }
//
// Server -> Client
//
//	update: sent to every subscriber after a state change.
//	  version: number
//	  events: Event[]        // GameStarted, RoundStarted, ShotFired, ItemUsed, ...
//	  state:
//	    name, phase ("lobby" | "playing" | "ended"), round, turn, host, winner
//	    reversed, double_damage, extra_turn
//	    chamber_size, loaded_live, loaded_blank, item_deck_size
//	    players: { name, connected, spectator, host, lives, items, skipped, ricochet_marked }[]
//	    items: ItemType[]    // item types enabled for this lobby
//	    connected, competitor_cap
//	    settings: Settings
//
//	result: sent only to the client whose command succeeded.
//	  version: number
//	  shot?:   { shooter, target, redirected_from?, shell, damage, self_targeted,
//	             eliminated, forfeit?, turn_ended, round_ended, game_ended }
//	  item?:   { item, user, target?, peek?, ejected?, added?, life_delta?, lives?,
//	             eliminated?, stolen? }
//	  player?: PlayerView
//
//	error: sent only to the client whose command failed.
//	  code: string           // see the Code constants
//	  error: string
package types
