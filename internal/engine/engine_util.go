package engine

// Snapshot is a read-only view of a game. It never reveals chamber order.
type Snapshot struct {
	Name          string       `json:"name"`
	Phase         Phase        `json:"phase"`
	Settings      Settings     `json:"settings"`
	Round         int          `json:"round"`
	Turn          string       `json:"turn,omitempty"`
	Reversed      bool         `json:"reversed"`
	ChamberSize   int          `json:"chamber_size"`
	LoadedLive    int          `json:"loaded_live"`
	LoadedBlank   int          `json:"loaded_blank"`
	ItemDeckSize  int          `json:"item_deck_size"`
	DoubleDamage  bool         `json:"double_damage"`
	ExtraTurn     bool         `json:"extra_turn"`
	Winner        string       `json:"winner,omitempty"`
	Players       []PlayerView `json:"players"`
	Host          string       `json:"host,omitempty"`
	Items         []ItemType   `json:"items"`
	Connected     int          `json:"connected"`
	CompetitorCap int          `json:"competitor_cap"`
}

func (g *Game) Snapshot() Snapshot {
	s := Snapshot{
		Name:          g.name,
		Phase:         g.phase,
		Settings:      g.settings,
		Round:         g.round,
		Reversed:      g.turns.Reversed(),
		DoubleDamage:  g.multiplier > 1,
		ExtraTurn:     g.extraTurn,
		Winner:        g.winner,
		Players:       make([]PlayerView, 0, len(g.joined)),
		CompetitorCap: g.settings.MaxPlayers,
	}
	if g.phase == PhasePlaying {
		if cur, err := g.turns.Current(); err == nil {
			s.Turn = cur.Name
		}
	}
	if g.chamber != nil {
		s.ChamberSize = g.chamber.Len()
		s.LoadedLive, s.LoadedBlank = g.chamber.Loaded()
	}
	if g.deck != nil {
		s.ItemDeckSize = g.deck.Len()
	}
	for _, p := range g.joined {
		if p.key == g.host {
			s.Host = p.Name
		}
		if p.Connected {
			s.Connected++
		}
		s.Players = append(s.Players, p.view(p.key == g.host))
	}
	for _, it := range g.registry.Types() {
		if g.settings.ItemEnabled(it) {
			s.Items = append(s.Items, it)
		}
	}
	return s
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

// EventsOf filters events down to one type.
func EventsOf(events []Event, eventType EventType) []Event {
	var out []Event
	for _, event := range events {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

// livesOf reports p's remaining lives for events, so zero still serializes.
func livesOf(p *Player) *int {
	n := max(p.Lives, 0)
	return &n
}
