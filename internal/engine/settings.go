package engine

import "slices"

// Settings is the per-lobby rule set. It is fixed for the duration of a game.
type Settings struct {
	MaxPlayers          int        `json:"max_players"`
	StartingLives       int        `json:"starting_lives"`
	MaxLives            int        `json:"max_lives"`
	MaxLiveRounds       int        `json:"max_live_rounds"`
	MaxBlankRounds      int        `json:"max_blank_rounds"`
	MaxItemsHeld        int        `json:"max_items_held"`
	ItemsPerRound       int        `json:"items_per_round"`
	RandomItemsPerRound bool       `json:"random_items_per_round"`
	MinItemsPerRound    int        `json:"min_items_per_round"`
	MaxItemsPerRound    int        `json:"max_items_per_round"`
	MaxAddedRounds      int        `json:"max_added_rounds"`
	AllowLifeOverflow   bool       `json:"allow_life_overflow"`
	LootOnElimination   bool       `json:"loot_on_elimination"`
	DisabledItems       []ItemType `json:"disabled_items,omitempty"`
}

const (
	minPlayers     = 2
	maxPlayers     = 8
	maxLivesCap    = 20
	maxRoundsCap   = 8
	maxItemsCap    = 8
	maxAddedCap    = 4
	startLivesCap  = 10
	maxSpectators  = 16
	baseShotDamage = 1
)

func DefaultSettings() Settings {
	return Settings{
		MaxPlayers:       4,
		StartingLives:    3,
		MaxLives:         5,
		MaxLiveRounds:    4,
		MaxBlankRounds:   4,
		MaxItemsHeld:     8,
		ItemsPerRound:    2,
		MinItemsPerRound: 1,
		MaxItemsPerRound: 4,
		MaxAddedRounds:   2,
	}
}

// Normalize clamps every field into its legal range. Inverted min/max pairs
// are swapped before clamping.
func (s Settings) Normalize() Settings {
	s.MaxPlayers = clamp(s.MaxPlayers, minPlayers, maxPlayers)
	s.StartingLives = clamp(s.StartingLives, 1, startLivesCap)
	s.MaxLives = clamp(s.MaxLives, s.StartingLives, maxLivesCap)
	s.MaxLiveRounds = clamp(s.MaxLiveRounds, 1, maxRoundsCap)
	s.MaxBlankRounds = clamp(s.MaxBlankRounds, 1, maxRoundsCap)
	s.MaxItemsHeld = clamp(s.MaxItemsHeld, 0, maxItemsCap)
	s.ItemsPerRound = clamp(s.ItemsPerRound, 0, s.MaxItemsHeld)
	if s.MinItemsPerRound > s.MaxItemsPerRound {
		s.MinItemsPerRound, s.MaxItemsPerRound = s.MaxItemsPerRound, s.MinItemsPerRound
	}
	s.MinItemsPerRound = clamp(s.MinItemsPerRound, 0, s.MaxItemsHeld)
	s.MaxItemsPerRound = clamp(s.MaxItemsPerRound, s.MinItemsPerRound, s.MaxItemsHeld)
	s.MaxAddedRounds = clamp(s.MaxAddedRounds, 1, maxAddedCap)

	disabled := slices.Clone(s.DisabledItems)
	slices.Sort(disabled)
	s.DisabledItems = slices.Compact(disabled)
	return s
}

func (s Settings) ItemEnabled(it ItemType) bool {
	return !slices.Contains(s.DisabledItems, it)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
