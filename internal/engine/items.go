package engine

import (
	"fmt"
	"slices"
)

type ItemType string

const (
	ItemSkip         ItemType = "skip"
	ItemDoubleDamage ItemType = "double_damage"
	ItemChamberCheck ItemType = "chamber_check"
	ItemAddRounds    ItemType = "add_rounds"
	ItemLifeGamble   ItemType = "life_gamble"
	ItemExtraLife    ItemType = "extra_life"
	ItemPickpocket   ItemType = "pickpocket"
	ItemReverse      ItemType = "reverse"
	ItemRack         ItemType = "rack"
	ItemInverter     ItemType = "inverter"
	ItemRicochet     ItemType = "ricochet"
	ItemExtraTurn    ItemType = "extra_turn"
)

// ItemRequest is a request to use one item. Steal is only read for
// pickpocket, and describes how the stolen item is used.
type ItemRequest struct {
	Item   ItemType     `json:"item"`
	Target string       `json:"target,omitempty"`
	Shell  Shell        `json:"shell,omitempty"`
	Count  int          `json:"count,omitempty"`
	Steal  *ItemRequest `json:"steal,omitempty"`
}

// ItemResult is returned to the player who used the item. Peek is private to
// them and never copied into an Event.
type ItemResult struct {
	Item       ItemType    `json:"item"`
	User       string      `json:"user"`
	Target     string      `json:"target,omitempty"`
	Peek       Shell       `json:"peek,omitempty"`
	Ejected    Shell       `json:"ejected,omitempty"`
	Added      int         `json:"added,omitempty"`
	LifeDelta  int         `json:"life_delta,omitempty"`
	Lives      *int        `json:"lives,omitempty"`
	Eliminated bool        `json:"eliminated,omitempty"`
	Stolen     *ItemResult `json:"stolen,omitempty"`
}

// TargetRule says what an item's Target field must name.
type TargetRule int

const (
	TargetNone TargetRule = iota
	TargetOther
)

// use is the context an effect runs in.
type use struct {
	game   *Game
	user   *Player
	target *Player
	req    ItemRequest
}

// Effect is one registered item. Check returns a non-empty reason when the
// item cannot be used; Apply runs only after Check passed.
type Effect struct {
	Target TargetRule
	Check  func(u *use) string
	Apply  func(u *use) (ItemResult, error)
}

// Registry maps item types to their effects.
type Registry struct {
	effects map[ItemType]Effect
	order   []ItemType
}

func NewRegistry() *Registry {
	return &Registry{effects: make(map[ItemType]Effect)}
}

// Register adds or replaces the effect for it.
func (r *Registry) Register(it ItemType, e Effect) {
	if _, ok := r.effects[it]; !ok {
		r.order = append(r.order, it)
	}
	r.effects[it] = e
}

func (r *Registry) Lookup(it ItemType) (Effect, bool) {
	e, ok := r.effects[it]
	return e, ok
}

// Types lists registered items in registration order.
func (r *Registry) Types() []ItemType { return slices.Clone(r.order) }

// DefaultRegistry returns every item the game ships with.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(ItemSkip, Effect{Target: TargetOther, Check: checkSkip, Apply: applySkip})
	r.Register(ItemDoubleDamage, Effect{Check: checkDoubleDamage, Apply: applyDoubleDamage})
	r.Register(ItemChamberCheck, Effect{Apply: applyChamberCheck})
	r.Register(ItemAddRounds, Effect{Check: checkAddRounds, Apply: applyAddRounds})
	r.Register(ItemLifeGamble, Effect{Apply: applyLifeGamble})
	r.Register(ItemExtraLife, Effect{Check: checkExtraLife, Apply: applyExtraLife})
	r.Register(ItemPickpocket, Effect{Target: TargetOther, Check: checkPickpocket, Apply: applyPickpocket})
	r.Register(ItemReverse, Effect{Apply: applyReverse})
	r.Register(ItemRack, Effect{Check: checkRack, Apply: applyRack})
	r.Register(ItemInverter, Effect{Apply: applyInverter})
	r.Register(ItemRicochet, Effect{Target: TargetOther, Check: checkRicochet, Apply: applyRicochet})
	r.Register(ItemExtraTurn, Effect{Check: checkExtraTurn, Apply: applyExtraTurn})
	return r
}

func checkSkip(u *use) string {
	if u.target.Skipped {
		return "target is already skipped"
	}
	return ""
}

func applySkip(u *use) (ItemResult, error) {
	u.target.Skipped = true
	return ItemResult{}, nil
}

func checkDoubleDamage(u *use) string {
	if u.game.multiplier > 1 {
		return "double damage is already pending"
	}
	return ""
}

func applyDoubleDamage(u *use) (ItemResult, error) {
	u.game.multiplier = 2
	return ItemResult{}, nil
}

func applyChamberCheck(u *use) (ItemResult, error) {
	s, err := u.game.chamber.Peek()
	if err != nil {
		return ItemResult{}, err
	}
	return ItemResult{Peek: s}, nil
}

func checkAddRounds(u *use) string {
	if !u.req.Shell.Valid() {
		return "choose live or blank rounds"
	}
	if limit := u.game.settings.MaxAddedRounds; u.req.Count < 1 || u.req.Count > limit {
		return fmt.Sprintf("count must be between 1 and %d", limit)
	}
	return ""
}

func applyAddRounds(u *use) (ItemResult, error) {
	u.game.chamber.Add(u.req.Shell, u.req.Count)
	return ItemResult{Added: u.req.Count}, nil
}

func applyLifeGamble(u *use) (ItemResult, error) {
	before := u.user.Lives
	if u.game.rng.Intn(2) == 0 {
		u.game.addLives(u.user, 2)
	} else {
		u.user.Lives--
	}
	res := ItemResult{LifeDelta: u.user.Lives - before, Lives: livesOf(u.user)}
	if !u.user.Alive() {
		u.game.eliminate(u.user, nil)
		res.Eliminated = true
	}
	return res, nil
}

func checkExtraLife(u *use) string {
	if !u.game.settings.AllowLifeOverflow && u.user.Lives >= u.game.settings.MaxLives {
		return "already at maximum lives"
	}
	return ""
}

func applyExtraLife(u *use) (ItemResult, error) {
	before := u.user.Lives
	u.game.addLives(u.user, 1)
	return ItemResult{LifeDelta: u.user.Lives - before, Lives: livesOf(u.user)}, nil
}

func checkPickpocket(u *use) string {
	steal := u.req.Steal
	switch {
	case steal == nil || steal.Item == "":
		return "choose an item to steal"
	case steal.Item == ItemPickpocket:
		return "cannot steal a pickpocket"
	case !u.target.HasItem(steal.Item):
		return fmt.Sprintf("%s does not hold %s", u.target.Name, steal.Item)
	}
	return ""
}

// applyPickpocket uses the victim's copy of the requested item as if the user
// held it. If that nested use fails nothing is consumed.
func applyPickpocket(u *use) (ItemResult, error) {
	stolen, err := u.game.applyItem(u.user, *u.req.Steal, false)
	if err != nil {
		return ItemResult{}, err
	}
	if u.target.removeItem(u.req.Steal.Item) {
		u.game.deck.PutBack(u.req.Steal.Item)
	}
	return ItemResult{Stolen: &stolen}, nil
}

func applyReverse(u *use) (ItemResult, error) {
	u.game.turns.Reverse()
	return ItemResult{}, nil
}

func checkRack(u *use) string {
	if u.game.chamber.Len() < 2 {
		return "cannot rack the last round"
	}
	return ""
}

func applyRack(u *use) (ItemResult, error) {
	s, err := u.game.chamber.Pop()
	if err != nil {
		return ItemResult{}, err
	}
	return ItemResult{Ejected: s}, nil
}

func applyInverter(u *use) (ItemResult, error) {
	return ItemResult{}, u.game.chamber.InvertNext()
}

func checkRicochet(u *use) string {
	if u.user.ricochetTo != "" {
		return "a ricochet is already set"
	}
	return ""
}

func applyRicochet(u *use) (ItemResult, error) {
	u.user.ricochetTo = u.target.key
	u.target.RicochetMarked = true
	return ItemResult{}, nil
}

func checkExtraTurn(u *use) string {
	if u.game.extraTurn {
		return "an extra turn is already pending"
	}
	return ""
}

func applyExtraTurn(u *use) (ItemResult, error) {
	u.game.extraTurn = true
	return ItemResult{}, nil
}
