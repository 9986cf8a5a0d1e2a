package engine

// TurnOrder cycles through the competitors of a game. The cursor is the only
// record of whose turn it is.
type TurnOrder struct {
	order  []*Player
	cursor int
	step   int
}

func NewTurnOrder() *TurnOrder {
	return &TurnOrder{cursor: -1, step: 1}
}

// Reset fixes the order for a new game and clears the cursor.
func (t *TurnOrder) Reset(players []*Player) {
	t.order = append(t.order[:0], players...)
	t.cursor = -1
	t.step = 1
}

// Advance moves the cursor to the next player with lives left. Players with
// the skip flag are not passed over here; that is up to the caller.
func (t *TurnOrder) Advance() error {
	alive := false
	for _, p := range t.order {
		if p.Alive() {
			alive = true
			break
		}
	}
	if !alive {
		return ErrNoEligiblePlayers
	}

	n := len(t.order)
	for {
		t.cursor = ((t.cursor+t.step)%n + n) % n
		if t.order[t.cursor].Alive() {
			return nil
		}
	}
}

func (t *TurnOrder) Current() (*Player, error) {
	if t.cursor < 0 || t.cursor >= len(t.order) {
		return nil, ErrTurnOrderUninitialized
	}
	return t.order[t.cursor], nil
}

// Reverse flips the direction of play from the current player onward.
func (t *TurnOrder) Reverse() { t.step = -t.step }

func (t *TurnOrder) Reversed() bool { return t.step < 0 }

func (t *TurnOrder) Players() []*Player { return t.order }
