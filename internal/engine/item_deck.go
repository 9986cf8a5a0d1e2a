package engine

import (
	"fmt"

	"github.com/DoyleJ11/buckshot-backend/internal/random"
)

// itemsPerPack is how many copies of an item type are added at a time.
const itemsPerPack = 2

// ItemDeck is the pool item tokens are dealt from. The deck plus every hand
// always adds up to the size chosen by Initialize.
type ItemDeck struct {
	rng       random.Source
	settings  Settings
	types     []ItemType
	items     []ItemType
	dealCount int
}

// NewItemDeck builds an empty deck for the given enabled item types.
func NewItemDeck(rng random.Source, settings Settings, types []ItemType) *ItemDeck {
	return &ItemDeck{rng: rng, settings: settings, types: types}
}

// Initialize sizes the deck so every participant can hold a full hand at once.
func (d *ItemDeck) Initialize(participants int) {
	d.items = d.items[:0]
	if len(d.types) == 0 || d.settings.MaxItemsHeld == 0 || participants <= 0 {
		return
	}

	needed := participants * d.settings.MaxItemsHeld
	perType := ceilDiv(needed, len(d.types))
	copies := ceilDiv(perType, itemsPerPack) * itemsPerPack

	for _, it := range d.types {
		for range copies {
			d.items = append(d.items, it)
		}
	}
	d.shuffle()
}

// Refresh reshuffles what is left and picks this round's deal count.
func (d *ItemDeck) Refresh() {
	d.shuffle()
	switch {
	case len(d.types) == 0:
		d.dealCount = 0
	case d.settings.RandomItemsPerRound:
		d.dealCount = random.Between(d.rng, d.settings.MinItemsPerRound, d.settings.MaxItemsPerRound)
	default:
		d.dealCount = d.settings.ItemsPerRound
	}
}

// DealTo tops up p's hand by this round's deal count, never past MaxItemsHeld.
func (d *ItemDeck) DealTo(p *Player) ([]ItemType, error) {
	n := min(d.dealCount, p.Capacity(d.settings.MaxItemsHeld))
	if n <= 0 {
		return nil, nil
	}

	dealt := make([]ItemType, 0, n)
	for range n {
		it, err := d.Pop()
		if err != nil {
			return dealt, fmt.Errorf("deal to %s: %w", p.Name, err)
		}
		p.Items = append(p.Items, it)
		dealt = append(dealt, it)
	}
	return dealt, nil
}

func (d *ItemDeck) Pop() (ItemType, error) {
	n := len(d.items)
	if n == 0 {
		return "", ErrItemDeckExhausted
	}
	it := d.items[n-1]
	d.items = d.items[:n-1]
	return it, nil
}

// PutBack returns a token to the bottom of the deck.
func (d *ItemDeck) PutBack(it ItemType) {
	d.items = append([]ItemType{it}, d.items...)
}

func (d *ItemDeck) Len() int       { return len(d.items) }
func (d *ItemDeck) DealCount() int { return d.dealCount }

func (d *ItemDeck) shuffle() {
	d.rng.Shuffle(len(d.items), func(i, j int) {
		d.items[i], d.items[j] = d.items[j], d.items[i]
	})
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
