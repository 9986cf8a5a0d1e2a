package engine

import (
	"fmt"
	"slices"
	"unicode/utf8"

	"golang.org/x/text/secure/precis"
)

// Player is one participant in a lobby. Players survive disconnects so a
// reconnect picks up the same lives and items.
type Player struct {
	Name           string
	Connected      bool
	Spectator      bool
	Lives          int
	Items          []ItemType
	Skipped        bool
	RicochetMarked bool

	key        string
	ricochetTo string
}

type PlayerView struct {
	Name           string     `json:"name"`
	Connected      bool       `json:"connected"`
	Spectator      bool       `json:"spectator"`
	Host           bool       `json:"host"`
	Lives          int        `json:"lives"`
	Items          []ItemType `json:"items"`
	Skipped        bool       `json:"skipped"`
	RicochetMarked bool       `json:"ricochet_marked"`
}

func (p *Player) Alive() bool { return p.Lives > 0 }

// Competing reports whether p is eligible for turns.
func (p *Player) Competing() bool { return !p.Spectator && p.Lives > 0 }

func (p *Player) HasItem(it ItemType) bool {
	return slices.Contains(p.Items, it)
}

// Capacity is how many more items p can hold under limit.
func (p *Player) Capacity(limit int) int {
	return max(0, limit-len(p.Items))
}

func (p *Player) removeItem(it ItemType) bool {
	i := slices.Index(p.Items, it)
	if i < 0 {
		return false
	}
	p.Items = slices.Delete(p.Items, i, i+1)
	return true
}

func (p *Player) clearFlags() {
	p.Skipped = false
	p.RicochetMarked = false
	p.ricochetTo = ""
}

func (p *Player) view(host bool) PlayerView {
	return PlayerView{
		Name:           p.Name,
		Connected:      p.Connected,
		Spectator:      p.Spectator,
		Host:           host,
		Lives:          p.Lives,
		Items:          slices.Clone(p.Items),
		Skipped:        p.Skipped,
		RicochetMarked: p.RicochetMarked,
	}
}

const maxUsernameLen = 24

// normalizeUsername returns the display form of raw and the key used to
// compare it against other names in the lobby.
func normalizeUsername(raw string) (name, key string, err error) {
	name, err = precis.UsernameCasePreserved.String(raw)
	if err != nil {
		return "", "", fmt.Errorf("%w: %q: %v", ErrInvalidUsername, raw, err)
	}
	if utf8.RuneCountInString(name) > maxUsernameLen {
		return "", "", fmt.Errorf("%w: longer than %d characters", ErrInvalidUsername, maxUsernameLen)
	}
	key, err = precis.UsernameCaseMapped.String(name)
	if err != nil {
		return "", "", fmt.Errorf("%w: %q: %v", ErrInvalidUsername, raw, err)
	}
	return name, key, nil
}
