package engine

import (
	"errors"
	"fmt"
	"slices"

	"github.com/DoyleJ11/buckshot-backend/internal/random"
)

// Game is the full state of one lobby. It is not safe for concurrent use;
// the lobby actor serializes every call.
type Game struct {
	name     string
	settings Settings
	phase    Phase
	host     string
	players  map[string]*Player
	joined   []*Player

	rng      random.Source
	registry *Registry
	chamber  *Chamber
	deck     *ItemDeck
	turns    *TurnOrder

	round      int
	multiplier int
	extraTurn  bool
	winner     string
}

// NewGame creates a game in the lobby phase. A nil registry means
// DefaultRegistry.
func NewGame(name string, settings Settings, rng random.Source, registry *Registry) *Game {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Game{
		name:       name,
		settings:   settings.Normalize(),
		phase:      PhaseLobby,
		players:    make(map[string]*Player),
		rng:        rng,
		registry:   registry,
		turns:      NewTurnOrder(),
		multiplier: 1,
	}
}

func (g *Game) Phase() Phase        { return g.phase }
func (g *Game) Settings() Settings  { return g.settings }
func (g *Game) Name() string        { return g.name }
func (g *Game) PlayerCount() int    { return len(g.joined) }
func (g *Game) Winner() string      { return g.winner }
func (g *Game) Round() int          { return g.round }
func (g *Game) Registry() *Registry { return g.registry }

// Current returns the player whose turn it is.
func (g *Game) Current() (*Player, error) {
	return g.turns.Current()
}

// Player looks up a player by any spelling of their username.
func (g *Game) Player(name string) (*Player, bool) {
	_, key, err := normalizeUsername(name)
	if err != nil {
		return nil, false
	}
	p, ok := g.players[key]
	return p, ok
}

func (g *Game) join(raw string) (Outcome, error) {
	name, key, err := normalizeUsername(raw)
	if err != nil {
		return Outcome{}, err
	}

	if p, ok := g.players[key]; ok {
		if p.Connected {
			return Outcome{}, ErrUsernameTaken
		}
		p.Connected = true
		v := p.view(g.host == key)
		return Outcome{
			Events: []Event{{Type: EvtPlayerJoined, Player: p.Name}},
			Player: &v,
		}, nil
	}

	spectator := false
	if g.phase != PhasePlaying {
		if g.countCompetitors() >= g.settings.MaxPlayers {
			return Outcome{}, ErrLobbyFull
		}
	} else {
		if g.countSpectators() >= maxSpectators {
			return Outcome{}, ErrLobbyFull
		}
		spectator = true
	}

	p := &Player{Name: name, key: key, Connected: true, Spectator: spectator}
	g.players[key] = p
	g.joined = append(g.joined, p)

	events := []Event{{Type: EvtPlayerJoined, Player: p.Name}}
	if g.host == "" {
		g.host = key
		events = append(events, Event{Type: EvtHostChanged, Player: p.Name})
	}
	v := p.view(g.host == key)
	return Outcome{Events: events, Player: &v}, nil
}

// leave disconnects a player. Before the first game they are removed
// outright; during a game they keep their seat and forfeit their turns.
func (g *Game) leave(raw string) (Outcome, error) {
	p, ok := g.Player(raw)
	if !ok {
		return Outcome{}, ErrUnknownPlayer
	}
	if !p.Connected {
		return Outcome{}, nil
	}

	p.Connected = false
	events := []Event{{Type: EvtPlayerLeft, Player: p.Name}}

	if g.phase != PhasePlaying {
		if g.phase == PhaseLobby {
			g.remove(p)
		}
		if g.host == p.key {
			if next := g.nextHost(); next != nil {
				g.host = next.key
				events = append(events, Event{Type: EvtHostChanged, Player: next.Name})
			} else {
				g.host = ""
			}
		}
		return Outcome{Events: events}, nil
	}

	more, err := g.forfeitAbsent()
	events = append(events, more...)
	return Outcome{Events: events}, err
}

func (g *Game) remove(p *Player) {
	delete(g.players, p.key)
	for i, q := range g.joined {
		if q == p {
			g.joined = append(g.joined[:i], g.joined[i+1:]...)
			break
		}
	}
}

func (g *Game) nextHost() *Player {
	for _, p := range g.joined {
		if p.Connected {
			return p
		}
	}
	return nil
}

func (g *Game) setHost(actor, target string) (Outcome, error) {
	a, ok := g.Player(actor)
	if !ok {
		return Outcome{}, ErrUnknownPlayer
	}
	if g.host != a.key {
		return Outcome{}, ErrNotHost
	}
	t, ok := g.Player(target)
	if !ok || !t.Connected {
		return Outcome{}, ErrInvalidTarget
	}
	g.host = t.key
	return Outcome{Events: []Event{{Type: EvtHostChanged, Player: t.Name}}}, nil
}

func (g *Game) configure(actor string, s Settings) (Outcome, error) {
	a, ok := g.Player(actor)
	if !ok {
		return Outcome{}, ErrUnknownPlayer
	}
	if g.host != a.key {
		return Outcome{}, ErrNotHost
	}
	if g.phase == PhasePlaying {
		return Outcome{}, ErrGameInProgress
	}
	s = s.Normalize()
	if g.countCompetitors() > s.MaxPlayers {
		return Outcome{}, fmt.Errorf("%w: %d players already seated", ErrLobbyFull, g.countCompetitors())
	}
	g.settings = s
	return Outcome{Events: []Event{{Type: EvtSettingsChanged, Player: a.Name}}}, nil
}

func (g *Game) setSpectator(actor string, spectator bool) (Outcome, error) {
	p, ok := g.Player(actor)
	if !ok {
		return Outcome{}, ErrUnknownPlayer
	}
	if g.phase == PhasePlaying {
		return Outcome{}, ErrGameInProgress
	}
	if p.Spectator == spectator {
		return Outcome{}, nil
	}
	if !spectator && g.countCompetitors() >= g.settings.MaxPlayers {
		return Outcome{}, ErrLobbyFull
	}
	p.Spectator = spectator
	v := p.view(g.host == p.key)
	return Outcome{Events: []Event{{Type: EvtSpectatorChanged, Player: p.Name}}, Player: &v}, nil
}

// countCompetitors counts connected players who will take part in the next game.
func (g *Game) countCompetitors() int {
	n := 0
	for _, p := range g.joined {
		if p.Connected && !p.Spectator {
			n++
		}
	}
	return n
}

func (g *Game) countSpectators() int {
	n := 0
	for _, p := range g.joined {
		if p.Spectator {
			n++
		}
	}
	return n
}

// start begins a new game. Ended games can be restarted; disconnected
// players are dropped first.
func (g *Game) start(actor string) (Outcome, error) {
	a, ok := g.Player(actor)
	if !ok {
		return Outcome{}, ErrUnknownPlayer
	}
	if g.host != a.key {
		return Outcome{}, ErrNotHost
	}
	if g.phase == PhasePlaying {
		return Outcome{}, ErrGameInProgress
	}

	var competitors []*Player
	for _, p := range g.joined {
		if p.Connected && !p.Spectator {
			competitors = append(competitors, p)
		}
	}
	if len(competitors) < minPlayers {
		return Outcome{}, ErrNotEnoughPlayers
	}

	for _, p := range slices.Clone(g.joined) {
		if !p.Connected {
			g.remove(p)
		}
	}

	enabled := make([]ItemType, 0, len(g.registry.order))
	for _, it := range g.registry.Types() {
		if g.settings.ItemEnabled(it) {
			enabled = append(enabled, it)
		}
	}

	for _, p := range g.joined {
		p.Items = nil
		p.clearFlags()
		p.Lives = 0
		if !p.Spectator {
			p.Lives = g.settings.StartingLives
		}
	}

	g.chamber = NewChamber(g.rng, g.settings.MaxLiveRounds, g.settings.MaxBlankRounds)
	g.deck = NewItemDeck(g.rng, g.settings, enabled)
	g.deck.Initialize(len(competitors))
	g.turns.Reset(competitors)
	g.round = 0
	g.multiplier = 1
	g.extraTurn = false
	g.winner = ""
	prev := g.phase
	g.phase = PhasePlaying

	events, err := g.openGame(a)
	if err != nil {
		// A failed opening leaves the lobby restartable.
		g.phase = prev
		g.turns.Reset(nil)
		return Outcome{}, err
	}
	return Outcome{Events: events}, nil
}

func (g *Game) openGame(host *Player) ([]Event, error) {
	events := []Event{{Type: EvtGameStarted, Player: host.Name}}
	roundEvt, err := g.startRound()
	if err != nil {
		return nil, err
	}
	events = append(events, roundEvt)

	more, err := g.advanceTurn()
	if err != nil {
		return nil, err
	}
	events = append(events, more...)
	more, err = g.forfeitAbsent()
	if err != nil {
		return nil, err
	}
	return append(events, more...), nil
}

// startRound reloads the chamber and deals items to everyone still alive.
func (g *Game) startRound() (Event, error) {
	if err := g.chamber.Refresh(); err != nil {
		return Event{}, err
	}
	g.deck.Refresh()
	g.round++

	dealt := make(map[string][]ItemType)
	for _, p := range g.turns.Players() {
		if !p.Alive() {
			continue
		}
		items, err := g.deck.DealTo(p)
		if err != nil {
			return Event{}, err
		}
		if len(items) > 0 {
			dealt[p.Name] = items
		}
	}

	live, blank := g.chamber.Loaded()
	return Event{Type: EvtRoundStarted, Round: g.round, Live: live, Blank: blank, Dealt: dealt}, nil
}

// advanceTurn moves to the next player, passing over skipped players once.
func (g *Game) advanceTurn() ([]Event, error) {
	var events []Event
	for {
		if err := g.turns.Advance(); err != nil {
			return events, err
		}
		p, err := g.turns.Current()
		if err != nil {
			return events, err
		}
		if p.Skipped {
			p.Skipped = false
			events = append(events, Event{Type: EvtPlayerSkipped, Player: p.Name})
			continue
		}
		return append(events, Event{Type: EvtTurnStarted, Player: p.Name}), nil
	}
}

// requireTurn returns the actor if it is their turn.
func (g *Game) requireTurn(actor string) (*Player, error) {
	if g.phase != PhasePlaying {
		return nil, ErrGameNotActive
	}
	p, ok := g.Player(actor)
	if !ok {
		return nil, ErrUnknownPlayer
	}
	cur, err := g.turns.Current()
	if err != nil {
		return nil, err
	}
	if cur != p {
		return nil, ErrWrongTurn
	}
	return p, nil
}

func (g *Game) shoot(actor, target string) (Outcome, error) {
	shooter, err := g.requireTurn(actor)
	if err != nil {
		return Outcome{}, err
	}
	victim, ok := g.Player(target)
	if !ok || !victim.Competing() {
		return Outcome{}, ErrInvalidTarget
	}

	res, events, err := g.fire(shooter, victim, false)
	if err != nil {
		return Outcome{Events: events}, err
	}
	more, err := g.forfeitAbsent()
	events = append(events, more...)
	if res.GameEnded || g.phase == PhaseEnded {
		res.GameEnded = true
	}
	return Outcome{Events: events, Shot: &res}, err
}

// fire resolves one shot and the transition that follows it.
func (g *Game) fire(shooter, victim *Player, forfeit bool) (ShotResult, []Event, error) {
	res := ShotResult{Shooter: shooter.Name, Forfeit: forfeit, SelfTargeted: victim == shooter}

	if !res.SelfTargeted {
		if to := g.players[victim.ricochetTo]; to != nil && to.Competing() {
			res.RedirectedFrom = victim.Name
			g.clearRicochet(victim)
			victim = to
		}
	}

	shell, err := g.chamber.Pop()
	if err != nil {
		return res, nil, err
	}

	damage := baseShotDamage * g.multiplier
	g.multiplier = 1

	res.Target = victim.Name
	res.Shell = shell

	var events []Event
	shot := Event{Type: EvtShotFired, Player: shooter.Name, Target: victim.Name, Shell: shell, Forfeit: forfeit}
	if shell == ShellLive {
		victim.Lives -= damage
		res.Damage = damage
		shot.Damage = damage
		shot.Lives = livesOf(victim)
	}
	events = append(events, shot)

	if shell == ShellLive && !victim.Alive() {
		events = append(events, g.eliminate(victim, shooter))
		res.Eliminated = true
	}

	switch {
	case forfeit || shell == ShellLive:
		res.TurnEnded = true
	case res.SelfTargeted:
		res.TurnEnded = false
	case g.extraTurn:
		g.extraTurn = false
		res.TurnEnded = false
	default:
		res.TurnEnded = true
	}

	res.RoundEnded = g.chamber.Len() == 0
	more, turnEnded, err := g.settle(shooter, res.TurnEnded)
	res.TurnEnded = turnEnded
	res.GameEnded = g.phase == PhaseEnded
	return res, append(events, more...), err
}

// settle runs after every shot and item use: it ends the game, starts a new
// round when the chamber ran dry, and passes the turn when it ended.
func (g *Game) settle(actor *Player, turnEnded bool) ([]Event, bool, error) {
	var events []Event

	alive := g.living()
	if len(alive) <= 1 {
		g.phase = PhaseEnded
		g.extraTurn = false
		g.multiplier = 1
		g.winner = ""
		if len(alive) == 1 {
			g.winner = alive[0].Name
		}
		return append(events, Event{Type: EvtGameEnded, Winner: g.winner}), true, nil
	}

	if !actor.Alive() {
		turnEnded = true
	}

	if g.chamber.Len() == 0 {
		evt, err := g.startRound()
		if err != nil {
			return events, turnEnded, err
		}
		events = append(events, evt)
	}

	if !turnEnded {
		return events, false, nil
	}

	g.extraTurn = false
	g.multiplier = 1
	events = append(events, Event{Type: EvtTurnEnded, Player: actor.Name})
	more, err := g.advanceTurn()
	return append(events, more...), true, err
}

// forfeitAbsent makes a disconnected current player shoot themselves until a
// connected player holds the turn or the game is over.
func (g *Game) forfeitAbsent() ([]Event, error) {
	var events []Event
	for g.phase == PhasePlaying {
		cur, err := g.turns.Current()
		if err != nil {
			return events, err
		}
		if cur.Connected {
			return events, nil
		}
		_, more, err := g.fire(cur, cur, true)
		events = append(events, more...)
		if err != nil {
			return events, err
		}
	}
	return events, nil
}

func (g *Game) living() []*Player {
	var alive []*Player
	for _, p := range g.turns.Players() {
		if p.Competing() {
			alive = append(alive, p)
		}
	}
	return alive
}

// eliminate takes p out of the game. Their items go to killer when looting is
// on and killer has room; everything else returns to the deck.
func (g *Game) eliminate(p, killer *Player) Event {
	p.Lives = 0
	for _, it := range p.Items {
		if g.settings.LootOnElimination && killer != nil && killer != p && killer.Alive() &&
			killer.Capacity(g.settings.MaxItemsHeld) > 0 {
			killer.Items = append(killer.Items, it)
			continue
		}
		g.deck.PutBack(it)
	}
	p.Items = nil
	g.clearRicochet(p)
	for _, q := range g.joined {
		if q.ricochetTo == p.key {
			q.ricochetTo = ""
		}
	}
	p.clearFlags()
	return Event{Type: EvtPlayerEliminated, Player: p.Name}
}

func (g *Game) clearRicochet(p *Player) {
	marked := g.players[p.ricochetTo]
	p.ricochetTo = ""
	if marked == nil {
		return
	}
	for _, q := range g.joined {
		if q.ricochetTo == marked.key {
			return
		}
	}
	marked.RicochetMarked = false
}

// addLives grants n lives, stopping at MaxLives unless overflow is allowed.
func (g *Game) addLives(p *Player, n int) {
	if g.settings.AllowLifeOverflow || p.Lives+n <= g.settings.MaxLives {
		p.Lives += n
		return
	}
	p.Lives = max(p.Lives, g.settings.MaxLives)
}

func (g *Game) useItem(actor string, req ItemRequest) (Outcome, error) {
	user, err := g.requireTurn(actor)
	if err != nil {
		return Outcome{}, err
	}

	res, err := g.applyItem(user, req, true)
	if err != nil {
		return Outcome{}, err
	}

	events := []Event{itemEvent(user, req, res)}
	if res.Eliminated || (res.Stolen != nil && res.Stolen.Eliminated) {
		events = append(events, Event{Type: EvtPlayerEliminated, Player: user.Name})
	}

	more, _, err := g.settle(user, false)
	events = append(events, more...)
	if err != nil {
		return Outcome{Events: events, Item: &res}, err
	}
	more, err = g.forfeitAbsent()
	events = append(events, more...)
	return Outcome{Events: events, Item: &res}, err
}

// applyItem checks and runs one item effect. With owned set the user must
// hold the token, which is returned to the deck once the effect succeeds.
func (g *Game) applyItem(user *Player, req ItemRequest, owned bool) (ItemResult, error) {
	eff, ok := g.registry.Lookup(req.Item)
	if !ok || !g.settings.ItemEnabled(req.Item) {
		return ItemResult{}, fmt.Errorf("%w: %q", ErrItemUnavailable, req.Item)
	}
	if owned && !user.HasItem(req.Item) {
		return ItemResult{}, ErrItemNotHeld
	}

	u := &use{game: g, user: user, req: req}
	if eff.Target == TargetOther {
		t, ok := g.Player(req.Target)
		if !ok || t == user || !t.Competing() {
			return ItemResult{}, ErrInvalidTarget
		}
		u.target = t
	}

	if eff.Check != nil {
		if reason := eff.Check(u); reason != "" {
			return ItemResult{}, &PreconditionError{Item: req.Item, Reason: reason}
		}
	}

	res, err := eff.Apply(u)
	if err != nil {
		if errors.Is(err, ErrInvariant) {
			return ItemResult{}, fmt.Errorf("apply %s: %w", req.Item, err)
		}
		return ItemResult{}, err
	}

	res.Item = req.Item
	res.User = user.Name
	if u.target != nil {
		res.Target = u.target.Name
	}
	// An effect that eliminated the user has already returned their hand.
	if owned && user.removeItem(req.Item) {
		g.deck.PutBack(req.Item)
	}
	return res, nil
}

// itemEvent is the public view of an item use. A pickpocket reports the
// details of the stolen item's effect.
func itemEvent(user *Player, req ItemRequest, res ItemResult) Event {
	evt := Event{Type: EvtItemUsed, Player: user.Name, Target: res.Target, Item: req.Item}

	detail, detailReq := res, req
	if req.Item == ItemPickpocket && res.Stolen != nil && req.Steal != nil {
		evt.Stolen = req.Steal.Item
		detail, detailReq = *res.Stolen, *req.Steal
	}

	switch detailReq.Item {
	case ItemRack:
		evt.Shell = detail.Ejected
	case ItemAddRounds:
		evt.Shell, evt.Count = detailReq.Shell, detail.Added
	case ItemLifeGamble, ItemExtraLife:
		evt.Lives = detail.Lives
	}
	return evt
}
