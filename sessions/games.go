package sessions

import (
	"context"
	"fmt"
	"time"

	"econbot/games"
	"econbot/games/blackjack"
	"econbot/games/hotpotato"
	"econbot/games/treasurehunt"
	"econbot/games/wordchain"
	"econbot/models"
)

// Action is a player move. Arg carries the word, direction or pass target.
type Action struct {
	Name string `json:"name"`
	Arg  string `json:"arg,omitempty"`
}

const (
	ActHit    = "hit"
	ActStand  = "stand"
	ActDouble = "double"
	ActJoin   = "join"
	ActPlay   = "play"
	ActMove   = "move"
	ActStart  = "start"
	ActPass   = "pass"
	ActCancel = "cancel"
)

const defaultBlackjackIdle = 60 * time.Second

func unsupported(kind Kind, a Action) error {
	return fmt.Errorf("%w: %s has no %q action", models.ErrInvalidState, kind, a.Name)
}

// StartBlackjack debits the bet and deals a hand. A natural settles at once.
func (m *Manager) StartBlackjack(ctx context.Context, channelID, accountID string, bet int64, table string) (View, error) {
	if err := m.bets.ValidateBet(bet); err != nil {
		return View{}, err
	}
	if table == "" {
		table = "classic"
	}
	preset, err := m.presets.BlackjackTable(table)
	if err != nil {
		return View{}, err
	}
	idle := preset.InactivityTimeout
	if idle <= 0 {
		idle = defaultBlackjackIdle
	}
	g := blackjack.Deal(accountID, bet, preset, m.newDeck())
	st := step{entries: []games.Entry{games.Stake(accountID, bet, "blackjack bet")}, event: "dealt"}
	if g.Phase == blackjack.Settled {
		st = blackjackSettlement(g, st)
	}
	s := &session{id: ID(Blackjack, accountID), kind: Blackjack, channelID: channelID, game: g, idle: idle}
	return m.open(ctx, s, st)
}

func (m *Manager) blackjackStep(g *blackjack.Game, a Action, actorID string) (step, error) {
	if actorID != g.PlayerID {
		return step{}, fmt.Errorf("%w: this is not your hand", models.ErrNotAuthorized)
	}
	var st step
	var err error
	switch a.Name {
	case ActHit:
		err = g.Apply(blackjack.Hit)
	case ActStand:
		err = g.Apply(blackjack.Stand)
	case ActDouble:
		if !g.CanDouble() {
			return step{}, fmt.Errorf("%w: double is only allowed on the first two cards", models.ErrInvalidState)
		}
		st.entries = append(st.entries, games.Stake(g.PlayerID, g.Bet, "blackjack double"))
		err = g.Apply(blackjack.Double)
	default:
		return step{}, unsupported(Blackjack, a)
	}
	if err != nil {
		return step{}, err
	}
	st.event = a.Name
	if g.Phase == blackjack.Settled {
		st = blackjackSettlement(g, st)
	}
	return st, nil
}

func blackjackSettlement(g *blackjack.Game, st step) step {
	payout := g.Payout()
	if payout > 0 {
		st.entries = append(st.entries, games.Entry{
			AccountID:   g.PlayerID,
			Amount:      payout,
			Description: "blackjack " + string(g.Result),
			Kind:        models.KindPayout,
		})
	}
	st.stats = append(st.stats, statLine{AccountID: g.PlayerID, Wagered: g.Bet, Won: payout})
	st.event = string(g.Result)
	return st
}

// OpenWordChain opens a lobby in channelID with the host as first player
func (m *Manager) OpenWordChain(ctx context.Context, channelID, hostID string, turnTimeout time.Duration) (View, error) {
	id := ID(WordChain, channelID)
	g := wordchain.New(id, channelID, m.presets.WordChain, turnTimeout, m.now())
	if _, err := g.Join(hostID); err != nil {
		return View{}, err
	}
	st := step{entries: []games.Entry{games.Stake(hostID, g.EntryFee, "word chain entry")}, event: "opened"}
	return m.open(ctx, &session{id: id, kind: WordChain, channelID: channelID, game: g}, st)
}

func (m *Manager) wordChainStep(g *wordchain.Game, a Action, actorID string, now time.Time) (step, error) {
	switch a.Name {
	case ActJoin:
		full, err := g.Join(actorID)
		if err != nil {
			return step{}, err
		}
		st := step{entries: []games.Entry{games.Stake(actorID, g.EntryFee, "word chain entry")}, event: "joined"}
		if full {
			g.CloseJoin(now)
			st.event = "started"
		}
		return st, nil
	case ActPlay:
		if err := g.Play(actorID, a.Arg, now); err != nil {
			return step{}, err
		}
		return step{event: "played", detail: g.LastWord}, nil
	}
	return step{}, unsupported(WordChain, a)
}

// wordChainStats credits the whole pot to the winner's counters
func wordChainStats(g *wordchain.Game) []statLine {
	pot := g.EntryFee * int64(len(g.Players))
	out := make([]statLine, 0, len(g.Players))
	for _, p := range g.Players {
		sl := statLine{AccountID: p.ID, Wagered: g.EntryFee}
		if p.ID == g.Winner {
			sl.Won = pot
		}
		out = append(out, sl)
	}
	return out
}

// StartTreasureHunt seeds a grid for accountID and charges the entry fee
func (m *Manager) StartTreasureHunt(ctx context.Context, channelID, accountID string) (View, error) {
	id := ID(TreasureHunt, accountID)
	g, err := treasurehunt.New(id, accountID, m.presets.TreasureHunt, m.rng, m.now())
	if err != nil {
		return View{}, err
	}
	st := step{entries: []games.Entry{games.Stake(accountID, m.presets.TreasureHunt.EntryFee, "treasure hunt entry")}, event: "started"}
	return m.open(ctx, &session{id: id, kind: TreasureHunt, channelID: channelID, game: g}, st)
}

func (m *Manager) treasureHuntStep(g *treasurehunt.Game, a Action, actorID string, now time.Time) (step, error) {
	switch a.Name {
	case ActMove:
		dir, err := treasurehunt.ParseDirection(a.Arg)
		if err != nil {
			return step{}, err
		}
		res, err := g.Move(actorID, dir, now)
		if err != nil {
			return step{}, err
		}
		st := step{entries: res.Entries, event: string(res.Kind), detail: res}
		if res.Completed {
			st.event = "completed"
			st.stats = []statLine{{
				AccountID: g.PlayerID,
				Wagered:   m.presets.TreasureHunt.EntryFee,
				Won:       int64(g.Found)*g.TreasureReward + g.CompletionBonus,
			}}
		}
		return st, nil
	case ActCancel:
		if actorID != g.PlayerID {
			return step{}, fmt.Errorf("%w: this is not your hunt", models.ErrNotAuthorized)
		}
		g.Status = models.StatusCancelled
		return step{event: "forfeited"}, nil
	}
	return step{}, unsupported(TreasureHunt, a)
}

// OpenHotPotato opens a lobby in channelID with the host as first player
func (m *Manager) OpenHotPotato(ctx context.Context, channelID, hostID string) (View, error) {
	id := ID(HotPotato, channelID)
	g := hotpotato.New(id, channelID, m.presets.HotPotato)
	if err := g.Join(hostID); err != nil {
		return View{}, err
	}
	st := step{entries: []games.Entry{games.Stake(hostID, g.EntryFee, "hot potato entry")}, event: "opened"}
	return m.open(ctx, &session{id: id, kind: HotPotato, channelID: channelID, game: g}, st)
}

func (m *Manager) hotPotatoStep(g *hotpotato.Game, a Action, actorID string, now time.Time) (step, error) {
	switch a.Name {
	case ActJoin:
		if err := g.Join(actorID); err != nil {
			return step{}, err
		}
		return step{entries: []games.Entry{games.Stake(actorID, g.EntryFee, "hot potato entry")}, event: "joined"}, nil
	case ActStart:
		if err := g.Start(actorID, now); err != nil {
			return step{}, err
		}
		return step{event: "started"}, nil
	case ActPass:
		res, err := g.Pass(m.rng, actorID, a.Arg, now)
		if err != nil {
			return step{}, err
		}
		st := step{entries: res.Entries, event: "passed", detail: res}
		if res.Exploded {
			st.event = "exploded"
			st.stats = hotPotatoStats(g, res.Entries)
		}
		return st, nil
	case ActCancel:
		if len(g.Players) == 0 || g.Players[0] != actorID {
			return step{}, fmt.Errorf("%w: only the host can cancel", models.ErrNotAuthorized)
		}
		refunds, err := g.Cancel()
		if err != nil {
			return step{}, err
		}
		return step{entries: refunds, event: "cancelled"}, nil
	}
	return step{}, unsupported(HotPotato, a)
}

func hotPotatoStats(g *hotpotato.Game, entries []games.Entry) []statLine {
	won := make(map[string]int64, len(entries))
	for _, e := range entries {
		if e.Amount > 0 {
			won[e.AccountID] += e.Amount
		}
	}
	out := make([]statLine, 0, len(g.Players))
	for _, p := range g.Players {
		out = append(out, statLine{AccountID: p, Wagered: g.EntryFee, Won: won[p]})
	}
	return out
}

// expire is the timeout transition for each kind
func (m *Manager) expire(s *session, now time.Time) (step, error) {
	switch g := s.game.(type) {
	case *blackjack.Game:
		if g.Phase != blackjack.PlayerTurn {
			return step{}, nil
		}
		if err := g.Apply(blackjack.Stand); err != nil {
			return step{}, err
		}
		st := blackjackSettlement(g, step{})
		st.event = "timeout: " + st.event
		return st, nil
	case *wordchain.Game:
		if g.Status == models.StatusWaiting {
			refunds := g.CloseJoin(now)
			if g.Status == models.StatusCancelled {
				return step{entries: refunds, event: "cancelled"}, nil
			}
			return step{event: "started"}, nil
		}
		out, entries := g.Timeout(now)
		if out == "" {
			return step{}, nil
		}
		st := step{entries: entries, event: "eliminated", detail: out}
		if g.Status == models.StatusCompleted {
			st.event = "completed"
			st.stats = wordChainStats(g)
		}
		return st, nil
	case *hotpotato.Game:
		entries := g.Timeout(now)
		if entries == nil {
			return step{}, nil
		}
		return step{entries: entries, event: "exploded", stats: hotPotatoStats(g, entries)}, nil
	}
	return step{}, nil
}

// abandon ends a session evicted for inactivity
func (m *Manager) abandon(s *session, now time.Time) (step, error) {
	switch g := s.game.(type) {
	case *blackjack.Game:
		return m.expire(s, now)
	case *wordchain.Game:
		return step{entries: g.Abort(), event: "abandoned"}, nil
	case *hotpotato.Game:
		return step{entries: g.Abort(), event: "abandoned"}, nil
	case *treasurehunt.Game:
		g.Status = models.StatusCancelled
		return step{event: "abandoned"}, nil
	}
	return step{}, nil
}
