// Package hotpotato is the pass-the-potato game. Each pass past the minimum
// raises the chance the potato explodes in the new holder's hands.
package hotpotato

import (
	"fmt"
	"slices"
	"time"

	"econbot/config"
	"econbot/games"
	"econbot/models"
)

// Game is the live hot-potato state
type Game struct {
	ID           string            `json:"id"`
	ChannelID    string            `json:"channel_id"`
	Status       models.GameStatus `json:"status"`
	Players      []string          `json:"players"`
	Holder       string            `json:"holder"`
	Passes       int               `json:"passes"`
	Passers      []string          `json:"passers"`
	Pot          int64             `json:"pot"`
	EntryFee     int64             `json:"entry_fee"`
	MinPlayers   int               `json:"min_players"`
	MaxPlayers   int               `json:"max_players"`
	MinPasses    int               `json:"min_passes"`
	MaxPasses    int               `json:"max_passes"`
	Penalty      int64             `json:"penalty"`
	HoldTimeout  time.Duration     `json:"hold_timeout"`
	HoldDeadline time.Time         `json:"hold_deadline"`
	Loser        string            `json:"loser,omitempty"`
}

// New opens a game waiting for players
func New(id, channelID string, preset config.HotPotatoPreset) *Game {
	return &Game{
		ID:          id,
		ChannelID:   channelID,
		Status:      models.StatusWaiting,
		EntryFee:    preset.EntryFee,
		MinPlayers:  preset.MinPlayers,
		MaxPlayers:  preset.MaxPlayers,
		MinPasses:   preset.MinPasses,
		MaxPasses:   preset.MaxPasses,
		Penalty:     preset.Penalty,
		HoldTimeout: preset.HoldTimeout,
	}
}

// Join adds a player and their entry fee to the pot
func (g *Game) Join(playerID string) error {
	if g.Status != models.StatusWaiting {
		return fmt.Errorf("%w: game is %s", models.ErrInvalidState, g.Status)
	}
	if slices.Contains(g.Players, playerID) {
		return fmt.Errorf("%w: already joined", models.ErrInvalidState)
	}
	if len(g.Players) >= g.MaxPlayers {
		return fmt.Errorf("%w: game is full", models.ErrInvalidState)
	}
	g.Players = append(g.Players, playerID)
	g.Pot += g.EntryFee
	return nil
}

// Start hands the potato to the first player. Only the first player may
// start the game.
func (g *Game) Start(actorID string, now time.Time) error {
	if g.Status != models.StatusWaiting {
		return fmt.Errorf("%w: game is %s", models.ErrInvalidState, g.Status)
	}
	if len(g.Players) == 0 || g.Players[0] != actorID {
		return fmt.Errorf("%w: only the host can start", models.ErrNotAuthorized)
	}
	if len(g.Players) < g.MinPlayers {
		return fmt.Errorf("%w: need at least %d players", models.ErrInvalidState, g.MinPlayers)
	}
	g.Status = models.StatusInProgress
	g.Holder = g.Players[0]
	g.HoldDeadline = now.Add(g.HoldTimeout)
	return nil
}

// ExplosionChance is zero below the minimum pass count, climbs linearly, and
// reaches one at the maximum.
func ExplosionChance(passes, minPasses, maxPasses int) float64 {
	if passes < minPasses {
		return 0
	}
	if passes >= maxPasses {
		return 1
	}
	return float64(passes-minPasses+1) / float64(maxPasses-minPasses+1)
}

// PassResult reports what happened after a pass
type PassResult struct {
	Passes   int           `json:"passes"`
	Holder   string        `json:"holder"`
	Chance   float64       `json:"chance"`
	Exploded bool          `json:"exploded"`
	Entries  []games.Entry `json:"-"`
}

// Pass hands the potato from the holder to another player, then rolls for
// an explosion.
func (g *Game) Pass(rng games.RNG, from, to string, now time.Time) (PassResult, error) {
	if g.Status != models.StatusInProgress {
		return PassResult{}, fmt.Errorf("%w: game is %s", models.ErrInvalidState, g.Status)
	}
	if from != g.Holder {
		return PassResult{}, fmt.Errorf("%w: only the holder can pass", models.ErrNotAuthorized)
	}
	if to == from {
		return PassResult{}, fmt.Errorf("%w: cannot pass to yourself", models.ErrInvalidState)
	}
	if !slices.Contains(g.Players, to) {
		return PassResult{}, fmt.Errorf("%w: %s is not playing", models.ErrNotFound, to)
	}

	g.Passes++
	if !slices.Contains(g.Passers, from) {
		g.Passers = append(g.Passers, from)
	}
	g.Holder = to
	g.HoldDeadline = now.Add(g.HoldTimeout)

	res := PassResult{Passes: g.Passes, Holder: to, Chance: ExplosionChance(g.Passes, g.MinPasses, g.MaxPasses)}
	if res.Chance >= 1 || (res.Chance > 0 && rng.Float64() < res.Chance) {
		res.Exploded = true
		res.Entries = g.explode()
	}
	return res, nil
}

// Timeout explodes the potato on a holder who sat on it past the deadline
func (g *Game) Timeout(now time.Time) []games.Entry {
	if g.Status != models.StatusInProgress || now.Before(g.HoldDeadline) {
		return nil
	}
	return g.explode()
}

// explode charges the holder the penalty and splits the pot evenly among
// earlier passers other than the holder; the first of them keeps any
// remainder.
func (g *Game) explode() []games.Entry {
	g.Status = models.StatusCompleted
	g.Loser = g.Holder
	entries := []games.Entry{games.Debit(g.Holder, g.Penalty, "hot potato exploded")}

	var winners []string
	for _, p := range g.Passers {
		if p != g.Holder {
			winners = append(winners, p)
		}
	}
	if len(winners) == 0 {
		for _, p := range g.Players {
			if p != g.Holder {
				winners = append(winners, p)
			}
		}
	}
	if len(winners) == 0 || g.Pot == 0 {
		return entries
	}
	share := g.Pot / int64(len(winners))
	rem := g.Pot - share*int64(len(winners))
	for i, w := range winners {
		amt := share
		if i == 0 {
			amt += rem
		}
		if amt > 0 {
			entries = append(entries, games.Credit(w, amt, "hot potato share"))
		}
	}
	g.Pot = 0
	return entries
}

// Cancel ends a game that never started and refunds every entry fee
func (g *Game) Cancel() ([]games.Entry, error) {
	if g.Status != models.StatusWaiting {
		return nil, fmt.Errorf("%w: game is %s", models.ErrInvalidState, g.Status)
	}
	g.Status = models.StatusCancelled
	refunds := make([]games.Entry, 0, len(g.Players))
	for _, p := range g.Players {
		refunds = append(refunds, games.Refund(p, g.EntryFee, "hot potato refund"))
	}
	g.Pot = 0
	return refunds, nil
}

// Abort cancels an unfinished game, started or not, and refunds every
// entry fee.
func (g *Game) Abort() []games.Entry {
	if g.Status.IsTerminal() {
		return nil
	}
	g.Status = models.StatusWaiting
	refunds, _ := g.Cancel()
	g.Holder = ""
	return refunds
}
