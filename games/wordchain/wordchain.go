// Package wordchain is the multiplayer word-chain game. Players join during
// a waiting window, then take turns naming a word that starts with the last
// letter of the previous word. Missing a turn eliminates the player; the last
// one standing takes the pot.
package wordchain

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"econbot/config"
	"econbot/games"
	"econbot/models"
)

// Player is a participant in turn order
type Player struct {
	ID         string `json:"id"`
	Eliminated bool   `json:"eliminated"`
}

// Game is the persisted word-chain state. Every field is exported so the
// session store can snapshot it as JSON.
type Game struct {
	ID            string            `json:"id"`
	ChannelID     string            `json:"channel_id"`
	Status        models.GameStatus `json:"status"`
	Players       []Player          `json:"players"`
	Turn          int               `json:"turn"`
	LastWord      string            `json:"last_word"`
	Used          map[string]bool   `json:"used"`
	Pot           int64             `json:"pot"`
	EntryFee      int64             `json:"entry_fee"`
	MinPlayers    int               `json:"min_players"`
	MaxPlayers    int               `json:"max_players"`
	MinWordLength int               `json:"min_word_length"`
	TurnTimeout   time.Duration     `json:"turn_timeout"`
	JoinDeadline  time.Time         `json:"join_deadline"`
	TurnDeadline  time.Time         `json:"turn_deadline"`
	Winner        string            `json:"winner,omitempty"`
}

// New opens a game in the waiting state. turnTimeout is clamped to the
// preset bounds; zero picks the preset default.
func New(id, channelID string, preset config.WordChainPreset, turnTimeout time.Duration, now time.Time) *Game {
	minLen := preset.MinWordLength
	if minLen < 2 {
		minLen = 2
	}
	return &Game{
		ID:            id,
		ChannelID:     channelID,
		Status:        models.StatusWaiting,
		Used:          make(map[string]bool),
		EntryFee:      preset.EntryFee,
		MinPlayers:    preset.MinPlayers,
		MaxPlayers:    preset.MaxPlayers,
		MinWordLength: minLen,
		TurnTimeout:   preset.ClampTurnTimeout(turnTimeout),
		JoinDeadline:  now.Add(preset.JoinWindow),
	}
}

// Join adds a player and their entry fee to the pot. It reports whether the
// table is now full, in which case the caller starts the game.
func (g *Game) Join(playerID string) (bool, error) {
	if g.Status != models.StatusWaiting {
		return false, fmt.Errorf("%w: game is %s", models.ErrInvalidState, g.Status)
	}
	if g.hasPlayer(playerID) {
		return false, fmt.Errorf("%w: already joined", models.ErrInvalidState)
	}
	if len(g.Players) >= g.MaxPlayers {
		return false, fmt.Errorf("%w: game is full", models.ErrInvalidState)
	}
	g.Players = append(g.Players, Player{ID: playerID})
	g.Pot += g.EntryFee
	return len(g.Players) >= g.MaxPlayers, nil
}

func (g *Game) hasPlayer(id string) bool {
	for _, p := range g.Players {
		if p.ID == id {
			return true
		}
	}
	return false
}

// CloseJoin ends the waiting window. With enough players the first turn
// starts; otherwise the game is cancelled and the entries returned carry the
// refunds.
func (g *Game) CloseJoin(now time.Time) []games.Entry {
	if g.Status != models.StatusWaiting {
		return nil
	}
	if len(g.Players) < g.MinPlayers {
		g.Status = models.StatusCancelled
		refunds := make([]games.Entry, 0, len(g.Players))
		for _, p := range g.Players {
			refunds = append(refunds, games.Refund(p.ID, g.EntryFee, "word chain refund"))
		}
		g.Pot = 0
		return refunds
	}
	g.Status = models.StatusInProgress
	g.Turn = 0
	g.TurnDeadline = now.Add(g.TurnTimeout)
	return nil
}

// Current is the player whose turn it is
func (g *Game) Current() string {
	if g.Status != models.StatusInProgress {
		return ""
	}
	return g.Players[g.Turn].ID
}

// Alive lists players still in the game, in turn order
func (g *Game) Alive() []string {
	var out []string
	for _, p := range g.Players {
		if !p.Eliminated {
			out = append(out, p.ID)
		}
	}
	return out
}

// Validate checks word against the chain without changing state
func (g *Game) Validate(word string) (string, error) {
	w := strings.ToLower(strings.TrimSpace(word))
	if len([]rune(w)) < g.MinWordLength {
		return "", fmt.Errorf("%w: words need at least %d letters", models.ErrInvalidState, g.MinWordLength)
	}
	for _, r := range w {
		if !unicode.IsLetter(r) {
			return "", fmt.Errorf("%w: %q is not a word", models.ErrInvalidState, word)
		}
	}
	if g.LastWord != "" {
		last := []rune(g.LastWord)
		if []rune(w)[0] != last[len(last)-1] {
			return "", fmt.Errorf("%w: word must start with %q", models.ErrInvalidState, string(last[len(last)-1]))
		}
	}
	if g.Used[w] {
		return "", fmt.Errorf("%w: %q was already played", models.ErrInvalidState, w)
	}
	return w, nil
}

// Play submits a word for the current player. A rejected word leaves the
// turn with the same player.
func (g *Game) Play(playerID, word string, now time.Time) error {
	if g.Status != models.StatusInProgress {
		return fmt.Errorf("%w: game is %s", models.ErrInvalidState, g.Status)
	}
	if playerID != g.Current() {
		return fmt.Errorf("%w: it is not your turn", models.ErrNotAuthorized)
	}
	w, err := g.Validate(word)
	if err != nil {
		return err
	}
	g.Used[w] = true
	g.LastWord = w
	g.advance(now)
	return nil
}

// Timeout eliminates the current player if their turn deadline has passed.
// It returns the eliminated player and, when the game ends, the payout.
func (g *Game) Timeout(now time.Time) (string, []games.Entry) {
	if g.Status != models.StatusInProgress || now.Before(g.TurnDeadline) {
		return "", nil
	}
	out := g.Players[g.Turn].ID
	g.Players[g.Turn].Eliminated = true

	alive := g.Alive()
	if len(alive) == 1 {
		g.Status = models.StatusCompleted
		g.Winner = alive[0]
		pot := g.Pot
		g.Pot = 0
		return out, []games.Entry{games.Credit(g.Winner, pot, "word chain pot")}
	}
	g.advance(now)
	return out, nil
}

func (g *Game) advance(now time.Time) {
	for i := 1; i <= len(g.Players); i++ {
		next := (g.Turn + i) % len(g.Players)
		if !g.Players[next].Eliminated {
			g.Turn = next
			break
		}
	}
	g.TurnDeadline = now.Add(g.TurnTimeout)
}

// Abort cancels an unfinished game and refunds every entry fee
func (g *Game) Abort() []games.Entry {
	if g.Status.IsTerminal() {
		return nil
	}
	g.Status = models.StatusCancelled
	refunds := make([]games.Entry, 0, len(g.Players))
	for _, p := range g.Players {
		refunds = append(refunds, games.Refund(p.ID, g.EntryFee, "word chain refund"))
	}
	g.Pot = 0
	return refunds
}
