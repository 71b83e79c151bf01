// Package treasurehunt is a single-player grid walk. The grid is seeded once
// with hidden treasures, traps, clues and monsters; each cell is revealed on
// the first visit and stays revealed.
package treasurehunt

import (
	"fmt"
	"strings"
	"time"

	"econbot/config"
	"econbot/games"
	"econbot/models"
)

// CellKind is what a cell hides
type CellKind string

const (
	Empty    CellKind = "empty"
	Treasure CellKind = "treasure"
	Trap     CellKind = "trap"
	Clue     CellKind = "clue"
	Monster  CellKind = "monster"
)

// Cell is one square of the grid
type Cell struct {
	Kind     CellKind `json:"kind"`
	Revealed bool     `json:"revealed"`
}

// Direction is a single-step move
type Direction string

const (
	North Direction = "n"
	South Direction = "s"
	East  Direction = "e"
	West  Direction = "w"
)

// ParseDirection accepts n/s/e/w or the full word
func ParseDirection(s string) (Direction, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", fmt.Errorf("%w: missing direction", models.ErrInvalidState)
	}
	switch Direction(s[:1]) {
	case North, South, East, West:
		return Direction(s[:1]), nil
	}
	return "", fmt.Errorf("%w: unknown direction %q", models.ErrInvalidState, s)
}

// Game is the persisted hunt state
type Game struct {
	ID              string            `json:"id"`
	PlayerID        string            `json:"player_id"`
	Status          models.GameStatus `json:"status"`
	Size            int               `json:"size"`
	Cells           []Cell            `json:"cells"`
	Row             int               `json:"row"`
	Col             int               `json:"col"`
	Treasures       int               `json:"treasures"`
	Found           int               `json:"found"`
	Moves           int               `json:"moves"`
	TreasureReward  int64             `json:"treasure_reward"`
	TrapPenalty     int64             `json:"trap_penalty"`
	MonsterPenalty  int64             `json:"monster_penalty"`
	CompletionBonus int64             `json:"completion_bonus"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// New seeds a grid. The player starts in the top-left corner, which is
// always empty and revealed.
func New(id, playerID string, preset config.TreasureHuntPreset, rng games.RNG, now time.Time) (*Game, error) {
	n := preset.GridSize
	hidden := preset.Treasures + preset.Traps + preset.Clues + preset.Monsters
	if n < 2 || hidden > n*n-1 || preset.Treasures < 1 {
		return nil, fmt.Errorf("%w: grid %dx%d cannot hold %d items", models.ErrInvalidState, n, n, hidden)
	}
	g := &Game{
		ID:              id,
		PlayerID:        playerID,
		Status:          models.StatusInProgress,
		Size:            n,
		Cells:           make([]Cell, n*n),
		Treasures:       preset.Treasures,
		TreasureReward:  preset.TreasureReward,
		TrapPenalty:     preset.TrapPenalty,
		MonsterPenalty:  preset.MonsterPenalty,
		CompletionBonus: preset.CompletionBonus,
		UpdatedAt:       now,
	}
	for i := range g.Cells {
		g.Cells[i].Kind = Empty
	}
	g.Cells[0].Revealed = true

	// partial Fisher-Yates over every cell except the start
	free := make([]int, 0, n*n-1)
	for i := 1; i < n*n; i++ {
		free = append(free, i)
	}
	place := func(kind CellKind, count int) {
		for k := 0; k < count; k++ {
			j := rng.Intn(len(free))
			g.Cells[free[j]].Kind = kind
			free[j] = free[len(free)-1]
			free = free[:len(free)-1]
		}
	}
	place(Treasure, preset.Treasures)
	place(Trap, preset.Traps)
	place(Clue, preset.Clues)
	place(Monster, preset.Monsters)
	return g, nil
}

func (g *Game) cell(row, col int) *Cell {
	return &g.Cells[row*g.Size+col]
}

// MoveResult describes one step
type MoveResult struct {
	Kind       CellKind      `json:"kind"`
	FirstVisit bool          `json:"first_visit"`
	Distance   int           `json:"distance,omitempty"`
	Completed  bool          `json:"completed"`
	Entries    []games.Entry `json:"-"`
}

// Move walks one cell. Stepping off the grid is rejected without using a
// move. The returned entries are the rewards and penalties the step owes.
func (g *Game) Move(playerID string, dir Direction, now time.Time) (MoveResult, error) {
	if g.Status != models.StatusInProgress {
		return MoveResult{}, fmt.Errorf("%w: hunt is %s", models.ErrInvalidState, g.Status)
	}
	if playerID != g.PlayerID {
		return MoveResult{}, fmt.Errorf("%w: this is not your hunt", models.ErrNotAuthorized)
	}
	row, col := g.Row, g.Col
	switch dir {
	case North:
		row--
	case South:
		row++
	case East:
		col++
	case West:
		col--
	default:
		return MoveResult{}, fmt.Errorf("%w: unknown direction %q", models.ErrInvalidState, dir)
	}
	if row < 0 || col < 0 || row >= g.Size || col >= g.Size {
		return MoveResult{}, fmt.Errorf("%w: that way is the edge of the map", models.ErrInvalidState)
	}

	g.Row, g.Col = row, col
	g.Moves++
	g.UpdatedAt = now
	c := g.cell(row, col)
	res := MoveResult{Kind: c.Kind, FirstVisit: !c.Revealed}
	if c.Revealed {
		return res, nil
	}
	c.Revealed = true

	switch c.Kind {
	case Treasure:
		g.Found++
		res.Entries = append(res.Entries, games.Credit(g.PlayerID, g.TreasureReward, "treasure"))
		if g.Found == g.Treasures {
			g.Status = models.StatusCompleted
			res.Completed = true
			res.Entries = append(res.Entries, games.Credit(g.PlayerID, g.CompletionBonus, "treasure hunt completed"))
		}
	case Trap:
		res.Entries = append(res.Entries, games.Debit(g.PlayerID, g.TrapPenalty, "trap"))
	case Monster:
		res.Entries = append(res.Entries, games.Debit(g.PlayerID, g.MonsterPenalty, "monster"))
	case Clue:
		res.Distance = g.NearestTreasure()
	}
	return res, nil
}

// NearestTreasure is the Manhattan distance to the closest unfound treasure,
// or -1 when none are left.
func (g *Game) NearestTreasure() int {
	best := -1
	for i, c := range g.Cells {
		if c.Kind != Treasure || c.Revealed {
			continue
		}
		d := abs(i/g.Size-g.Row) + abs(i%g.Size-g.Col)
		if best < 0 || d < best {
			best = d
		}
	}
	return best
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Render draws the revealed grid with the player marked
func (g *Game) Render() string {
	icons := map[CellKind]string{Empty: "⬜", Treasure: "💰", Trap: "🕳️", Clue: "📜", Monster: "👹"}
	var b strings.Builder
	for r := 0; r < g.Size; r++ {
		for c := 0; c < g.Size; c++ {
			cell := g.cell(r, c)
			switch {
			case r == g.Row && c == g.Col:
				b.WriteString("🧭")
			case cell.Revealed:
				b.WriteString(icons[cell.Kind])
			default:
				b.WriteString("⬛")
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
