// Package games holds the pieces shared by every wager resolver and
// turn-based game.
package games

import (
	"math/rand"
	"sync"
	"time"
)

// RNG is the randomness a resolver consumes. *rand.Rand satisfies it, and
// tests pass scripted sources to pin outcomes.
type RNG interface {
	Intn(n int) int
	Float64() float64
}

// lockedRand makes a *rand.Rand safe to share across goroutines
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRNG returns a goroutine-safe source seeded from the clock
func NewRNG() RNG {
	return NewSeededRNG(time.Now().UnixNano())
}

// NewSeededRNG returns a goroutine-safe source with a fixed seed
func NewSeededRNG(seed int64) RNG {
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

// Scripted replays fixed values. Intn values are reduced modulo n. It panics
// when a sequence runs dry so a test notices extra draws.
type Scripted struct {
	Ints   []int
	Floats []float64
}

func (s *Scripted) Intn(n int) int {
	if len(s.Ints) == 0 {
		panic("games: scripted Intn exhausted")
	}
	v := s.Ints[0]
	s.Ints = s.Ints[1:]
	return ((v % n) + n) % n
}

func (s *Scripted) Float64() float64 {
	if len(s.Floats) == 0 {
		panic("games: scripted Float64 exhausted")
	}
	v := s.Floats[0]
	s.Floats = s.Floats[1:]
	return v
}

// Payout returns floor(bet * multiplier). Multipliers are total return, so a
// 2x win on 100 pays 200 including the stake.
func Payout(bet int64, multiplier float64) int64 {
	if bet <= 0 || multiplier <= 0 {
		return 0
	}
	return int64(float64(bet) * multiplier)
}

// Outcome is what every wager resolver reports back to the casino
type Outcome struct {
	Win        bool
	Multiplier float64
	Details    map[string]any
}
