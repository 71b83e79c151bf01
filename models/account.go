package models

import (
	"math"
	"time"
)

// Account represents a player's persistent economy record
type Account struct {
	ID             string     `json:"id"`
	Balance        int64      `json:"balance"`
	BankBalance    int64      `json:"bank_balance"`
	Experience     int64      `json:"experience"`
	GamesPlayed    int64      `json:"games_played"`
	GamesWon       int64      `json:"games_won"`
	TotalWagered   int64      `json:"total_wagered"`
	TotalWon       int64      `json:"total_won"`
	LastDailyClaim *time.Time `json:"last_daily_claim,omitempty"`
	LastWorked     *time.Time `json:"last_worked,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// AccountPatch is a typed partial update for an account. Nil fields are left
// untouched; increments are added to the current value. Balances only move
// through the ledger, so they have no patch fields.
type AccountPatch struct {
	ExperienceIncrement   int64
	GamesPlayedIncrement  int64
	GamesWonIncrement     int64
	TotalWageredIncrement int64
	TotalWonIncrement     int64
	LastDailyClaim        *time.Time
	LastWorked            *time.Time
}

// IsZero reports whether applying the patch would change nothing
func (p AccountPatch) IsZero() bool {
	return p.ExperienceIncrement == 0 &&
		p.GamesPlayedIncrement == 0 &&
		p.GamesWonIncrement == 0 &&
		p.TotalWageredIncrement == 0 &&
		p.TotalWonIncrement == 0 &&
		p.LastDailyClaim == nil &&
		p.LastWorked == nil
}

// LevelForExperience returns 1 + floor(sqrt(xp/100))
func LevelForExperience(xp int64) int {
	if xp <= 0 {
		return 1
	}
	level := 1 + int(math.Sqrt(float64(xp)/100))
	// float sqrt can land one off at perfect squares
	for level > 1 && int64(level-1)*int64(level-1)*100 > xp {
		level--
	}
	for int64(level)*int64(level)*100 <= xp {
		level++
	}
	return level
}

// ExperienceForLevel returns the minimum experience needed to reach level
func ExperienceForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	n := int64(level - 1)
	return n * n * 100
}

// Level returns the account's derived level
func (a *Account) Level() int {
	return LevelForExperience(a.Experience)
}

// XPToNextLevel returns how much experience is missing for the next level
func (a *Account) XPToNextLevel() int64 {
	return ExperienceForLevel(a.Level()+1) - a.Experience
}

// WinRate calculates the account's win rate as a percentage
func (a *Account) WinRate() float64 {
	if a.GamesPlayed == 0 {
		return 0.0
	}
	return (float64(a.GamesWon) / float64(a.GamesPlayed)) * 100
}

// CanAffordBet checks if the wallet covers a bet
func (a *Account) CanAffordBet(amount int64) bool {
	return a.Balance >= amount
}

// NetWorth is wallet plus bank
func (a *Account) NetWorth() int64 {
	return a.Balance + a.BankBalance
}

// ExperienceResult is returned by experience deltas
type ExperienceResult struct {
	NewExperience int64
	NewLevel      int
	LeveledUp     bool
}
