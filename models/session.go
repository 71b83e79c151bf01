package models

import "time"

// GameStatus represents the shared lifecycle of a turn-based game
type GameStatus string

const (
	StatusCreated    GameStatus = "created"
	StatusWaiting    GameStatus = "waiting"
	StatusInProgress GameStatus = "in_progress"
	StatusResolving  GameStatus = "resolving"
	StatusSettled    GameStatus = "settled"
	StatusCompleted  GameStatus = "completed"
	StatusCancelled  GameStatus = "cancelled"
)

// IsTerminal reports whether the status ends a session
func (s GameStatus) IsTerminal() bool {
	return s == StatusSettled || s == StatusCompleted || s == StatusCancelled
}

// PersistedSession is the durable snapshot of a game that must survive restarts
type PersistedSession struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	State     []byte    `json:"state"`
	UpdatedAt time.Time `json:"updated_at"`
}
