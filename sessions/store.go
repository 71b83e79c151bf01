package sessions

import (
	"sync"
	"time"
)

// Entry is one live session held by a Store
type Entry struct {
	ID        string
	Kind      Kind
	Value     any
	ExpiresAt time.Time
}

// Store keeps live sessions in working memory. Expired entries stay readable
// until Sweep hands them back, so the owner can settle them before they go.
type Store interface {
	Get(id string) (Entry, bool)
	Put(e Entry)
	// PutIfVacant stores e when id is free or already holds e.Value
	PutIfVacant(e Entry) bool
	// CompareAndDelete removes id only while it still holds value
	CompareAndDelete(id string, value any) bool
	// Sweep removes and returns every entry that expired at or before now
	Sweep(now time.Time) []Entry
	Len(kind Kind) int
}

// MemoryStore is the in-process Store
type MemoryStore struct {
	mu            sync.RWMutex
	data          map[string]Entry
	cleanupTicker *time.Ticker
	done          chan struct{}
	closeOnce     sync.Once
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]Entry),
		done: make(chan struct{}),
	}
}

func (s *MemoryStore) Get(id string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[id]
	return e, ok
}

func (s *MemoryStore) Put(e Entry) {
	s.mu.Lock()
	s.data[e.ID] = e
	s.mu.Unlock()
}

func (s *MemoryStore) PutIfVacant(e Entry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.data[e.ID]; ok && cur.Value != e.Value {
		return false
	}
	s.data[e.ID] = e
	return true
}

func (s *MemoryStore) CompareAndDelete(id string, value any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.data[id]; !ok || cur.Value != value {
		return false
	}
	delete(s.data, id)
	return true
}

func (s *MemoryStore) Sweep(now time.Time) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expired []Entry
	for id, e := range s.data {
		if !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt) {
			expired = append(expired, e)
			delete(s.data, id)
		}
	}
	return expired
}

// Len counts live entries of one kind
func (s *MemoryStore) Len(kind Kind) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.data {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Start runs Sweep every interval and hands each expired entry to onExpired
func (s *MemoryStore) Start(interval time.Duration, now func() time.Time, onExpired func(Entry)) {
	s.cleanupTicker = time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-s.cleanupTicker.C:
				for _, e := range s.Sweep(now()) {
					onExpired(e)
				}
			case <-s.done:
				return
			}
		}
	}()
}

// Close stops the cleanup routine
func (s *MemoryStore) Close() {
	s.closeOnce.Do(func() {
		if s.cleanupTicker != nil {
			s.cleanupTicker.Stop()
		}
		close(s.done)
	})
}
