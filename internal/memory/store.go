// Package memory keeps the per-user memory bundle: profile, goals,
// obligations and a bounded conversation history.
package memory

import (
	"sync"

	"dompet/internal/core"
)

// DefaultHistoryLimit is the number of most recent turns kept per user.
const DefaultHistoryLimit = 20

// Update carries the structured fields to reconcile into a bundle. A nil
// field leaves the stored value untouched.
type Update struct {
	Profile     *core.UserProfile
	Goals       []core.FinancialGoal
	Obligations []core.Obligation
}

// IsEmpty reports whether the update would change nothing.
func (u Update) IsEmpty() bool {
	return u.Profile == nil && len(u.Goals) == 0 && len(u.Obligations) == 0
}

// Store is a concurrency-safe map from user id to memory bundle. All reads
// and writes go through one mutex and return snapshots, never the stored
// value itself.
type Store struct {
	mu           sync.Mutex
	memories     map[string]*core.UserMemory
	historyLimit int
}

func NewStore() *Store {
	return NewStoreWithLimit(DefaultHistoryLimit)
}

// NewStoreWithLimit creates a store keeping at most limit turns per user.
// A non-positive limit falls back to DefaultHistoryLimit.
func NewStoreWithLimit(limit int) *Store {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &Store{
		memories:     make(map[string]*core.UserMemory),
		historyLimit: limit,
	}
}

// Get returns the bundle for the user, creating an empty one on first access.
func (s *Store) Get(userID string) core.UserMemory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(userID).Clone()
}

// Update merges goals and obligations by identity and replaces the profile
// wholesale when one is given.
func (s *Store) Update(userID string, u Update) core.UserMemory {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.load(userID)
	if u.Profile != nil {
		p := u.Profile.Clone()
		m.Profile = &p
	}
	if u.Goals != nil {
		m.Goals = mergeByKey(m.Goals, cloneAll(u.Goals, core.FinancialGoal.Clone), core.FinancialGoal.Key)
	}
	if u.Obligations != nil {
		m.Obligations = mergeByKey(m.Obligations, cloneAll(u.Obligations, core.Obligation.Clone), core.Obligation.Key)
	}
	return m.Clone()
}

// AppendTurn adds a turn to the history and drops the oldest entries beyond
// the limit.
func (s *Store) AppendTurn(userID string, turn core.ConversationTurn) core.UserMemory {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.load(userID)
	history := append(m.ConversationHistory, turn)
	if over := len(history) - s.historyLimit; over > 0 {
		// Copy into a fresh slice so the dropped prefix can be collected.
		history = append([]core.ConversationTurn(nil), history[over:]...)
	}
	m.ConversationHistory = history
	return m.Clone()
}

// Len returns the number of users with a bundle.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.memories)
}

// load must be called with s.mu held.
func (s *Store) load(userID string) *core.UserMemory {
	m, ok := s.memories[userID]
	if !ok {
		fresh := core.NewUserMemory(userID)
		m = &fresh
		s.memories[userID] = m
	}
	return m
}

// mergeByKey rebuilds a collection keyed by identity: existing entries seed
// the map, incoming entries overwrite it. Order is the insertion order of the
// rebuilt map, so a replaced entry keeps its original position and new
// identities follow in input order.
func mergeByKey[T any](existing, incoming []T, key func(T) string) []T {
	index := make(map[string]int, len(existing)+len(incoming))
	out := make([]T, 0, len(existing)+len(incoming))
	for _, items := range [][]T{existing, incoming} {
		for _, item := range items {
			k := key(item)
			if i, ok := index[k]; ok {
				out[i] = item
				continue
			}
			index[k] = len(out)
			out = append(out, item)
		}
	}
	return out
}

func cloneAll[T any](items []T, clone func(T) T) []T {
	out := make([]T, len(items))
	for i, item := range items {
		out[i] = clone(item)
	}
	return out
}
