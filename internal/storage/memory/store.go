// Package memory provides in-memory stores for tests and single-process
// deployments that do not need durability.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/dealsense/negotiator/internal/core/domain"
	"github.com/dealsense/negotiator/internal/core/ports"
)

// Store keeps sessions and outcome records in process memory. All
// methods are safe for concurrent use; stored sessions are deep-copied
// on both write and read so callers never share state with the store.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
	outcomes []*domain.OutcomeRecord
}

var (
	_ ports.SessionStore = (*Store)(nil)
	_ ports.OutcomeStore = (*Store)(nil)
)

// New creates an empty store.
func New() *Store {
	return &Store{sessions: make(map[string]*domain.Session)}
}

// SaveSession implements ports.SessionStore.
func (s *Store) SaveSession(ctx context.Context, session *domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session.Clone()
	return nil
}

// LoadSession implements ports.SessionStore.
func (s *Store) LoadSession(ctx context.Context, id string) (*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound(id)
	}
	return session.Clone(), nil
}

// ListSessions implements ports.SessionStore. Results are ordered by
// creation time, newest first.
func (s *Store) ListSessions(ctx context.Context, opts ports.ListOptions) ([]*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Session
	for _, session := range s.sessions {
		if opts.Status != "" && string(session.Status) != opts.Status {
			continue
		}
		out = append(out, session.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}

// AppendOutcome implements ports.OutcomeStore.
func (s *Store) AppendOutcome(ctx context.Context, record *domain.OutcomeRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *record
	cp.TacticsUsed = append([]domain.Tactic(nil), record.TacticsUsed...)
	if record.FinalPrice != nil {
		v := *record.FinalPrice
		cp.FinalPrice = &v
	}
	s.outcomes = append(s.outcomes, &cp)
	return nil
}

// ListOutcomes implements ports.OutcomeStore. Empty category or
// approach matches everything.
func (s *Store) ListOutcomes(ctx context.Context, category string, approach domain.Approach) ([]*domain.OutcomeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.OutcomeRecord
	for _, rec := range s.outcomes {
		if category != "" && rec.Category != category {
			continue
		}
		if approach != "" && rec.Approach != approach {
			continue
		}
		cp := *rec
		out = append(out, &cp)
	}
	return out, nil
}

// CountOutcomes implements ports.OutcomeStore.
func (s *Store) CountOutcomes(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.outcomes), nil
}

// PruneOutcomes implements ports.OutcomeStore. It drops the oldest
// records until at most keep remain.
func (s *Store) PruneOutcomes(ctx context.Context, keep int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if keep < 0 {
		keep = 0
	}
	if excess := len(s.outcomes) - keep; excess > 0 {
		s.outcomes = append([]*domain.OutcomeRecord(nil), s.outcomes[excess:]...)
	}
	return nil
}

// Close implements ports.SessionStore.
func (s *Store) Close() error { return nil }
