package ports

import (
	"context"

	"github.com/dealsense/negotiator/internal/core/domain"
)

// SessionStore persists negotiation sessions.
// Implementations: SQLite (default), in-memory.
type SessionStore interface {
	SaveSession(ctx context.Context, session *domain.Session) error
	LoadSession(ctx context.Context, id string) (*domain.Session, error)
	ListSessions(ctx context.Context, opts ListOptions) ([]*domain.Session, error)
	Close() error
}

// OutcomeStore persists the append-only, size-capped learning log.
type OutcomeStore interface {
	AppendOutcome(ctx context.Context, record *domain.OutcomeRecord) error
	ListOutcomes(ctx context.Context, category string, approach domain.Approach) ([]*domain.OutcomeRecord, error)
	CountOutcomes(ctx context.Context) (int, error)
	PruneOutcomes(ctx context.Context, keep int) error
}

// ListOptions controls session listing.
type ListOptions struct {
	Status string
	Limit  int
	Offset int
}
