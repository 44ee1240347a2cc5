// Package direct provides an in-process event publisher that writes
// session events to the structured log. It is the default for
// single-instance deployments and for tests; the websocket hub layers
// live delivery on top of it.
package direct

import (
	"context"
	"log/slog"

	"github.com/dealsense/negotiator/internal/core/ports"
)

// Publisher logs every event it is asked to deliver.
type Publisher struct {
	logger *slog.Logger
}

var _ ports.Publisher = (*Publisher)(nil)

// NewPublisher creates a log-backed publisher.
func NewPublisher(logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{logger: logger}
}

// Publish implements ports.Publisher.
func (p *Publisher) Publish(ctx context.Context, sessionID string, channel ports.Channel, event ports.Event) error {
	p.logger.InfoContext(ctx, "session event",
		slog.String("session_id", sessionID),
		slog.String("channel", string(channel)),
		slog.String("type", event.Type))
	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error { return nil }

// Fanout delivers each event to every wrapped publisher. Errors are
// logged, not returned; event delivery never fails a turn.
type Fanout struct {
	publishers []ports.Publisher
	logger     *slog.Logger
}

var _ ports.Publisher = (*Fanout)(nil)

// NewFanout composes publishers.
func NewFanout(logger *slog.Logger, publishers ...ports.Publisher) *Fanout {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fanout{publishers: publishers, logger: logger}
}

// Publish implements ports.Publisher.
func (f *Fanout) Publish(ctx context.Context, sessionID string, channel ports.Channel, event ports.Event) error {
	for _, p := range f.publishers {
		if err := p.Publish(ctx, sessionID, channel, event); err != nil {
			f.logger.WarnContext(ctx, "event delivery failed",
				slog.String("session_id", sessionID),
				slog.String("channel", string(channel)),
				slog.String("type", event.Type),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

// Close closes every wrapped publisher.
func (f *Fanout) Close() error {
	var firstErr error
	for _, p := range f.publishers {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
