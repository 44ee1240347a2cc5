// Package engine owns the negotiation session lifecycle: creation,
// turn processing, human handoff, and termination. It is the only
// writer of session state; collaborators (scraper, market analyzer,
// composer, stores, publishers) are consumed through ports.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dealsense/negotiator/internal/analytics"
	"github.com/dealsense/negotiator/internal/analyzer"
	"github.com/dealsense/negotiator/internal/composer"
	"github.com/dealsense/negotiator/internal/core/domain"
	"github.com/dealsense/negotiator/internal/core/ports"
	"github.com/dealsense/negotiator/internal/market"
	"github.com/dealsense/negotiator/internal/negotiation"
	"github.com/dealsense/negotiator/internal/storage/memory"
	"github.com/dealsense/negotiator/internal/strategy"
)

// Policy bundles the tunable negotiation knobs.
type Policy struct {
	CounterMargin int
	Intervention  negotiation.InterventionPolicy
	Completion    negotiation.CompletionPolicy
}

func (p Policy) withDefaults() Policy {
	if p.CounterMargin <= 0 {
		p.CounterMargin = 1000
	}
	if p.Intervention.DeadlockMessageCount <= 0 {
		p.Intervention = negotiation.DefaultInterventionPolicy()
	}
	if p.Completion.MessageBudget <= 0 {
		p.Completion = negotiation.DefaultCompletionPolicy()
	}
	return p
}

// sessionState is the engine's in-memory handle for one session.
//
// mu is held for the full duration of a turn; a second turn arriving
// while it is held is rejected, never queued. version fences turns
// against EndSession: EndSession bumps it and cancels the in-flight
// turn context before blocking on mu, so a turn that was mid-compose
// discards its result instead of resurrecting an ended session.
//
// cur holds the last committed session. It is replaced wholesale at
// commit and never mutated in place, so snapshots read it without
// waiting out an in-flight turn.
type sessionState struct {
	mu      sync.Mutex
	version atomic.Int64

	cancelMu   sync.Mutex
	cancelTurn context.CancelFunc

	cur atomic.Pointer[domain.Session]
}

func (st *sessionState) current() *domain.Session { return st.cur.Load() }

func (st *sessionState) setCancel(cancel context.CancelFunc) {
	st.cancelMu.Lock()
	st.cancelTurn = cancel
	st.cancelMu.Unlock()
}

func (st *sessionState) interrupt() {
	st.cancelMu.Lock()
	if st.cancelTurn != nil {
		st.cancelTurn()
	}
	st.cancelMu.Unlock()
}

// Engine is the session lifecycle manager.
type Engine struct {
	mu       sync.RWMutex
	sessions map[string]*sessionState

	store     ports.SessionStore
	analytics *analytics.Recorder
	scraper   ports.Scraper
	market    ports.MarketAnalyzer
	composer  ports.TextComposer
	publisher ports.Publisher
	analyzer  *analyzer.Analyzer
	tactics   *negotiation.TacticSelector

	policy          Policy
	composerTimeout time.Duration

	logger *slog.Logger
	tracer trace.Tracer
	clock  func() time.Time
}

// New builds an engine with defaults suitable for tests: in-memory
// store, heuristic market analyzer, template composer, no publisher.
func New(opts ...Option) *Engine {
	e := &Engine{
		sessions:        make(map[string]*sessionState),
		store:           memory.New(),
		market:          market.New(),
		composer:        composer.New(),
		publisher:       noopPublisher{},
		analyzer:        analyzer.New(),
		tactics:         negotiation.NewTacticSelector(nil),
		policy:          Policy{}.withDefaults(),
		composerTimeout: 10 * time.Second,
		logger:          slog.Default(),
		tracer:          otel.Tracer("negotiator/engine"),
		clock:           time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateSessionRequest carries session creation input. Either Product
// or ProductURL must be set; a URL requires a configured scraper.
type CreateSessionRequest struct {
	ProductURL string
	Product    *domain.ProductData
	Params     domain.NegotiationParams
}

// CreateSession validates input, resolves product data, formulates the
// strategy, and registers the session in initializing state.
func (e *Engine) CreateSession(ctx context.Context, req CreateSessionRequest) (*domain.Session, error) {
	ctx, span := e.tracer.Start(ctx, "engine.CreateSession")
	defer span.End()

	if err := req.Params.Validate(); err != nil {
		return nil, err
	}

	product, err := e.resolveProduct(ctx, req)
	if err != nil {
		return nil, err
	}

	marketView, err := e.market.Analyze(ctx, product, req.Params.TargetPrice, req.Params.MaxBudget)
	if err != nil {
		e.logger.WarnContext(ctx, "market analysis failed, proceeding without",
			slog.String("error", err.Error()))
		marketView = domain.MarketAnalysis{MarketPosition: domain.PositionUnknown, NegotiationPotential: 0.15}
	}

	var rec *domain.Recommendation
	if e.analytics != nil {
		if r, err := e.analytics.Recommend(ctx, product.Category, req.Params.Approach); err == nil {
			rec = &r
		} else {
			e.logger.WarnContext(ctx, "recommendation lookup failed",
				slog.String("error", err.Error()))
		}
	}

	now := e.clock()
	session := &domain.Session{
		ID:        uuid.New().String(),
		Product:   product,
		Params:    req.Params,
		Status:    domain.StatusInitializing,
		Phase:     domain.PhaseOpening,
		Strategy:  strategy.Formulate(product, req.Params, marketView, rec),
		Market:    marketView,
		CreatedAt: now,
	}
	span.SetAttributes(attribute.String("session.id", session.ID))

	if err := e.store.SaveSession(ctx, session); err != nil {
		return nil, domain.ErrTerminal("persist new session").Wrap(err)
	}

	st := &sessionState{}
	st.cur.Store(session)
	e.mu.Lock()
	e.sessions[session.ID] = st
	e.mu.Unlock()

	e.publish(ctx, session.ID, ports.ChannelBuyerMonitor, ports.Event{
		Type:      "session_created",
		SessionID: session.ID,
		Payload:   session.Clone(),
	})
	e.logger.InfoContext(ctx, "session created",
		slog.String("session_id", session.ID),
		slog.String("category", product.Category),
		slog.Int("listed_price", product.Price),
		slog.Int("target_price", req.Params.TargetPrice))

	return session.Clone(), nil
}

func (e *Engine) resolveProduct(ctx context.Context, req CreateSessionRequest) (domain.ProductData, error) {
	if req.Product != nil {
		p := *req.Product
		if p.Price <= 0 {
			return domain.ProductData{}, domain.ErrValidation("product price must be positive")
		}
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		return p, nil
	}
	if req.ProductURL == "" {
		return domain.ProductData{}, domain.ErrValidation("product or product_url required")
	}
	if e.scraper == nil {
		return domain.ProductData{}, domain.ErrValidation("product_url given but no scraper configured")
	}
	product, err := e.scraper.Scrape(ctx, req.ProductURL)
	if err != nil {
		return domain.ProductData{}, err
	}
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	return product, nil
}

// EndSession cancels a session on the user's behalf. It interrupts any
// in-flight turn, waits for it to release the session, and moves the
// session to cancelled. The registry entry is removed; the store keeps
// the record.
func (e *Engine) EndSession(ctx context.Context, id string) (*domain.Session, error) {
	ctx, span := e.tracer.Start(ctx, "engine.EndSession",
		trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	st, err := e.state(id)
	if err != nil {
		return nil, err
	}

	// Fence first, then interrupt: the in-flight turn observes the
	// version bump at commit and discards its result.
	st.version.Add(1)
	st.interrupt()

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.current().Status.Terminal() {
		return nil, domain.ErrConflict("session " + id + " already ended")
	}

	session := st.current().Clone()
	now := e.clock()
	session.Status = domain.StatusCancelled
	session.Outcome = domain.OutcomeUserCancelled
	endedAt := now
	session.EndedAt = &endedAt
	st.cur.Store(session)

	if err := e.store.SaveSession(ctx, session); err != nil {
		e.logger.ErrorContext(ctx, "persist cancelled session failed",
			slog.String("session_id", id),
			slog.String("error", err.Error()))
	}
	e.recordOutcome(ctx, session)
	e.deregister(id)

	e.publish(ctx, id, ports.ChannelBuyerMonitor, ports.Event{
		Type:      "session_ended",
		SessionID: id,
		Payload:   map[string]any{"outcome": session.Outcome},
	})
	e.logger.InfoContext(ctx, "session cancelled", slog.String("session_id", id))

	return session.Clone(), nil
}

// GetSession returns a snapshot. Live sessions come from the registry,
// ended ones from the store. Snapshots read the last committed state
// and never wait for an in-flight turn.
func (e *Engine) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	e.mu.RLock()
	st, ok := e.sessions[id]
	e.mu.RUnlock()
	if ok {
		return st.current().Clone(), nil
	}
	return e.store.LoadSession(ctx, id)
}

// ListSessions lists persisted sessions.
func (e *Engine) ListSessions(ctx context.Context, opts ports.ListOptions) ([]*domain.Session, error) {
	return e.store.ListSessions(ctx, opts)
}

// Close releases the publisher. The store is owned by the caller.
func (e *Engine) Close() error {
	return e.publisher.Close()
}

func (e *Engine) deregister(id string) {
	e.mu.Lock()
	delete(e.sessions, id)
	e.mu.Unlock()
}

func (e *Engine) state(id string) (*sessionState, error) {
	e.mu.RLock()
	st, ok := e.sessions[id]
	e.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound(id)
	}
	return st, nil
}

func (e *Engine) recordOutcome(ctx context.Context, session *domain.Session) {
	if e.analytics == nil {
		return
	}
	if err := e.analytics.RecordSession(ctx, session); err != nil {
		e.logger.WarnContext(ctx, "outcome recording failed",
			slog.String("session_id", session.ID),
			slog.String("error", err.Error()))
	}
}

func (e *Engine) publish(ctx context.Context, sessionID string, channel ports.Channel, event ports.Event) {
	if err := e.publisher.Publish(ctx, sessionID, channel, event); err != nil {
		e.logger.WarnContext(ctx, "event publish failed",
			slog.String("session_id", sessionID),
			slog.String("type", event.Type),
			slog.String("error", err.Error()))
	}
}

// newMessage builds a chat message with a timestamp that never moves
// backwards within the session.
func (e *Engine) newMessage(session *domain.Session, sender domain.Sender, content string, kind domain.MessageKind) domain.ChatMessage {
	ts := e.clock()
	if n := len(session.Messages); n > 0 && session.Messages[n-1].Timestamp.After(ts) {
		ts = session.Messages[n-1].Timestamp
	}
	return domain.ChatMessage{
		ID:        ulid.Make().String(),
		SessionID: session.ID,
		Sender:    sender,
		Content:   content,
		Timestamp: ts,
		Kind:      kind,
	}
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, ports.Channel, ports.Event) error { return nil }
func (noopPublisher) Close() error                                                      { return nil }
