package engine

import (
	"log/slog"
	"time"

	"github.com/dealsense/negotiator/internal/analytics"
	"github.com/dealsense/negotiator/internal/core/ports"
	"github.com/dealsense/negotiator/internal/negotiation"
)

// Option configures an Engine.
type Option func(*Engine)

// WithStore sets the session store. Defaults to in-memory.
func WithStore(store ports.SessionStore) Option {
	return func(e *Engine) {
		if store != nil {
			e.store = store
		}
	}
}

// WithAnalytics sets the outcome recorder. Without one, terminal
// sessions are not recorded and strategy formulation uses defaults.
func WithAnalytics(recorder *analytics.Recorder) Option {
	return func(e *Engine) { e.analytics = recorder }
}

// WithScraper sets the listing scraper used when a session is created
// from a URL.
func WithScraper(scraper ports.Scraper) Option {
	return func(e *Engine) { e.scraper = scraper }
}

// WithMarket sets the market analyzer. Defaults to the built-in
// heuristic.
func WithMarket(market ports.MarketAnalyzer) Option {
	return func(e *Engine) {
		if market != nil {
			e.market = market
		}
	}
}

// WithComposer sets the text composer. Defaults to deterministic
// templates.
func WithComposer(composer ports.TextComposer) Option {
	return func(e *Engine) {
		if composer != nil {
			e.composer = composer
		}
	}
}

// WithComposerTimeout bounds each compose call; past it the engine
// substitutes fallback text.
func WithComposerTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.composerTimeout = d
		}
	}
}

// WithPublisher sets the event publisher. Defaults to a no-op.
func WithPublisher(publisher ports.Publisher) Option {
	return func(e *Engine) {
		if publisher != nil {
			e.publisher = publisher
		}
	}
}

// WithTactics sets the tactic selector, usually built from configured
// effectiveness overrides.
func WithTactics(selector *negotiation.TacticSelector) Option {
	return func(e *Engine) {
		if selector != nil {
			e.tactics = selector
		}
	}
}

// WithPolicy sets the negotiation policy knobs.
func WithPolicy(policy Policy) Option {
	return func(e *Engine) { e.policy = policy.withDefaults() }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock overrides the time source. Tests use this to make
// timestamps deterministic.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}
