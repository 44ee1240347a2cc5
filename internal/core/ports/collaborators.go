// Package ports defines the collaborator contracts the negotiation core
// consumes. Adapters live under internal/{scraper,market,composer,
// storage,transport}; tests substitute stubs.
package ports

import (
	"context"

	"github.com/dealsense/negotiator/internal/core/domain"
)

// Scraper turns a marketplace listing URL into structured product data.
// A failure here aborts session creation.
type Scraper interface {
	Scrape(ctx context.Context, url string) (domain.ProductData, error)
}

// MarketAnalyzer estimates fair value and negotiation potential for a
// listing given the buyer's constraints.
type MarketAnalyzer interface {
	Analyze(ctx context.Context, product domain.ProductData, targetPrice, maxBudget int) (domain.MarketAnalysis, error)
}

// ComposeRequest carries the structured intent the composer turns into
// prose. The composer never changes the decision, only phrases it.
type ComposeRequest struct {
	Session  *domain.Session
	Decision domain.Decision
	Tactics  []domain.Tactic
	Analysis domain.SellerAnalysis
	Opening  bool // true for the session's opening message
}

// TextComposer renders a decision into a chat message. Implementations
// must honor ctx cancellation; on failure or timeout the engine
// substitutes its own deterministic fallback text.
type TextComposer interface {
	Compose(ctx context.Context, req ComposeRequest) (string, error)
}

// Channel names a transport destination for session events.
type Channel string

const (
	ChannelBuyerMonitor Channel = "buyer_monitor"
	ChannelSeller       Channel = "seller_channel"
)

// Event is a fire-and-forget session notification.
type Event struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Payload   any    `json:"payload,omitempty"`
}

// Publisher delivers session events. Delivery failures are logged by
// implementations, never fatal to the turn.
type Publisher interface {
	Publish(ctx context.Context, sessionID string, channel Channel, event Event) error
	Close() error
}
