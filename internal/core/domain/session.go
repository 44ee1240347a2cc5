// Package domain holds the typed records and enums shared by the
// negotiation core: sessions, messages, analyses, decisions, and the
// error taxonomy. Everything here is plain data; behavior lives in the
// analyzer, negotiation, and engine packages.
package domain

import "time"

// SessionStatus is the lifecycle state of a negotiation session.
type SessionStatus string

const (
	StatusInitializing SessionStatus = "initializing"
	StatusActive       SessionStatus = "active"
	StatusPaused       SessionStatus = "paused"
	StatusHumanHandoff SessionStatus = "human_handoff"
	StatusCompleted    SessionStatus = "completed"
	StatusFailed       SessionStatus = "failed"
	StatusCancelled    SessionStatus = "cancelled"
)

// Terminal reports whether no further turns may be processed for a
// session in this status.
func (s SessionStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// SessionOutcome classifies how a session ended. It is set exactly once,
// when the session reaches a terminal status.
type SessionOutcome string

const (
	OutcomeSuccess            SessionOutcome = "success"
	OutcomeFailedPrice        SessionOutcome = "failed_price"
	OutcomeFailedTerms        SessionOutcome = "failed_terms"
	OutcomeSellerUnresponsive SessionOutcome = "seller_unresponsive"
	OutcomeUserCancelled      SessionOutcome = "user_cancelled"
	OutcomeTechnicalError     SessionOutcome = "technical_error"
)

// InterventionTrigger names a condition that requires a human to take
// over the conversation.
type InterventionTrigger string

const (
	TriggerSellerRequest  InterventionTrigger = "seller_request"
	TriggerComplexTerms   InterventionTrigger = "complex_terms"
	TriggerDeadlock       InterventionTrigger = "deadlock"
	TriggerTechnicalIssue InterventionTrigger = "technical_issue"
)

// Approach is the buyer's preferred negotiation style.
type Approach string

const (
	ApproachAssertive   Approach = "assertive"
	ApproachDiplomatic  Approach = "diplomatic"
	ApproachConsiderate Approach = "considerate"
)

// Timeline is how quickly the buyer wants to close.
type Timeline string

const (
	TimelineUrgent   Timeline = "urgent"
	TimelineWeek     Timeline = "week"
	TimelineFlexible Timeline = "flexible"
)

// NegotiationParams are the buyer-supplied constraints for a session.
// They are immutable after session creation.
type NegotiationParams struct {
	TargetPrice int      `json:"target_price"`
	MaxBudget   int      `json:"max_budget"`
	Approach    Approach `json:"approach"`
	Timeline    Timeline `json:"timeline"`
}

// Validate rejects malformed params before they enter the state machine.
func (p NegotiationParams) Validate() error {
	if p.TargetPrice <= 0 {
		return ErrValidation("target_price must be positive")
	}
	if p.MaxBudget < p.TargetPrice {
		return ErrValidation("max_budget must be at least target_price")
	}
	switch p.Approach {
	case ApproachAssertive, ApproachDiplomatic, ApproachConsiderate:
	default:
		return ErrValidation("unknown approach: " + string(p.Approach))
	}
	switch p.Timeline {
	case TimelineUrgent, TimelineWeek, TimelineFlexible:
	default:
		return ErrValidation("unknown timeline: " + string(p.Timeline))
	}
	return nil
}

// Sender identifies who produced a chat message.
type Sender string

const (
	SenderAgent  Sender = "agent"
	SenderSeller Sender = "seller"
	SenderSystem Sender = "system"
)

// MessageKind distinguishes normal chat traffic from control messages.
type MessageKind string

const (
	KindNormal   MessageKind = "normal"
	KindOverride MessageKind = "override"
	KindHandoff  MessageKind = "handoff"
	KindError    MessageKind = "error"
)

// ChatMessage is one entry in a session's append-only message log.
// Timestamps are monotonically non-decreasing within a session.
type ChatMessage struct {
	ID        string      `json:"id"`
	SessionID string      `json:"session_id"`
	Sender    Sender      `json:"sender"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
	Kind      MessageKind `json:"kind"`
}

// SessionMetrics are per-session running counters, updated each turn.
type SessionMetrics struct {
	MessagesSent             int       `json:"messages_sent"`
	NegotiationEffectiveness float64   `json:"negotiation_effectiveness"`
	ConfidenceHistory        []float64 `json:"confidence_history,omitempty"`
}

// Session is the durable record of one negotiation conversation.
// It is owned exclusively by the session lifecycle manager and mutated
// only while processing that session's current turn.
type Session struct {
	ID         string            `json:"id"`
	Product    ProductData       `json:"product"`
	Params     NegotiationParams `json:"params"`
	Status     SessionStatus     `json:"status"`
	Phase      NegotiationPhase  `json:"phase"`
	Messages   []ChatMessage     `json:"messages"`
	Outcome    SessionOutcome    `json:"outcome,omitempty"`
	FinalPrice *int              `json:"final_price,omitempty"`
	Strategy   Strategy          `json:"strategy"`
	Market     MarketAnalysis    `json:"market"`
	Metrics    SessionMetrics    `json:"metrics"`
	Tactics    []Tactic          `json:"tactics_history,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	EndedAt    *time.Time        `json:"ended_at,omitempty"`
}

// SessionSummary is the condensed view of a session, for review screens
// and post-completion reporting.
type SessionSummary struct {
	SessionID       string         `json:"session_id"`
	ProductTitle    string         `json:"product_title"`
	ListedPrice     int            `json:"listed_price"`
	TargetPrice     int            `json:"target_price"`
	FinalPrice      *int           `json:"final_price,omitempty"`
	DurationMinutes *float64       `json:"duration_minutes,omitempty"`
	MessageCount    int            `json:"message_count"`
	Outcome         SessionOutcome `json:"outcome,omitempty"`
	Approach        Approach       `json:"approach"`
	TacticsUsed     []Tactic       `json:"tactics_used,omitempty"`
	MarketPosition  MarketPosition `json:"market_position,omitempty"`
}

// Summarize condenses the session into its summary view. Duration is
// present only once the session has ended.
func (s *Session) Summarize() SessionSummary {
	out := SessionSummary{
		SessionID:      s.ID,
		ProductTitle:   s.Product.Title,
		ListedPrice:    s.Product.Price,
		TargetPrice:    s.Params.TargetPrice,
		MessageCount:   len(s.Messages),
		Outcome:        s.Outcome,
		Approach:       s.Params.Approach,
		TacticsUsed:    append([]Tactic(nil), s.Tactics...),
		MarketPosition: s.Market.MarketPosition,
	}
	if s.FinalPrice != nil {
		v := *s.FinalPrice
		out.FinalPrice = &v
	}
	if s.EndedAt != nil {
		minutes := s.EndedAt.Sub(s.CreatedAt).Minutes()
		out.DurationMinutes = &minutes
	}
	return out
}

// SellerMessages returns only the seller's entries, oldest first.
func (s *Session) SellerMessages() []ChatMessage {
	var out []ChatMessage
	for _, m := range s.Messages {
		if m.Sender == SenderSeller {
			out = append(out, m)
		}
	}
	return out
}

// Clone returns a deep copy safe to hand outside the engine.
func (s *Session) Clone() *Session {
	cp := *s
	cp.Messages = append([]ChatMessage(nil), s.Messages...)
	cp.Tactics = append([]Tactic(nil), s.Tactics...)
	cp.Metrics.ConfidenceHistory = append([]float64(nil), s.Metrics.ConfidenceHistory...)
	if s.FinalPrice != nil {
		v := *s.FinalPrice
		cp.FinalPrice = &v
	}
	if s.EndedAt != nil {
		t := *s.EndedAt
		cp.EndedAt = &t
	}
	cp.Strategy.PhasePlan = append([]NegotiationPhase(nil), s.Strategy.PhasePlan...)
	cp.Strategy.Tactics = append([]Tactic(nil), s.Strategy.Tactics...)
	return &cp
}
