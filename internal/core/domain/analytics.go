package domain

import "time"

// OutcomeRecord is one entry in the append-only learning log, written
// when a session reaches a terminal state.
type OutcomeRecord struct {
	SessionID    string         `json:"session_id"`
	Category     string         `json:"category"`
	Approach     Approach       `json:"approach"`
	Outcome      SessionOutcome `json:"outcome"`
	TacticsUsed  []Tactic       `json:"tactics_used,omitempty"`
	ListedPrice  int            `json:"listed_price"`
	TargetPrice  int            `json:"target_price"`
	FinalPrice   *int           `json:"final_price,omitempty"`
	Savings      int            `json:"savings"`
	GapClosedPct float64        `json:"gap_closed_pct"`
	Duration     time.Duration  `json:"duration"`
	MessageCount int            `json:"message_count"`
	AgentCount   int            `json:"agent_count"`
	SellerCount  int            `json:"seller_count"`
	RecordedAt   time.Time      `json:"recorded_at"`
}

// Recommendation is the aggregate answer to "how have sessions like
// this gone before". It biases strategy formulation only; it never
// overrides the decision engine's bounds.
type Recommendation struct {
	SuccessRate        float64  `json:"success_rate"`
	RecommendedTactics []Tactic `json:"recommended_tactics"`
	Confidence         float64  `json:"confidence"`
	SampleSize         int      `json:"sample_size"`
}
