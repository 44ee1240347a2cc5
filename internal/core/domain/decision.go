package domain

// NegotiationPhase is the conversational stage, recomputed every turn
// from the message history and the latest seller analysis.
type NegotiationPhase string

const (
	PhaseOpening     NegotiationPhase = "opening"
	PhaseExploration NegotiationPhase = "exploration"
	PhaseBargaining  NegotiationPhase = "bargaining"
	PhaseClosing     NegotiationPhase = "closing"
	PhaseDeadlock    NegotiationPhase = "deadlock"
)

// Action is the strategic move the engine picks for a turn.
type Action string

const (
	ActionAccept               Action = "accept"
	ActionCounterOffer         Action = "counter_offer"
	ActionFinalOffer           Action = "final_offer"
	ActionWalkAway             Action = "walk_away"
	ActionContinue             Action = "continue"
	ActionAcceptWithConditions Action = "accept_with_conditions"
)

// Decision is the outcome of one pass through the decision table.
// Offer is set only for COUNTER_OFFER and FINAL_OFFER, and always
// satisfies target_price <= offer <= max_budget.
type Decision struct {
	Action     Action  `json:"action"`
	Offer      *int    `json:"offer,omitempty"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// Tactic is a persuasion technique from the fixed vocabulary.
type Tactic string

const (
	TacticAnchoring   Tactic = "anchoring"
	TacticScarcity    Tactic = "scarcity"
	TacticBundling    Tactic = "bundling"
	TacticReciprocity Tactic = "reciprocity"
	TacticAuthority   Tactic = "authority"
	TacticSocialProof Tactic = "social_proof"
	TacticCommitment  Tactic = "commitment"
	TacticUrgency     Tactic = "urgency"
)

// AllTactics lists the fixed tactic vocabulary.
func AllTactics() []Tactic {
	return []Tactic{
		TacticAnchoring, TacticScarcity, TacticBundling, TacticReciprocity,
		TacticAuthority, TacticSocialProof, TacticCommitment, TacticUrgency,
	}
}

// TurnResult is what one analyze-decide-respond cycle hands back to the
// caller and the transport layer.
type TurnResult struct {
	SessionID      string               `json:"session_id"`
	Status         SessionStatus        `json:"status"`
	Phase          NegotiationPhase     `json:"phase"`
	AgentMessage   *ChatMessage         `json:"agent_message,omitempty"`
	HandoffMessage *ChatMessage         `json:"handoff_message,omitempty"`
	Handoff        *InterventionTrigger `json:"handoff,omitempty"`
	Decision       *Decision            `json:"decision,omitempty"`
	TacticsUsed    []Tactic             `json:"tactics_used,omitempty"`
	Analysis       *SellerAnalysis      `json:"seller_analysis,omitempty"`
	Confidence     float64              `json:"confidence"`
	Outcome        *SessionOutcome      `json:"outcome,omitempty"`
	FinalPrice     *int                 `json:"final_price,omitempty"`
}
