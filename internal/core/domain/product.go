package domain

// ProductData is the structured marketplace listing a session
// negotiates over. Prices are whole rupees.
type ProductData struct {
	ID          string `json:"id"`
	URL         string `json:"url,omitempty"`
	Title       string `json:"title"`
	Price       int    `json:"price"`
	Category    string `json:"category"`
	Condition   string `json:"condition"`
	Description string `json:"description,omitempty"`
}

// MarketPosition compares the listed price to the estimated fair value.
type MarketPosition string

const (
	PositionOverpriced  MarketPosition = "overpriced"
	PositionUnderpriced MarketPosition = "underpriced"
	PositionMarketRate  MarketPosition = "market_rate"
	PositionUnknown     MarketPosition = "unknown"
)

// MarketAnalysis is the collaborator-provided market estimate used
// during strategy formulation.
type MarketAnalysis struct {
	EstimatedValue       int            `json:"estimated_value"`
	NegotiationPotential float64        `json:"negotiation_potential"` // [0,1]
	MarketPosition       MarketPosition `json:"market_position"`
}

// Strategy is computed once at session creation and read thereafter.
type Strategy struct {
	OpeningOffer       int                `json:"opening_offer"`
	FallbackOffer      int                `json:"fallback_offer"`
	PhasePlan          []NegotiationPhase `json:"phase_plan"`
	Tactics            []Tactic           `json:"tactics"`
	SuccessProbability float64            `json:"success_probability"`
	ConcessionRate     float64            `json:"concession_rate"`
	MaxRounds          int                `json:"max_rounds"`
	UrgencyFactor      float64            `json:"urgency_factor"`
	MarketPosition     MarketPosition     `json:"market_position"`
}
