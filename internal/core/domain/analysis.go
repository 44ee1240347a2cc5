package domain

// Sentiment is the overall tone of a seller message.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Urgency is the seller's apparent urgency to close.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// Personality is the inferred seller negotiation style.
type Personality string

const (
	PersonalityFlexible   Personality = "flexible"
	PersonalityFirm       Personality = "firm"
	PersonalityEager      Personality = "eager"
	PersonalityHesitant   Personality = "hesitant"
	PersonalityAggressive Personality = "aggressive"
)

// PriceTrend describes how the seller's quoted price is moving.
type PriceTrend string

const (
	TrendIncreasing PriceTrend = "increasing"
	TrendDecreasing PriceTrend = "decreasing"
	TrendStable     PriceTrend = "stable"
)

// Objection tags a category of seller pushback.
type Objection string

const (
	ObjectionPriceTooLow       Objection = "price_too_low"
	ObjectionConditionConcerns Objection = "condition_concerns"
	ObjectionTimingIssues      Objection = "timing_issues"
	ObjectionTrustConcerns     Objection = "trust_concerns"
)

// BuyingSignal tags a positive signal that the seller wants to close.
type BuyingSignal string

const (
	SignalPriceAcceptance     BuyingSignal = "price_acceptance"
	SignalLogisticsDiscussion BuyingSignal = "logistics_discussion"
	SignalPaymentDiscussion   BuyingSignal = "payment_discussion"
	SignalUrgencyToSell       BuyingSignal = "urgency_to_sell"
)

// SellerAnalysis is the structured signal bundle extracted from one
// seller message plus recent history. It is transient and recomputed
// every turn; identical input always yields an identical analysis.
type SellerAnalysis struct {
	Sentiment      Sentiment      `json:"sentiment"`
	Flexibility    float64        `json:"flexibility"` // [0,1]
	Urgency        Urgency        `json:"urgency"`
	Personality    Personality    `json:"personality"`
	ExtractedPrice *int           `json:"extracted_price,omitempty"`
	PriceTrend     PriceTrend     `json:"price_trend"`
	Objections     []Objection    `json:"objections,omitempty"`
	BuyingSignals  []BuyingSignal `json:"buying_signals,omitempty"`
	Politeness     float64        `json:"politeness"` // [0,1]
}

// HasObjection reports whether the given objection tag was detected.
func (a SellerAnalysis) HasObjection(o Objection) bool {
	for _, v := range a.Objections {
		if v == o {
			return true
		}
	}
	return false
}

// HasSignal reports whether the given buying signal was detected.
func (a SellerAnalysis) HasSignal(s BuyingSignal) bool {
	for _, v := range a.BuyingSignals {
		if v == s {
			return true
		}
	}
	return false
}

// NeutralAnalysis is the degraded-input default: no price, neutral
// sentiment, middling flexibility. Analyzer failures never surface as
// errors; they collapse to this.
func NeutralAnalysis() SellerAnalysis {
	return SellerAnalysis{
		Sentiment:   SentimentNeutral,
		Flexibility: 0.5,
		Urgency:     UrgencyMedium,
		Personality: PersonalityFlexible,
		PriceTrend:  TrendStable,
		Politeness:  0.6,
	}
}
