// Package strategy formulates the per-session negotiation strategy at
// creation time: opening and fallback offers, concession behavior, turn
// budget, and the tactic pool. Historical analytics bias the pool and
// the success estimate but never the decision engine's bounds.
package strategy

import (
	"github.com/dealsense/negotiator/internal/core/domain"
)

// Formulate computes the immutable Strategy for a new session. rec may
// be nil when no history is available.
func Formulate(product domain.ProductData, params domain.NegotiationParams, market domain.MarketAnalysis, rec *domain.Recommendation) domain.Strategy {
	s := domain.Strategy{
		OpeningOffer:   openingOffer(params, market),
		FallbackOffer:  params.MaxBudget,
		PhasePlan:      []domain.NegotiationPhase{domain.PhaseOpening, domain.PhaseExploration, domain.PhaseBargaining, domain.PhaseClosing},
		MarketPosition: market.MarketPosition,
	}

	switch params.Approach {
	case domain.ApproachAssertive:
		s.ConcessionRate = 0.05
	case domain.ApproachConsiderate:
		s.ConcessionRate = 0.15
	default:
		s.ConcessionRate = 0.10
	}

	switch params.Timeline {
	case domain.TimelineUrgent:
		s.MaxRounds = 5
		s.UrgencyFactor = 1.3
	case domain.TimelineFlexible:
		s.MaxRounds = 12
		s.UrgencyFactor = 0.8
	default:
		s.MaxRounds = 8
		s.UrgencyFactor = 1.0
	}

	s.SuccessProbability = 0.6
	s.Tactics = []domain.Tactic{domain.TacticAnchoring, domain.TacticReciprocity}
	if rec != nil && rec.SampleSize > 0 {
		s.SuccessProbability = rec.SuccessRate
		if len(rec.RecommendedTactics) > 0 {
			s.Tactics = append([]domain.Tactic(nil), rec.RecommendedTactics...)
		}
	}

	// An overpriced listing with real negotiation potential lowers the
	// success estimate; an underpriced one raises it. Bounds stay with
	// the decision engine either way.
	switch market.MarketPosition {
	case domain.PositionOverpriced:
		s.SuccessProbability = clamp01(s.SuccessProbability - 0.1)
	case domain.PositionUnderpriced:
		s.SuccessProbability = clamp01(s.SuccessProbability + 0.1)
	}

	return s
}

// openingOffer sets the anchor for the first message. When the market
// analysis puts fair value below the buyer's target, the anchor drops
// to fair value; the opening never quotes above target.
func openingOffer(params domain.NegotiationParams, market domain.MarketAnalysis) int {
	if market.EstimatedValue > 0 && market.EstimatedValue < params.TargetPrice {
		return market.EstimatedValue
	}
	return params.TargetPrice
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
