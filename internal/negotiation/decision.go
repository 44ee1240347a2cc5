package negotiation

import (
	"fmt"
	"math"

	"github.com/dealsense/negotiator/internal/core/domain"
)

// DecideInput is everything the decision table needs for one turn.
type DecideInput struct {
	// Price is the seller's effective asking price: the extracted
	// price if present, else the last standing agent offer when the
	// seller signalled acceptance, else the listed product price.
	Price       int
	TargetPrice int
	MaxBudget   int
	Flexibility float64
	Phase       domain.NegotiationPhase

	// SellerAccepted is set when the seller accepted a standing agent
	// offer without quoting a new price.
	SellerAccepted bool

	// CounterMargin is how far below Price a counter offer must stay.
	CounterMargin int
}

// Decide runs the deterministic decision table. Every branch that emits
// an offer satisfies target_price <= offer <= max_budget; a violation
// is an internal defect and is returned as an error, never as a
// decision.
func Decide(in DecideInput) (domain.Decision, error) {
	d := decide(in)
	if d.Offer != nil && (*d.Offer < in.TargetPrice || *d.Offer > in.MaxBudget) {
		return domain.Decision{}, domain.ErrTerminal(fmt.Sprintf(
			"offer %d outside bounds [%d, %d]", *d.Offer, in.TargetPrice, in.MaxBudget))
	}
	return d, nil
}

func decide(in DecideInput) domain.Decision {
	if in.SellerAccepted {
		return domain.Decision{
			Action:     domain.ActionAccept,
			Confidence: 0.9,
			Reasoning:  "seller accepted the standing offer",
		}
	}

	price := in.Price

	if price <= in.TargetPrice {
		return domain.Decision{
			Action:     domain.ActionAccept,
			Confidence: 0.9,
			Reasoning:  "price within target range",
		}
	}

	if price <= in.MaxBudget {
		if in.Flexibility > 0.6 {
			offer := counterOffer(price, in.TargetPrice, in.Flexibility, in.Phase, in.CounterMargin)
			return domain.Decision{
				Action:     domain.ActionCounterOffer,
				Offer:      &offer,
				Confidence: 0.7,
				Reasoning:  "seller shows flexibility, room to negotiate",
			}
		}
		if float64(price) < float64(in.MaxBudget)*0.95 {
			return domain.Decision{
				Action:     domain.ActionAcceptWithConditions,
				Confidence: 0.6,
				Reasoning:  "close to budget limit, trade on terms instead of price",
			}
		}
		return domain.Decision{
			Action:     domain.ActionContinue,
			Confidence: 0.5,
			Reasoning:  "insufficient signal, gather more information",
		}
	}

	// Price exceeds budget.
	if in.Flexibility > 0.7 {
		offer := min(in.MaxBudget, int(math.Round(float64(in.TargetPrice)*1.1)))
		return domain.Decision{
			Action:     domain.ActionFinalOffer,
			Offer:      &offer,
			Confidence: 0.4,
			Reasoning:  "last attempt before walking away",
		}
	}
	return domain.Decision{
		Action:     domain.ActionWalkAway,
		Confidence: 0.8,
		Reasoning:  "price too high, seller inflexible",
	}
}

// counterOffer concedes a phase- and flexibility-scaled share of the
// gap between target and asking price, staying margin below the ask and
// never below target.
func counterOffer(price, target int, flexibility float64, phase domain.NegotiationPhase, margin int) int {
	gap := float64(price - target)
	offer := target + int(gap*phaseFactor(phase)*flexibility)

	ceiling := price - margin
	if offer > ceiling {
		offer = ceiling
	}
	if offer < target {
		offer = target
	}
	return offer
}

func phaseFactor(phase domain.NegotiationPhase) float64 {
	switch phase {
	case domain.PhaseOpening:
		return 0.3
	case domain.PhaseBargaining:
		return 0.4
	default:
		return 0.6
	}
}
