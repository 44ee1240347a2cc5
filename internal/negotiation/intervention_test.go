package negotiation

import (
	"testing"

	"github.com/dealsense/negotiator/internal/core/domain"
)

func TestCheckIntervention(t *testing.T) {
	policy := DefaultInterventionPolicy()

	tests := []struct {
		name string
		text string
		want *domain.InterventionTrigger
	}{
		{"seller wants a human", "Can I speak to you directly about this?", trig(domain.TriggerSellerRequest)},
		{"seller wants a call", "Just call you and settle it?", trig(domain.TriggerSellerRequest)},
		{"complex terms", "What about the warranty and return policy?", trig(domain.TriggerComplexTerms)},
		{"technical issue", "There is a problem with the photos on the listing", trig(domain.TriggerTechnicalIssue)},
		{"plain bargaining", "Best I can do is 9000", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckIntervention(nil, tt.text, policy)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("trigger = %v, want %v", got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("trigger = %s, want %s", *got, *tt.want)
			}
		})
	}
}

func TestCheckInterventionPrecedence(t *testing.T) {
	// Both a direct request and a technical complaint: the request wins.
	got := CheckIntervention(nil, "The listing is not working, can I speak to you directly?", DefaultInterventionPolicy())
	if got == nil || *got != domain.TriggerSellerRequest {
		t.Fatalf("trigger = %v, want seller_request", got)
	}
}

func TestCheckInterventionDeadlock(t *testing.T) {
	policy := DefaultInterventionPolicy()

	stuck := make([]domain.ChatMessage, 0, 14)
	for i := 0; i < 14; i++ {
		stuck = append(stuck, domain.ChatMessage{
			Sender:  domain.SenderSeller,
			Content: "still ₹9,000",
			Kind:    domain.KindNormal,
		})
	}
	if got := CheckIntervention(stuck, "nothing has changed", policy); got == nil || *got != domain.TriggerDeadlock {
		t.Fatalf("trigger = %v, want deadlock", got)
	}

	// Short conversations never deadlock regardless of repetition.
	if got := CheckIntervention(stuck[:6], "nothing has changed", policy); got != nil {
		t.Errorf("trigger = %v, want none for short conversation", *got)
	}

	// Moving prices are not a deadlock.
	moving := append([]domain.ChatMessage(nil), stuck...)
	moving[len(moving)-1].Content = "fine, ₹8,800"
	if got := CheckIntervention(moving, "nothing has changed", policy); got != nil {
		t.Errorf("trigger = %v, want none when prices move", *got)
	}
}

func TestCheckCompletion(t *testing.T) {
	policy := DefaultCompletionPolicy()

	tests := []struct {
		name     string
		decision domain.Decision
		count    int
		want     *domain.SessionOutcome
	}{
		{"accept succeeds", domain.Decision{Action: domain.ActionAccept, Confidence: 0.9}, 5, out(domain.OutcomeSuccess)},
		{"conditional accept succeeds", domain.Decision{Action: domain.ActionAcceptWithConditions, Confidence: 0.6}, 5, out(domain.OutcomeSuccess)},
		{"walk away fails on price", domain.Decision{Action: domain.ActionWalkAway, Confidence: 0.8}, 5, out(domain.OutcomeFailedPrice)},
		{"desperate final offer fails", domain.Decision{Action: domain.ActionFinalOffer, Confidence: 0.2}, 5, out(domain.OutcomeFailedPrice)},
		{"confident final offer continues", domain.Decision{Action: domain.ActionFinalOffer, Confidence: 0.4}, 5, nil},
		{"budget exhausted", domain.Decision{Action: domain.ActionContinue, Confidence: 0.5}, 21, out(domain.OutcomeSellerUnresponsive)},
		{"budget boundary is exclusive", domain.Decision{Action: domain.ActionContinue, Confidence: 0.5}, 20, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckCompletion(tt.decision, tt.count, policy)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("outcome = %v, want %v", got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("outcome = %s, want %s", *got, *tt.want)
			}
		})
	}
}

func TestHandoffText(t *testing.T) {
	for _, trigger := range []domain.InterventionTrigger{
		domain.TriggerSellerRequest, domain.TriggerComplexTerms,
		domain.TriggerDeadlock, domain.TriggerTechnicalIssue,
	} {
		if HandoffText(trigger) == "" {
			t.Errorf("no handoff text for %s", trigger)
		}
	}
}

func trig(t domain.InterventionTrigger) *domain.InterventionTrigger { return &t }
func out(o domain.SessionOutcome) *domain.SessionOutcome            { return &o }
