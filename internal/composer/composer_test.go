package composer

import (
	"context"
	"strings"
	"testing"

	"github.com/dealsense/negotiator/internal/core/domain"
	"github.com/dealsense/negotiator/internal/core/ports"
)

func request(action domain.Action, offer *int, tactics ...domain.Tactic) ports.ComposeRequest {
	return ports.ComposeRequest{
		Session: &domain.Session{
			ID:      "s1",
			Product: domain.ProductData{Title: "iPhone 13", Price: 12000},
			Params:  domain.NegotiationParams{TargetPrice: 8000, MaxBudget: 10000},
			Strategy: domain.Strategy{
				OpeningOffer: 8000,
			},
		},
		Decision: domain.Decision{Action: action, Offer: offer, Confidence: 0.7},
		Tactics:  tactics,
		Analysis: domain.NeutralAnalysis(),
	}
}

func TestComposeDeterministic(t *testing.T) {
	c := New()
	offer := 8720
	req := request(domain.ActionCounterOffer, &offer, domain.TacticReciprocity)

	first, err := c.Compose(context.Background(), req)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	for i := 0; i < 5; i++ {
		got, err := c.Compose(context.Background(), req)
		if err != nil {
			t.Fatalf("Compose: %v", err)
		}
		if got != first {
			t.Fatalf("run %d differed: %q vs %q", i, got, first)
		}
	}
}

func TestComposeOfferMentionsAmount(t *testing.T) {
	c := New()
	offer := 8720
	for _, tactic := range domain.AllTactics() {
		req := request(domain.ActionCounterOffer, &offer, tactic)
		got, err := c.Compose(context.Background(), req)
		if err != nil {
			t.Fatalf("Compose(%s): %v", tactic, err)
		}
		if !strings.Contains(got, "₹8,720") {
			t.Errorf("tactic %s: %q does not mention the offer", tactic, got)
		}
	}
}

func TestComposeFinalOfferFlagsFinality(t *testing.T) {
	c := New()
	offer := 8800
	got, err := c.Compose(context.Background(), request(domain.ActionFinalOffer, &offer, domain.TacticAnchoring))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if !strings.Contains(got, "best offer") {
		t.Errorf("final offer text %q should flag finality", got)
	}
}

func TestComposeWalkAwayMentionsBudget(t *testing.T) {
	c := New()
	got, err := c.Compose(context.Background(), request(domain.ActionWalkAway, nil))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if !strings.Contains(got, "₹10,000") {
		t.Errorf("walk away text %q should mention the budget", got)
	}
}

func TestComposeOpening(t *testing.T) {
	c := New()

	req := request(domain.ActionContinue, nil, domain.TacticAnchoring)
	req.Opening = true
	got, err := c.Compose(context.Background(), req)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if !strings.Contains(got, "iPhone 13") {
		t.Errorf("opening %q should mention the product", got)
	}
	if !strings.Contains(got, "₹8,000") {
		t.Errorf("anchored opening %q should mention the opening offer", got)
	}

	req.Tactics = nil
	got, err = c.Compose(context.Background(), req)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if strings.Contains(got, "₹") {
		t.Errorf("unanchored opening %q should not quote a price", got)
	}
}

func TestComposeHonorsCancellation(t *testing.T) {
	c := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Compose(ctx, request(domain.ActionAccept, nil)); err == nil {
		t.Error("expected error from cancelled context")
	}
}

func TestFallback(t *testing.T) {
	params := domain.NegotiationParams{TargetPrice: 8000, MaxBudget: 10000}
	offer := 8500

	tests := []struct {
		name     string
		decision domain.Decision
		contains string
	}{
		{"accept", domain.Decision{Action: domain.ActionAccept}, "payment"},
		{"walk away", domain.Decision{Action: domain.ActionWalkAway}, "₹10,000"},
		{"counter with offer", domain.Decision{Action: domain.ActionCounterOffer, Offer: &offer}, "₹8,500"},
		{"counter without offer", domain.Decision{Action: domain.ActionCounterOffer}, "₹8,000"},
		{"continue", domain.Decision{Action: domain.ActionContinue}, "think"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fallback(tt.decision, params)
			if !strings.Contains(got, tt.contains) {
				t.Errorf("Fallback = %q, want it to contain %q", got, tt.contains)
			}
		})
	}
}
