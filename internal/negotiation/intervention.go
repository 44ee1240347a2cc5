package negotiation

import (
	"regexp"

	"github.com/dealsense/negotiator/internal/analyzer"
	"github.com/dealsense/negotiator/internal/core/domain"
)

var (
	sellerRequestRe = regexp.MustCompile(`(?i)(speak to you directly|call you|talk to (the )?owner|real person)`)
	complexTermsRe  = regexp.MustCompile(`(?i)\b(warranty|return policy|legal|contract|documentation)\b`)
	technicalRe     = regexp.MustCompile(`(?i)(not working|error|problem with|technical issue)`)
)

// InterventionPolicy holds the tunable thresholds of the intervention
// scan.
type InterventionPolicy struct {
	DeadlockMessageCount int // scan only past this many messages
	DeadlockWindow       int // messages whose prices must all match
}

// DefaultInterventionPolicy mirrors the shipped configuration defaults.
func DefaultInterventionPolicy() InterventionPolicy {
	return InterventionPolicy{DeadlockMessageCount: 12, DeadlockWindow: 6}
}

// CheckIntervention scans a seller message for conditions that require
// a human to take over. It runs before any decision is computed; a
// non-nil trigger short-circuits the turn.
func CheckIntervention(messages []domain.ChatMessage, sellerText string, policy InterventionPolicy) *domain.InterventionTrigger {
	if sellerRequestRe.MatchString(sellerText) {
		return triggerPtr(domain.TriggerSellerRequest)
	}
	if complexTermsRe.MatchString(sellerText) {
		return triggerPtr(domain.TriggerComplexTerms)
	}
	if len(messages) > policy.DeadlockMessageCount && pricesStuck(messages, policy.DeadlockWindow) {
		return triggerPtr(domain.TriggerDeadlock)
	}
	if technicalRe.MatchString(sellerText) {
		return triggerPtr(domain.TriggerTechnicalIssue)
	}
	return nil
}

// pricesStuck reports whether every price extracted from the last
// window messages is identical (and at least one price was seen).
func pricesStuck(messages []domain.ChatMessage, window int) bool {
	var prices []int
	for _, m := range lastN(messages, window) {
		prices = append(prices, analyzer.ExtractPrices(m.Content)...)
	}
	if len(prices) == 0 {
		return false
	}
	for _, p := range prices[1:] {
		if p != prices[0] {
			return false
		}
	}
	return true
}

// CompletionPolicy holds the message budget for the completion scan.
type CompletionPolicy struct {
	MessageBudget int
}

// DefaultCompletionPolicy mirrors the shipped configuration defaults.
func DefaultCompletionPolicy() CompletionPolicy {
	return CompletionPolicy{MessageBudget: 20}
}

// CheckCompletion runs after a decision is computed and reports whether
// the session has reached a terminal outcome. Completion is
// irreversible.
func CheckCompletion(decision domain.Decision, messageCount int, policy CompletionPolicy) *domain.SessionOutcome {
	switch decision.Action {
	case domain.ActionAccept, domain.ActionAcceptWithConditions:
		return outcomePtr(domain.OutcomeSuccess)
	case domain.ActionWalkAway:
		return outcomePtr(domain.OutcomeFailedPrice)
	case domain.ActionFinalOffer:
		if decision.Confidence < 0.3 {
			return outcomePtr(domain.OutcomeFailedPrice)
		}
	}
	if messageCount > policy.MessageBudget {
		return outcomePtr(domain.OutcomeSellerUnresponsive)
	}
	return nil
}

// HandoffText returns the canned handoff message for a trigger.
func HandoffText(trigger domain.InterventionTrigger) string {
	switch trigger {
	case domain.TriggerSellerRequest:
		return "I understand you'd like to speak directly. Let me connect you with my colleague who can assist you better."
	case domain.TriggerComplexTerms:
		return "These are important details that need careful consideration. Let me have someone with more expertise help us."
	case domain.TriggerDeadlock:
		return "Let me bring in a colleague who might have a fresh perspective on this negotiation."
	case domain.TriggerTechnicalIssue:
		return "I want to make sure we address your concerns properly. Let me connect you with someone who can help."
	default:
		return "Let me connect you with a human colleague for better assistance."
	}
}

func triggerPtr(t domain.InterventionTrigger) *domain.InterventionTrigger { return &t }
func outcomePtr(o domain.SessionOutcome) *domain.SessionOutcome          { return &o }
