// Package negotiation holds the pure decision logic of the engine: the
// phase state machine, the decision table, tactic selection, and the
// intervention/completion scans. Nothing here touches I/O or session
// state; the lifecycle manager feeds these functions each turn.
package negotiation

import (
	"regexp"

	"github.com/dealsense/negotiator/internal/analyzer"
	"github.com/dealsense/negotiator/internal/core/domain"
)

var (
	closingRe = regexp.MustCompile(`(?i)\b(final|last)\b`)
	priceRe   = regexp.MustCompile(`(?i)\bprice\b`)
)

// DeterminePhase derives the current phase from the message history and
// the latest seller analysis. The phase is recomputed, not incrementally
// advanced: rules are evaluated in order, first match wins.
func DeterminePhase(messages []domain.ChatMessage, analysis domain.SellerAnalysis) domain.NegotiationPhase {
	count := len(messages)
	recent := lastN(messages, 3)

	if count <= 2 && !anyMatch(recent, closingRe) && !priceMentioned(recent) {
		return domain.PhaseOpening
	}
	if anyMatch(recent, closingRe) {
		return domain.PhaseClosing
	}
	if analysis.Flexibility < 0.2 && count > 6 {
		return domain.PhaseDeadlock
	}
	if priceMentioned(recent) && count > 3 {
		return domain.PhaseBargaining
	}
	return domain.PhaseExploration
}

func lastN(messages []domain.ChatMessage, n int) []domain.ChatMessage {
	if len(messages) <= n {
		return messages
	}
	return messages[len(messages)-n:]
}

func anyMatch(messages []domain.ChatMessage, re *regexp.Regexp) bool {
	for _, m := range messages {
		if re.MatchString(m.Content) {
			return true
		}
	}
	return false
}

// priceMentioned reports whether any recent message names a price,
// either as an extractable amount or the literal word "price".
func priceMentioned(messages []domain.ChatMessage) bool {
	for _, m := range messages {
		if priceRe.MatchString(m.Content) || len(analyzer.ExtractPrices(m.Content)) > 0 {
			return true
		}
	}
	return false
}
