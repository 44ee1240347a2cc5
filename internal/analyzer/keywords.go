package analyzer

import (
	"regexp"

	"github.com/dealsense/negotiator/internal/core/domain"
)

// Fixed keyword vocabularies for signal extraction. Matching is
// word-bounded and case-insensitive; multi-word phrases match as
// phrases.
var (
	positiveWords = []string{"good", "excellent", "perfect", "great", "wonderful", "yes", "sure", "okay"}
	negativeWords = []string{"no", "cannot", "impossible", "never", "refuse", "reject"}

	flexibleWords = []string{"negotiate", "flexible", "consider", "discuss", "maybe", "perhaps"}
	firmWords     = []string{"firm", "fixed", "final", "non-negotiable", "minimum", "cannot"}

	urgentWords  = []string{"urgent", "immediately", "today", "asap", "quick"}
	relaxedWords = []string{"whenever", "no rush", "flexible", "anytime"}

	politeWords = []string{"please", "thank", "sorry", "appreciate", "understand", "respect"}
	rudeWords   = []string{"no way", "impossible", "ridiculous", "waste"}

	objectionWords = map[domain.Objection][]string{
		domain.ObjectionPriceTooLow:       {"too low", "not enough", "cannot accept", "minimum"},
		domain.ObjectionConditionConcerns: {"condition", "wear", "damage", "issue"},
		domain.ObjectionTimingIssues:      {"time", "when", "schedule", "availability"},
		domain.ObjectionTrustConcerns:     {"trust", "verify", "proof", "guarantee"},
	}

	signalWords = map[domain.BuyingSignal][]string{
		domain.SignalPriceAcceptance:     {"okay", "fine", "accept", "deal", "agree", "done", "sold"},
		domain.SignalLogisticsDiscussion: {"pickup", "delivery", "meet", "where"},
		domain.SignalPaymentDiscussion:   {"payment", "cash", "transfer", "money"},
		domain.SignalUrgencyToSell:       {"urgent", "immediately", "quick sale"},
	}
)

type wordSet []*regexp.Regexp

func compileWords(words []string) wordSet {
	set := make(wordSet, len(words))
	for i, w := range words {
		set[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(w) + `\b`)
	}
	return set
}

func (s wordSet) count(text string) int {
	n := 0
	for _, re := range s {
		if re.MatchString(text) {
			n++
		}
	}
	return n
}

func (s wordSet) match(text string) bool {
	return s.count(text) > 0
}
