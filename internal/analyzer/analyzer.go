// Package analyzer turns raw seller text plus recent chat history into
// a structured SellerAnalysis. Analysis is a pure function of its
// inputs: no side effects, no randomness, so the same input always
// yields the same signal bundle.
package analyzer

import (
	"github.com/dealsense/negotiator/internal/core/domain"
)

// Analyzer scores seller messages against fixed keyword vocabularies
// and extracts prices. Construct once, share freely; it is immutable
// after New.
type Analyzer struct {
	positive, negative   wordSet
	flexHigh, flexLow    wordSet
	urgentHigh, relaxed  wordSet
	polite, rude         wordSet
	firmTells, flexTells wordSet
	eagerTells           wordSet
	objections           map[domain.Objection]wordSet
	signals              map[domain.BuyingSignal]wordSet
}

// New builds an analyzer with the default vocabularies.
func New() *Analyzer {
	a := &Analyzer{
		positive:   compileWords(positiveWords),
		negative:   compileWords(negativeWords),
		flexHigh:   compileWords(flexibleWords),
		flexLow:    compileWords(firmWords),
		urgentHigh: compileWords(urgentWords),
		relaxed:    compileWords(relaxedWords),
		polite:     compileWords(politeWords),
		rude:       compileWords(rudeWords),
		firmTells:  compileWords([]string{"firm", "final", "non-negotiable"}),
		flexTells:  compileWords([]string{"flexible", "negotiate"}),
		eagerTells: compileWords([]string{"quick", "urgent"}),
		objections: make(map[domain.Objection]wordSet, len(objectionWords)),
		signals:    make(map[domain.BuyingSignal]wordSet, len(signalWords)),
	}
	for tag, words := range objectionWords {
		a.objections[tag] = compileWords(words)
	}
	for tag, words := range signalWords {
		a.signals[tag] = compileWords(words)
	}
	return a
}

// Analyze scores one seller message. history holds the session messages
// that precede it; the message itself must not be in history, so the
// price trend compares against genuinely earlier quotes.
func (a *Analyzer) Analyze(message string, history []domain.ChatMessage) domain.SellerAnalysis {
	if message == "" {
		return domain.NeutralAnalysis()
	}

	out := domain.SellerAnalysis{
		Sentiment:   a.sentiment(message),
		Flexibility: a.flexibility(message),
		Urgency:     a.urgency(message),
		Politeness:  a.politeness(message),
		PriceTrend:  domain.TrendStable,
	}
	out.Personality = a.personality(message, history)
	out.ExtractedPrice = LatestPrice(message)

	if out.ExtractedPrice != nil {
		if prev := lastSellerPrice(history); prev != nil {
			switch {
			case *out.ExtractedPrice < *prev:
				out.PriceTrend = domain.TrendDecreasing
			case *out.ExtractedPrice > *prev:
				out.PriceTrend = domain.TrendIncreasing
			}
		}
	}

	for tag, set := range a.objections {
		if set.match(message) {
			out.Objections = append(out.Objections, tag)
		}
	}
	sortObjections(out.Objections)
	for tag, set := range a.signals {
		if set.match(message) {
			out.BuyingSignals = append(out.BuyingSignals, tag)
		}
	}
	sortSignals(out.BuyingSignals)

	return out
}

func (a *Analyzer) sentiment(message string) domain.Sentiment {
	pos := a.positive.count(message)
	neg := a.negative.count(message)
	switch {
	case pos > neg:
		return domain.SentimentPositive
	case neg > pos:
		return domain.SentimentNegative
	default:
		return domain.SentimentNeutral
	}
}

func (a *Analyzer) flexibility(message string) float64 {
	score := 0.5
	score += 0.2 * float64(a.flexHigh.count(message))
	score -= 0.3 * float64(a.flexLow.count(message))
	return clamp01(score)
}

func (a *Analyzer) urgency(message string) domain.Urgency {
	switch {
	case a.urgentHigh.match(message):
		return domain.UrgencyHigh
	case a.relaxed.match(message):
		return domain.UrgencyLow
	default:
		return domain.UrgencyMedium
	}
}

func (a *Analyzer) politeness(message string) float64 {
	score := 0.6
	score += 0.1 * float64(a.polite.count(message))
	score -= 0.2 * float64(a.rude.count(message))
	return clamp01(score)
}

func (a *Analyzer) personality(message string, history []domain.ChatMessage) domain.Personality {
	switch {
	case a.firmTells.match(message):
		return domain.PersonalityFirm
	case a.flexTells.match(message):
		return domain.PersonalityFlexible
	case a.rude.match(message):
		return domain.PersonalityAggressive
	}

	total, count := len(message), 1
	for _, m := range history {
		if m.Sender == domain.SenderSeller {
			total += len(m.Content)
			count++
		}
	}
	avg := total / count

	switch {
	case a.eagerTells.match(message) || avg < 50:
		return domain.PersonalityEager
	case avg > 150:
		return domain.PersonalityHesitant
	default:
		return domain.PersonalityFlexible
	}
}

// lastSellerPrice finds the most recent price quoted by the seller in
// earlier history.
func lastSellerPrice(history []domain.ChatMessage) *int {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Sender != domain.SenderSeller {
			continue
		}
		if p := LatestPrice(history[i].Content); p != nil {
			return p
		}
	}
	return nil
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

// Map iteration order is random; keep tag slices deterministic so
// identical input produces an identical analysis.
func sortObjections(tags []domain.Objection) {
	for i := 1; i < len(tags); i++ {
		for j := i; j > 0 && tags[j] < tags[j-1]; j-- {
			tags[j], tags[j-1] = tags[j-1], tags[j]
		}
	}
}

func sortSignals(tags []domain.BuyingSignal) {
	for i := 1; i < len(tags); i++ {
		for j := i; j > 0 && tags[j] < tags[j-1]; j-- {
			tags[j], tags[j-1] = tags[j-1], tags[j]
		}
	}
}
