package negotiation

import "github.com/dealsense/negotiator/internal/core/domain"

// EffectivenessTable scores each tactic against each seller
// personality. Tactics scoring 0.4 or less for the detected personality
// are filtered out. The table is policy, not control flow: it can be
// overridden from configuration.
type EffectivenessTable map[domain.Tactic]map[domain.Personality]float64

// DefaultEffectiveness returns the built-in effectiveness table.
func DefaultEffectiveness() EffectivenessTable {
	return EffectivenessTable{
		domain.TacticAnchoring: {
			domain.PersonalityFlexible: 0.8, domain.PersonalityFirm: 0.4,
			domain.PersonalityEager: 0.9, domain.PersonalityHesitant: 0.6,
			domain.PersonalityAggressive: 0.5,
		},
		domain.TacticScarcity: {
			domain.PersonalityFlexible: 0.6, domain.PersonalityFirm: 0.3,
			domain.PersonalityEager: 0.9, domain.PersonalityHesitant: 0.5,
			domain.PersonalityAggressive: 0.4,
		},
		domain.TacticBundling: {
			domain.PersonalityFlexible: 0.7, domain.PersonalityFirm: 0.5,
			domain.PersonalityEager: 0.6, domain.PersonalityHesitant: 0.7,
			domain.PersonalityAggressive: 0.5,
		},
		domain.TacticUrgency: {
			domain.PersonalityFlexible: 0.5, domain.PersonalityFirm: 0.2,
			domain.PersonalityEager: 0.8, domain.PersonalityHesitant: 0.4,
			domain.PersonalityAggressive: 0.3,
		},
		domain.TacticReciprocity: {
			domain.PersonalityFlexible: 0.8, domain.PersonalityFirm: 0.5,
			domain.PersonalityEager: 0.7, domain.PersonalityHesitant: 0.6,
			domain.PersonalityAggressive: 0.4,
		},
		domain.TacticSocialProof: {
			domain.PersonalityFlexible: 0.7, domain.PersonalityFirm: 0.6,
			domain.PersonalityEager: 0.5, domain.PersonalityHesitant: 0.7,
			domain.PersonalityAggressive: 0.5,
		},
		domain.TacticCommitment: {
			domain.PersonalityFlexible: 0.8, domain.PersonalityFirm: 0.6,
			domain.PersonalityEager: 0.9, domain.PersonalityHesitant: 0.5,
			domain.PersonalityAggressive: 0.6,
		},
		domain.TacticAuthority: {
			domain.PersonalityFlexible: 0.6, domain.PersonalityFirm: 0.7,
			domain.PersonalityEager: 0.5, domain.PersonalityHesitant: 0.6,
			domain.PersonalityAggressive: 0.7,
		},
	}
}

// maxTacticsPerTurn caps the tactics woven into one response.
const maxTacticsPerTurn = 3

// TacticSelector maps (phase, personality, objections) to an ordered
// list of persuasion tactics.
type TacticSelector struct {
	effectiveness EffectivenessTable
}

// NewTacticSelector builds a selector. Overrides replace the default
// per-personality scores for the tactics they name.
func NewTacticSelector(overrides EffectivenessTable) *TacticSelector {
	table := DefaultEffectiveness()
	for tactic, scores := range overrides {
		if table[tactic] == nil {
			table[tactic] = make(map[domain.Personality]float64, len(scores))
		}
		for p, v := range scores {
			table[tactic][p] = v
		}
	}
	return &TacticSelector{effectiveness: table}
}

// Select returns the tactics for this turn, ordered by phase relevance
// (the first is primary), filtered by personality effectiveness, capped
// at three.
func (s *TacticSelector) Select(phase domain.NegotiationPhase, analysis domain.SellerAnalysis) []domain.Tactic {
	var candidates []domain.Tactic

	switch phase {
	case domain.PhaseOpening:
		candidates = append(candidates, domain.TacticAnchoring)
		if analysis.Urgency == domain.UrgencyHigh {
			candidates = append(candidates, domain.TacticUrgency)
		}
	case domain.PhaseBargaining:
		if analysis.Flexibility > 0.6 {
			candidates = append(candidates, domain.TacticReciprocity)
		}
		if analysis.HasObjection(domain.ObjectionPriceTooLow) {
			candidates = append(candidates, domain.TacticSocialProof)
		}
	case domain.PhaseClosing:
		candidates = append(candidates, domain.TacticCommitment)
		if analysis.Urgency == domain.UrgencyHigh {
			candidates = append(candidates, domain.TacticScarcity)
		}
	case domain.PhaseDeadlock:
		candidates = append(candidates, domain.TacticBundling, domain.TacticAuthority)
	}

	selected := make([]domain.Tactic, 0, maxTacticsPerTurn)
	for _, tactic := range candidates {
		if s.score(tactic, analysis.Personality) > 0.4 {
			selected = append(selected, tactic)
		}
		if len(selected) == maxTacticsPerTurn {
			break
		}
	}
	return selected
}

func (s *TacticSelector) score(tactic domain.Tactic, personality domain.Personality) float64 {
	scores, ok := s.effectiveness[tactic]
	if !ok {
		return 0.5
	}
	v, ok := scores[personality]
	if !ok {
		return 0.5
	}
	return v
}
