package negotiation

import (
	"reflect"
	"testing"

	"github.com/dealsense/negotiator/internal/core/domain"
)

func analysisWith(p domain.Personality) domain.SellerAnalysis {
	a := domain.NeutralAnalysis()
	a.Personality = p
	return a
}

func TestTacticSelection(t *testing.T) {
	s := NewTacticSelector(nil)

	tests := []struct {
		name     string
		phase    domain.NegotiationPhase
		analysis domain.SellerAnalysis
		want     []domain.Tactic
	}{
		{
			name:     "opening anchors",
			phase:    domain.PhaseOpening,
			analysis: analysisWith(domain.PersonalityFlexible),
			want:     []domain.Tactic{domain.TacticAnchoring},
		},
		{
			name:  "opening with urgent eager seller adds urgency",
			phase: domain.PhaseOpening,
			analysis: func() domain.SellerAnalysis {
				a := analysisWith(domain.PersonalityEager)
				a.Urgency = domain.UrgencyHigh
				return a
			}(),
			want: []domain.Tactic{domain.TacticAnchoring, domain.TacticUrgency},
		},
		{
			name:  "bargaining with flexible seller reciprocates",
			phase: domain.PhaseBargaining,
			analysis: func() domain.SellerAnalysis {
				a := analysisWith(domain.PersonalityFlexible)
				a.Flexibility = 0.8
				return a
			}(),
			want: []domain.Tactic{domain.TacticReciprocity},
		},
		{
			name:  "bargaining price objection adds social proof",
			phase: domain.PhaseBargaining,
			analysis: func() domain.SellerAnalysis {
				a := analysisWith(domain.PersonalityFirm)
				a.Flexibility = 0.7
				a.Objections = []domain.Objection{domain.ObjectionPriceTooLow}
				return a
			}(),
			// reciprocity scores 0.5 for firm, social_proof 0.6
			want: []domain.Tactic{domain.TacticReciprocity, domain.TacticSocialProof},
		},
		{
			name:     "closing commits",
			phase:    domain.PhaseClosing,
			analysis: analysisWith(domain.PersonalityHesitant),
			want:     []domain.Tactic{domain.TacticCommitment},
		},
		{
			name:     "deadlock bundles and appeals to authority",
			phase:    domain.PhaseDeadlock,
			analysis: analysisWith(domain.PersonalityFirm),
			want:     []domain.Tactic{domain.TacticBundling, domain.TacticAuthority},
		},
		{
			name:     "low effectiveness filters out",
			phase:    domain.PhaseOpening,
			analysis: analysisWith(domain.PersonalityFirm),
			// anchoring scores exactly 0.4 for firm, below the cut
			want: nil,
		},
		{
			name:     "exploration has no tactic candidates",
			phase:    domain.PhaseExploration,
			analysis: analysisWith(domain.PersonalityFlexible),
			want:     nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Select(tt.phase, tt.analysis)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Select = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTacticSelectorOverrides(t *testing.T) {
	s := NewTacticSelector(EffectivenessTable{
		domain.TacticAnchoring: {domain.PersonalityFirm: 0.9},
	})

	got := s.Select(domain.PhaseOpening, analysisWith(domain.PersonalityFirm))
	if len(got) != 1 || got[0] != domain.TacticAnchoring {
		t.Errorf("Select with override = %v, want [anchoring]", got)
	}

	// Other personalities keep their defaults.
	got = s.Select(domain.PhaseOpening, analysisWith(domain.PersonalityFlexible))
	if len(got) != 1 || got[0] != domain.TacticAnchoring {
		t.Errorf("Select default = %v, want [anchoring]", got)
	}
}

func TestTacticCap(t *testing.T) {
	// Score everything high so all candidates survive the filter, then
	// confirm the cap holds.
	table := EffectivenessTable{}
	for _, tactic := range domain.AllTactics() {
		table[tactic] = map[domain.Personality]float64{domain.PersonalityEager: 0.9}
	}
	s := NewTacticSelector(table)

	a := analysisWith(domain.PersonalityEager)
	a.Urgency = domain.UrgencyHigh
	a.Flexibility = 0.9
	a.Objections = []domain.Objection{domain.ObjectionPriceTooLow}

	for _, phase := range []domain.NegotiationPhase{
		domain.PhaseOpening, domain.PhaseBargaining, domain.PhaseClosing, domain.PhaseDeadlock,
	} {
		if got := s.Select(phase, a); len(got) > maxTacticsPerTurn {
			t.Errorf("phase %s selected %d tactics, cap is %d", phase, len(got), maxTacticsPerTurn)
		}
	}
}
