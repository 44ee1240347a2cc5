// Package analytics records terminal session outcomes into an
// append-only, size-capped log and answers simple aggregate queries
// used to bias future strategy formulation. It is descriptive
// statistics, not a trained model.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/dealsense/negotiator/internal/core/domain"
	"github.com/dealsense/negotiator/internal/core/ports"
)

// Recorder writes outcome records and serves recommendations.
type Recorder struct {
	store  ports.OutcomeStore
	cap    int
	logger *slog.Logger
}

// NewRecorder builds a recorder over the given store. cap bounds the
// log; older records are pruned once it is exceeded.
func NewRecorder(store ports.OutcomeStore, cap int, logger *slog.Logger) *Recorder {
	if cap <= 0 {
		cap = 1000
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: store, cap: cap, logger: logger}
}

// RecordSession derives an outcome record from a finished session and
// appends it to the log.
func (r *Recorder) RecordSession(ctx context.Context, session *domain.Session) error {
	rec := BuildRecord(session, time.Now())
	if err := r.store.AppendOutcome(ctx, &rec); err != nil {
		return fmt.Errorf("append outcome: %w", err)
	}

	n, err := r.store.CountOutcomes(ctx)
	if err != nil {
		return fmt.Errorf("count outcomes: %w", err)
	}
	if n > r.cap {
		if err := r.store.PruneOutcomes(ctx, r.cap); err != nil {
			return fmt.Errorf("prune outcomes: %w", err)
		}
	}

	r.logger.Info("outcome recorded",
		slog.String("session_id", session.ID),
		slog.String("outcome", string(session.Outcome)),
		slog.String("category", session.Product.Category))
	return nil
}

// BuildRecord computes the analytics view of a finished session.
func BuildRecord(session *domain.Session, now time.Time) domain.OutcomeRecord {
	rec := domain.OutcomeRecord{
		SessionID:    session.ID,
		Category:     session.Product.Category,
		Approach:     session.Params.Approach,
		Outcome:      session.Outcome,
		TacticsUsed:  append([]domain.Tactic(nil), session.Tactics...),
		ListedPrice:  session.Product.Price,
		TargetPrice:  session.Params.TargetPrice,
		MessageCount: len(session.Messages),
		RecordedAt:   now,
	}

	for _, m := range session.Messages {
		switch m.Sender {
		case domain.SenderAgent:
			rec.AgentCount++
		case domain.SenderSeller:
			rec.SellerCount++
		}
	}

	if session.EndedAt != nil {
		rec.Duration = session.EndedAt.Sub(session.CreatedAt)
	}

	if session.FinalPrice != nil {
		fp := *session.FinalPrice
		rec.FinalPrice = &fp
		rec.Savings = session.Product.Price - fp
		if gap := session.Product.Price - session.Params.TargetPrice; gap > 0 {
			rec.GapClosedPct = clampPct(float64(rec.Savings) / float64(gap) * 100)
		}
	}

	return rec
}

// Recommend aggregates history for (category, approach): success rate,
// the most frequent tactics among successful sessions, and a confidence
// proportional to sample size.
func (r *Recorder) Recommend(ctx context.Context, category string, approach domain.Approach) (domain.Recommendation, error) {
	records, err := r.store.ListOutcomes(ctx, category, approach)
	if err != nil {
		return domain.Recommendation{}, fmt.Errorf("list outcomes: %w", err)
	}
	return Aggregate(records), nil
}

// Aggregate reduces matching outcome records to a recommendation.
// With no history it falls back to the shipped default bias.
func Aggregate(records []*domain.OutcomeRecord) domain.Recommendation {
	if len(records) == 0 {
		return domain.Recommendation{
			SuccessRate:        0.6,
			RecommendedTactics: []domain.Tactic{domain.TacticAnchoring, domain.TacticReciprocity},
			Confidence:         0.3,
		}
	}

	successes := 0
	freq := make(map[domain.Tactic]int)
	for _, rec := range records {
		if rec.Outcome != domain.OutcomeSuccess {
			continue
		}
		successes++
		for _, t := range rec.TacticsUsed {
			freq[t]++
		}
	}

	out := domain.Recommendation{
		SuccessRate: float64(successes) / float64(len(records)),
		Confidence:  minF(1.0, float64(len(records))/10),
		SampleSize:  len(records),
	}

	type tacticCount struct {
		tactic domain.Tactic
		count  int
	}
	counts := make([]tacticCount, 0, len(freq))
	for t, c := range freq {
		counts = append(counts, tacticCount{t, c})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].count != counts[j].count {
			return counts[i].count > counts[j].count
		}
		return counts[i].tactic < counts[j].tactic
	})
	for i := 0; i < len(counts) && i < 3; i++ {
		out.RecommendedTactics = append(out.RecommendedTactics, counts[i].tactic)
	}

	return out
}

func clampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
