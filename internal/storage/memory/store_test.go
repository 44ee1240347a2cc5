package memory

import (
	"context"
	"testing"
	"time"

	"github.com/dealsense/negotiator/internal/core/domain"
	"github.com/dealsense/negotiator/internal/core/ports"
)

func session(id string, status domain.SessionStatus, created time.Time) *domain.Session {
	return &domain.Session{
		ID:     id,
		Status: status,
		Phase:  domain.PhaseOpening,
		Params: domain.NegotiationParams{
			TargetPrice: 8000, MaxBudget: 10000,
			Approach: domain.ApproachDiplomatic, Timeline: domain.TimelineWeek,
		},
		Product:   domain.ProductData{ID: "p", Title: "thing", Price: 12000},
		CreatedAt: created,
	}
}

func TestSaveLoadIsolation(t *testing.T) {
	store := New()
	ctx := context.Background()

	orig := session("s1", domain.StatusActive, time.Now())
	if err := store.SaveSession(ctx, orig); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	// Mutating the caller's copy must not affect the stored session.
	orig.Status = domain.StatusFailed
	orig.Messages = append(orig.Messages, domain.ChatMessage{ID: "m1"})

	got, err := store.LoadSession(ctx, "s1")
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if got.Status != domain.StatusActive {
		t.Errorf("status = %s, want active", got.Status)
	}
	if len(got.Messages) != 0 {
		t.Errorf("messages = %d, want 0", len(got.Messages))
	}

	// Mutating the loaded copy must not affect the store either.
	got.Status = domain.StatusCancelled
	again, _ := store.LoadSession(ctx, "s1")
	if again.Status != domain.StatusActive {
		t.Errorf("status after reload = %s, want active", again.Status)
	}
}

func TestLoadMissing(t *testing.T) {
	store := New()
	_, err := store.LoadSession(context.Background(), "nope")
	if !domain.IsKind(err, domain.KindNotFound) {
		t.Errorf("err = %v, want not_found", err)
	}
}

func TestListFiltersAndPaginates(t *testing.T) {
	store := New()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	for i, st := range []domain.SessionStatus{domain.StatusActive, domain.StatusCompleted, domain.StatusActive} {
		s := session(string(rune('a'+i)), st, base.Add(time.Duration(i)*time.Hour))
		if err := store.SaveSession(ctx, s); err != nil {
			t.Fatalf("SaveSession: %v", err)
		}
	}

	all, err := store.ListSessions(ctx, ports.ListOptions{})
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(all) != 3 || all[0].ID != "c" || all[2].ID != "a" {
		t.Errorf("expected newest first, got %v", []string{all[0].ID, all[1].ID, all[2].ID})
	}

	active, err := store.ListSessions(ctx, ports.ListOptions{Status: string(domain.StatusActive)})
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(active) != 2 {
		t.Errorf("active = %d, want 2", len(active))
	}

	paged, err := store.ListSessions(ctx, ports.ListOptions{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(paged) != 1 || paged[0].ID != "b" {
		t.Errorf("paged = %v, want [b]", paged)
	}
}

func TestOutcomesAppendCountPrune(t *testing.T) {
	store := New()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		rec := &domain.OutcomeRecord{
			SessionID: string(rune('a' + i)),
			Category:  "Mobile Phones",
			Approach:  domain.ApproachDiplomatic,
			Outcome:   domain.OutcomeSuccess,
		}
		if err := store.AppendOutcome(ctx, rec); err != nil {
			t.Fatalf("AppendOutcome: %v", err)
		}
	}

	if n, _ := store.CountOutcomes(ctx); n != 5 {
		t.Errorf("count = %d, want 5", n)
	}

	if err := store.PruneOutcomes(ctx, 2); err != nil {
		t.Fatalf("PruneOutcomes: %v", err)
	}
	kept, err := store.ListOutcomes(ctx, "", "")
	if err != nil {
		t.Fatalf("ListOutcomes: %v", err)
	}
	if len(kept) != 2 || kept[0].SessionID != "d" {
		t.Errorf("kept = %v, want oldest dropped", kept)
	}
}

func TestListOutcomesFilter(t *testing.T) {
	store := New()
	ctx := context.Background()

	recs := []*domain.OutcomeRecord{
		{SessionID: "1", Category: "Cars", Approach: domain.ApproachAssertive},
		{SessionID: "2", Category: "Cars", Approach: domain.ApproachDiplomatic},
		{SessionID: "3", Category: "Gaming", Approach: domain.ApproachAssertive},
	}
	for _, rec := range recs {
		if err := store.AppendOutcome(ctx, rec); err != nil {
			t.Fatalf("AppendOutcome: %v", err)
		}
	}

	cars, _ := store.ListOutcomes(ctx, "Cars", "")
	if len(cars) != 2 {
		t.Errorf("cars = %d, want 2", len(cars))
	}
	both, _ := store.ListOutcomes(ctx, "Cars", domain.ApproachAssertive)
	if len(both) != 1 || both[0].SessionID != "1" {
		t.Errorf("filtered = %v, want [1]", both)
	}
}
