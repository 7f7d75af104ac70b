package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mercator-hq/vigil/pkg/safety"
	"mercator-hq/vigil/pkg/safety/events"
	"mercator-hq/vigil/pkg/safety/profile"
)

type countingRecorder struct {
	mu          sync.Mutex
	evaluations map[string]int
	crises      int
	persistence map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{
		evaluations: make(map[string]int),
		persistence: make(map[string]int),
	}
}

func (r *countingRecorder) RecordEvaluation(kind string, level safety.Level, intervention safety.Intervention, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evaluations[kind+":"+level.String()]++
}

func (r *countingRecorder) RecordCrisis() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.crises++
}

func (r *countingRecorder) RecordPersistenceError(op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.persistence[op]++
}

type failingLog struct {
	*events.MemoryLog
}

func (failingLog) Append(ctx context.Context, e *safety.Event) error {
	return errors.New("database is locked")
}

type failingStore struct {
	*profile.MemoryStore
}

func (failingStore) Upsert(ctx context.Context, p *safety.Profile) error {
	return errors.New("connection refused")
}

func (failingStore) Get(ctx context.Context, userID string) (*safety.Profile, error) {
	return nil, errors.New("connection refused")
}

func TestNew_Defaults(t *testing.T) {
	e := New()

	if e.Catalog() == nil || e.Catalog().Current() == nil {
		t.Fatal("expected default catalog")
	}
	if e.Profiles() == nil {
		t.Fatal("expected default profile store")
	}
	if e.Events() == nil {
		t.Fatal("expected default event log")
	}

	v, err := e.EvaluateInteraction(context.Background(), "u", "What is the weather today?", "It is sunny.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != safety.SafeVerdict {
		t.Errorf("expected safe verdict, got %+v", v)
	}
}

func TestCrisisResponse(t *testing.T) {
	e := New()
	r := e.CrisisResponse("user-7")

	if r.UserID != "user-7" {
		t.Errorf("expected user-7, got %q", r.UserID)
	}
	if r.Message == "" {
		t.Error("expected a crisis message")
	}
	if r.Resources.Hotline == "" || r.Resources.TextLine == "" ||
		r.Resources.Emergency == "" || r.Resources.International == "" {
		t.Errorf("expected every resource to be populated, got %+v", r.Resources)
	}
	if len(r.ImmediateActions) == 0 {
		t.Error("expected immediate actions")
	}
	if !r.FollowupRequired || !r.HumanReviewNeeded {
		t.Error("expected followup and human review flags")
	}

	// Callers must not be able to alter the shared action list.
	r.ImmediateActions[0] = "changed"
	if e.CrisisResponse("x").ImmediateActions[0] == "changed" {
		t.Error("expected immediate actions to be copied")
	}
}

func TestResolveEvent(t *testing.T) {
	e := New()
	ctx := context.Background()

	v, _ := e.EvaluateInteraction(ctx, "u", "I want to end it all", "")
	if v.EventID == "" {
		t.Fatal("expected an event id")
	}
	if err := e.ResolveEvent(ctx, v.EventID); err != nil {
		t.Fatalf("ResolveEvent failed: %v", err)
	}
	ev, err := e.Events().Get(ctx, v.EventID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ev.Resolved {
		t.Error("expected event to be resolved")
	}

	if err := e.ResolveEvent(ctx, "missing"); !errors.Is(err, events.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestProfile_Unknown(t *testing.T) {
	e := New()
	p, err := e.Profile(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != nil {
		t.Errorf("expected nil profile, got %+v", p)
	}
}
