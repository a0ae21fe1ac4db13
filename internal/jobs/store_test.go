package jobs_test

import (
	"context"
	"testing"
	"time"

	"segno/internal/jobs"
	"segno/internal/testsupport"
)

func TestEnqueueDefaultsPriority(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJobStore(t, cfg)
	ctx := context.Background()

	job, err := store.Enqueue(ctx, jobs.TypeSecondPass, "session-1", 0, 3)
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if job.Priority != jobs.PrioritySecondPass {
		t.Fatalf("expected default second-pass priority, got %d", job.Priority)
	}
	if job.Status != jobs.StatusPending || job.Attempts != 0 {
		t.Fatalf("unexpected initial state: %+v", job)
	}
}

func TestEnqueueRejectsUnknownType(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJobStore(t, cfg)

	if _, err := store.Enqueue(context.Background(), jobs.Type("reindex"), "s", 0, 1); err == nil {
		t.Fatal("expected error for unknown job type")
	}
}

func TestClaimNextHonorsPriority(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJobStore(t, cfg)
	ctx := context.Background()

	if _, err := store.Enqueue(ctx, jobs.TypeProcess, "fresh-upload", 0, 3); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if _, err := store.Enqueue(ctx, jobs.TypeSecondPass, "awaiting-review", 0, 3); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	claimed, err := store.ClaimNext(ctx)
	if err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}
	if claimed == nil || claimed.SessionID != "awaiting-review" {
		t.Fatalf("expected second-pass job first, got %+v", claimed)
	}
	if claimed.Status != jobs.StatusRunning || claimed.Attempts != 1 {
		t.Fatalf("claim should mark running with one attempt: %+v", claimed)
	}

	next, err := store.ClaimNext(ctx)
	if err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}
	if next == nil || next.SessionID != "fresh-upload" {
		t.Fatalf("expected process job second, got %+v", next)
	}

	none, err := store.ClaimNext(ctx)
	if err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}
	if none != nil {
		t.Fatalf("expected empty queue, got %+v", none)
	}
}

func TestRescheduleDelaysNextClaim(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJobStore(t, cfg)
	ctx := context.Background()

	now := time.Now().UTC()
	store.SetClock(func() time.Time { return now })

	job, err := store.Enqueue(ctx, jobs.TypeProcess, "s", 0, 3)
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	claimed, err := store.ClaimNext(ctx)
	if err != nil || claimed == nil {
		t.Fatalf("ClaimNext failed: %v %v", claimed, err)
	}
	if err := store.Reschedule(ctx, job.ID, 30*time.Second, "model timeout"); err != nil {
		t.Fatalf("Reschedule failed: %v", err)
	}

	if again, err := store.ClaimNext(ctx); err != nil || again != nil {
		t.Fatalf("job should not be due yet: %+v %v", again, err)
	}

	store.SetClock(func() time.Time { return now.Add(time.Minute) })
	again, err := store.ClaimNext(ctx)
	if err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}
	if again == nil || again.ID != job.ID || again.Attempts != 2 {
		t.Fatalf("expected rescheduled job with second attempt, got %+v", again)
	}
	if again.ErrorMessage != "model timeout" {
		t.Fatalf("expected retained error message, got %q", again.ErrorMessage)
	}
}

func TestMarkFailedAndCompleted(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJobStore(t, cfg)
	ctx := context.Background()

	job, err := store.Enqueue(ctx, jobs.TypeAutoCommit, "s", 0, 1)
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if _, err := store.ClaimNext(ctx); err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}
	if err := store.MarkFailed(ctx, job.ID, "session missing"); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}
	failed, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if failed.Status != jobs.StatusFailed || failed.ErrorMessage != "session missing" {
		t.Fatalf("unexpected failed state: %+v", failed)
	}

	other, err := store.Enqueue(ctx, jobs.TypeProcess, "s2", 0, 1)
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if err := store.MarkCompleted(ctx, other.ID); err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}
	done, err := store.GetByID(ctx, other.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if done.Status != jobs.StatusCompleted {
		t.Fatalf("expected completed, got %+v", done)
	}
}

func TestResetStuckRunning(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJobStore(t, cfg)
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Hour)
	store.SetClock(func() time.Time { return past })
	job, err := store.Enqueue(ctx, jobs.TypeProcess, "s", 0, 3)
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if _, err := store.ClaimNext(ctx); err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}

	store.SetClock(func() time.Time { return time.Now().UTC() })
	reset, err := store.ResetStuckRunning(ctx, time.Now().UTC().Add(-30*time.Minute))
	if err != nil {
		t.Fatalf("ResetStuckRunning failed: %v", err)
	}
	if reset != 1 {
		t.Fatalf("expected 1 reset job, got %d", reset)
	}
	recovered, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if recovered.Status != jobs.StatusPending {
		t.Fatalf("expected pending after reset, got %+v", recovered)
	}
}

func TestBackoff(t *testing.T) {
	base := 5 * time.Second
	max := 2 * time.Minute
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 5 * time.Second},
		{2, 10 * time.Second},
		{3, 20 * time.Second},
		{4, 40 * time.Second},
		{5, 80 * time.Second},
		{6, 2 * time.Minute},
		{10, 2 * time.Minute},
	}
	for _, tc := range cases {
		if got := jobs.Backoff(tc.attempt, base, max); got != tc.want {
			t.Errorf("Backoff(%d) = %s, want %s", tc.attempt, got, tc.want)
		}
	}
}
