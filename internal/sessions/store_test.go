package sessions_test

import (
	"context"
	"testing"
	"time"

	"segno/internal/sessions"
	"segno/internal/testsupport"
)

func TestNewUploadDefaults(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenSessionStore(t, cfg)
	ctx := context.Background()

	session, err := store.NewUpload(ctx, "file-1", "user-1", "symphony.pdf", "uploads/abc/original.pdf")
	if err != nil {
		t.Fatalf("NewUpload failed: %v", err)
	}
	if session.ID == "" {
		t.Fatal("expected generated session id")
	}
	if session.ParseStatus != sessions.ParsePending {
		t.Fatalf("expected pending status, got %q", session.ParseStatus)
	}
	if session.SecondPassStatus != sessions.SecondPassNone {
		t.Fatalf("expected no second pass, got %q", session.SecondPassStatus)
	}
	if !session.RequiresHumanReview {
		t.Fatal("new sessions must default to requiring review")
	}
	if session.ExtractionConfidence != nil || session.FinalConfidence != nil {
		t.Fatal("confidence scores must be nil before processing")
	}
}

func TestNewUploadRequiresStorageKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenSessionStore(t, cfg)

	if _, err := store.NewUpload(context.Background(), "", "", "x.pdf", "  "); err == nil {
		t.Fatal("expected error for missing storage key")
	}
}

func TestUpdateRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenSessionStore(t, cfg)
	ctx := context.Background()

	session, err := store.NewUpload(ctx, "file-2", "user-2", "quartet.pdf", "uploads/q/original.pdf")
	if err != nil {
		t.Fatalf("NewUpload failed: %v", err)
	}

	extraction, segmentation := 92, 88
	committed := time.Now().UTC().Truncate(time.Second)
	session.PageCount = 12
	session.ParseStatus = sessions.Parsed
	session.SecondPassStatus = sessions.SecondPassQueued
	session.RoutingDecision = sessions.RouteAutoParseSecondPass
	session.RequiresHumanReview = true
	session.ExtractionConfidence = &extraction
	session.SegmentationConfidence = &segmentation
	session.SetFinalConfidence()
	session.Metadata = &sessions.Metadata{
		Title:       "String Quartet No. 2",
		Composer:    "Borodin",
		Ensemble:    "string quartet",
		IsMultiPart: true,
	}
	session.Parts = []sessions.Part{
		{Instrument: "Violin", PartName: "Violin I", PartNumber: 1, FromPage: 1, ToPage: 4, StorageKey: "uploads/q/parts/1.pdf", PageCount: 4},
		{Instrument: "Violin", PartName: "Violin II", PartNumber: 2, FromPage: 5, ToPage: 8, StorageKey: "uploads/q/parts/2.pdf", PageCount: 4},
		{Instrument: "Cello", PartName: "Cello", FromPage: 9, ToPage: 12, StorageKey: "uploads/q/parts/3.pdf", PageCount: 4},
	}
	session.CommittedAt = &committed

	if err := store.Update(ctx, session); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	fetched, err := store.GetByID(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil {
		t.Fatal("session missing after update")
	}
	if fetched.FinalConfidence == nil || *fetched.FinalConfidence != 88 {
		t.Fatalf("final confidence lost: %v", fetched.FinalConfidence)
	}
	if fetched.Metadata == nil || fetched.Metadata.Composer != "Borodin" {
		t.Fatalf("metadata lost: %+v", fetched.Metadata)
	}
	if len(fetched.Parts) != 3 || fetched.Parts[1].PartName != "Violin II" {
		t.Fatalf("parts lost: %+v", fetched.Parts)
	}
	if fetched.TotalPartPages() != 12 {
		t.Fatalf("expected 12 part pages, got %d", fetched.TotalPartPages())
	}
	if fetched.CommittedAt == nil || !fetched.CommittedAt.Equal(committed) {
		t.Fatalf("committed timestamp lost: %v", fetched.CommittedAt)
	}
}

func TestGetByIDMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenSessionStore(t, cfg)

	session, err := store.GetByID(context.Background(), "no-such-session")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if session != nil {
		t.Fatalf("expected nil for missing session, got %+v", session)
	}
}

func TestSetFinalConfidence(t *testing.T) {
	extraction, segmentation := 95, 55
	cases := []struct {
		name    string
		session sessions.Session
		want    *int
	}{
		{"both present takes min", sessions.Session{ExtractionConfidence: &extraction, SegmentationConfidence: &segmentation}, &segmentation},
		{"extraction only", sessions.Session{ExtractionConfidence: &extraction}, &extraction},
		{"nothing computed", sessions.Session{}, nil},
	}
	for _, tc := range cases {
		tc.session.SetFinalConfidence()
		got := tc.session.FinalConfidence
		switch {
		case tc.want == nil && got != nil:
			t.Errorf("%s: expected nil, got %d", tc.name, *got)
		case tc.want != nil && (got == nil || *got != *tc.want):
			t.Errorf("%s: got %v, want %d", tc.name, got, *tc.want)
		}
	}
}

func TestListAndStats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenSessionStore(t, cfg)
	ctx := context.Background()

	first, err := store.NewUpload(ctx, "f1", "u", "a.pdf", "k/a.pdf")
	if err != nil {
		t.Fatalf("NewUpload failed: %v", err)
	}
	second, err := store.NewUpload(ctx, "f2", "u", "b.pdf", "k/b.pdf")
	if err != nil {
		t.Fatalf("NewUpload failed: %v", err)
	}

	first.ParseStatus = sessions.Parsed
	first.RequiresHumanReview = false
	if err := store.Update(ctx, first); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	second.ParseStatus = sessions.NotParsed
	if err := store.Update(ctx, second); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	parsed, err := store.List(ctx, sessions.Parsed)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(parsed) != 1 || parsed[0].ID != first.ID {
		t.Fatalf("unexpected parsed list: %+v", parsed)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 2 || stats.Parsed != 1 || stats.NotParsed != 1 || stats.NeedReview != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
