package segment_test

import (
	"testing"

	"segno/internal/render"
	"segno/internal/segment"
)

func page(n int, header string, hasText bool) render.PageHeader {
	return render.PageHeader{Page: n, Header: header, HasText: hasText}
}

func TestSegmentNoTextLayer(t *testing.T) {
	headers := []render.PageHeader{
		page(1, "", false),
		page(2, "", false),
	}
	result := segment.New().Segment(headers)
	if len(result.Segments) != 0 {
		t.Fatalf("expected no segments without a text layer, got %+v", result.Segments)
	}
	if result.Confidence != 0 {
		t.Fatalf("expected confidence 0, got %d", result.Confidence)
	}
}

func TestSegmentGroupsByHeader(t *testing.T) {
	headers := []render.PageHeader{
		page(1, "Flute 1", true),
		page(2, "Flute 1", true),
		page(3, "", true),
		page(4, "Clarinet in Bb", true),
		page(5, "Clarinet in Bb", true),
	}
	result := segment.New().Segment(headers)
	if len(result.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %+v", result.Segments)
	}
	first, second := result.Segments[0], result.Segments[1]
	if first.Label != "Flute 1" || first.FromPage != 1 || first.ToPage != 3 {
		t.Fatalf("unexpected first segment %+v", first)
	}
	if second.Label != "Clarinet in Bb" || second.FromPage != 4 || second.ToPage != 5 {
		t.Fatalf("unexpected second segment %+v", second)
	}
	if result.Confidence != 100 {
		t.Fatalf("fully labeled full-coverage document should score 100, got %d", result.Confidence)
	}
}

func TestSegmentContinuationPagesExtendCurrentPart(t *testing.T) {
	headers := []render.PageHeader{
		page(1, "Trumpet in Bb 2", true),
		page(2, "", true),
		page(3, "", true),
		page(4, "Trombone", true),
	}
	result := segment.New().Segment(headers)
	if len(result.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %+v", result.Segments)
	}
	if result.Segments[0].ToPage != 3 {
		t.Fatalf("continuation pages should extend the part, got %+v", result.Segments[0])
	}
}

func TestSegmentConfidenceScalesWithCoverage(t *testing.T) {
	headers := []render.PageHeader{
		page(1, "Oboe", true),
		page(2, "", false),
		page(3, "", false),
		page(4, "", false),
	}
	result := segment.New().Segment(headers)
	if len(result.Segments) != 1 {
		t.Fatalf("expected 1 segment, got %+v", result.Segments)
	}
	if result.Confidence != 25 {
		t.Fatalf("quarter coverage should score 25, got %d", result.Confidence)
	}
}

func TestSegmentUnlabeledLeadingPages(t *testing.T) {
	headers := []render.PageHeader{
		page(1, "", true),
		page(2, "Horn in F", true),
		page(3, "", true),
	}
	result := segment.New().Segment(headers)
	if len(result.Segments) != 1 {
		t.Fatalf("expected 1 segment, got %+v", result.Segments)
	}
	got := result.Segments[0]
	if got.Label != "Horn in F" || got.FromPage != 1 || got.ToPage != 3 {
		t.Fatalf("unexpected segment %+v", got)
	}
	if result.Confidence != 100 {
		t.Fatalf("expected 100, got %d", result.Confidence)
	}
}

func TestSegmentSimilarHeadersStayTogether(t *testing.T) {
	headers := []render.PageHeader{
		page(1, "Symphony No. 5 Violin I", true),
		page(2, "Violin I Symphony No. 5", true),
	}
	result := segment.New().Segment(headers)
	if len(result.Segments) != 1 {
		t.Fatalf("reordered tokens of the same header must not split, got %+v", result.Segments)
	}
}
