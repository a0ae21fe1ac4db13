package gates_test

import (
	"testing"

	"segno/internal/gates"
	"segno/internal/sessions"
)

func passingInput() gates.Input {
	return gates.Input{
		Parts: []sessions.Part{
			{Instrument: "Flute", PartName: "Flute 1", PageCount: 4},
			{Instrument: "Oboe", PartName: "Oboe", PageCount: 4},
			{Instrument: "Conductor", PartName: "Full Score", Section: "score", PageCount: 40},
		},
		IsMultiPart:            true,
		TotalPages:             48,
		SegmentationAttempted:  true,
		SegmentationConfidence: 90,
		FinalConfidence:        96,
		MaxPagesPerPart:        20,
		AutonomousThreshold:    95,
	}
}

func TestEvaluateAllPass(t *testing.T) {
	result := gates.Evaluate(passingInput())
	if !result.Passed {
		t.Fatalf("expected pass, got gate %q: %s", result.Gate, result.Reason)
	}
}

func TestForbiddenLabels(t *testing.T) {
	for _, label := range []string{"", "null", "Unknown", " N/A "} {
		input := passingInput()
		input.Parts[0].Instrument = label
		result := gates.Evaluate(input)
		if result.Passed || result.Gate != "forbidden_labels" {
			t.Errorf("label %q should fire forbidden_labels, got %+v", label, result)
		}
	}
}

func TestOversizedPartExemptsScores(t *testing.T) {
	input := passingInput()
	input.Parts[1].PageCount = 25
	result := gates.Evaluate(input)
	if result.Passed || result.Gate != "oversized_part" {
		t.Fatalf("oversized oboe part should fail, got %+v", result)
	}

	// The 40-page score in the baseline input is already over the limit and
	// must not fire.
	if result := gates.Evaluate(passingInput()); !result.Passed {
		t.Fatalf("score sections must be exempt, got %+v", result)
	}
}

func TestImplausiblePartCount(t *testing.T) {
	input := passingInput()
	input.Parts = input.Parts[:1]
	result := gates.Evaluate(input)
	if result.Passed || result.Gate != "implausible_part_count" {
		t.Fatalf("single part from a large multi-part document should fail, got %+v", result)
	}

	// Short documents are allowed a single part.
	input.TotalPages = 8
	input.Parts[0].PageCount = 8
	if result := gates.Evaluate(input); !result.Passed {
		t.Fatalf("short document should pass, got %+v", result)
	}
}

func TestSegmentationFloor(t *testing.T) {
	input := passingInput()
	input.SegmentationConfidence = 55
	result := gates.Evaluate(input)
	if result.Passed || result.Gate != "segmentation_floor" {
		t.Fatalf("segmentation confidence 55 should fail the floor, got %+v", result)
	}

	// Runs that never attempted segmentation are not subject to the floor.
	input.SegmentationAttempted = false
	if result := gates.Evaluate(input); !result.Passed {
		t.Fatalf("unattempted segmentation must not fire the floor, got %+v", result)
	}
}

func TestAutonomousThreshold(t *testing.T) {
	input := passingInput()
	input.FinalConfidence = 94
	result := gates.Evaluate(input)
	if result.Passed || result.Gate != "autonomous_threshold" {
		t.Fatalf("final confidence below threshold should fail, got %+v", result)
	}
}

func TestGateOrder(t *testing.T) {
	// When several gates would fire, the earliest one wins.
	input := passingInput()
	input.Parts[0].PartName = "null"
	input.SegmentationConfidence = 10
	input.FinalConfidence = 10
	result := gates.Evaluate(input)
	if result.Gate != "forbidden_labels" {
		t.Fatalf("expected forbidden_labels first, got %+v", result)
	}
}
