package gates

import (
	"fmt"
	"strings"

	"segno/internal/sessions"
)

// SegmentationFloor is the fixed minimum segmentation confidence below which
// an attempted segmentation blocks autonomous commit regardless of how
// confident extraction was.
const SegmentationFloor = 70

// scoreSections are exempt from the per-part page bound: a full score is
// legitimately long.
var scoreSections = map[string]struct{}{
	"score":           {},
	"full score":      {},
	"conductor":       {},
	"conductor score": {},
}

// forbiddenLabels are placeholder values the model emits when it could not
// read a part name. Any of them on a part blocks autonomous commit.
var forbiddenLabels = map[string]struct{}{
	"":        {},
	"null":    {},
	"none":    {},
	"unknown": {},
	"n/a":     {},
}

// Input is everything the gates inspect about one completed parse.
type Input struct {
	Parts                  []sessions.Part
	IsMultiPart            bool
	TotalPages             int
	SegmentationAttempted  bool
	SegmentationConfidence int
	FinalConfidence        int

	MaxPagesPerPart     int
	AutonomousThreshold int
}

// Result records which gate fired, if any.
type Result struct {
	Passed bool
	Gate   string
	Reason string
}

// Gate is one ordered quality check.
type Gate struct {
	Name  string
	Check func(Input) (bool, string)
}

// All returns the gates in evaluation order.
func All() []Gate {
	return []Gate{
		{Name: "forbidden_labels", Check: checkForbiddenLabels},
		{Name: "oversized_part", Check: checkOversizedPart},
		{Name: "implausible_part_count", Check: checkImplausiblePartCount},
		{Name: "segmentation_floor", Check: checkSegmentationFloor},
		{Name: "autonomous_threshold", Check: checkAutonomousThreshold},
	}
}

// Evaluate runs the gates in order and stops at the first failure.
func Evaluate(input Input) Result {
	for _, gate := range All() {
		if ok, reason := gate.Check(input); !ok {
			return Result{Passed: false, Gate: gate.Name, Reason: reason}
		}
	}
	return Result{Passed: true}
}

func checkForbiddenLabels(input Input) (bool, string) {
	for _, part := range input.Parts {
		for _, label := range []string{part.Instrument, part.PartName} {
			normalized := strings.ToLower(strings.TrimSpace(label))
			if _, forbidden := forbiddenLabels[normalized]; forbidden {
				return false, fmt.Sprintf("part %d carries placeholder label %q", part.PartNumber, label)
			}
		}
	}
	return true, ""
}

func checkOversizedPart(input Input) (bool, string) {
	if input.MaxPagesPerPart <= 0 {
		return true, ""
	}
	for _, part := range input.Parts {
		if isScoreSection(part.Section) {
			continue
		}
		if part.PageCount > input.MaxPagesPerPart {
			return false, fmt.Sprintf(
				"part %q spans %d pages, limit is %d",
				part.PartName, part.PageCount, input.MaxPagesPerPart,
			)
		}
	}
	return true, ""
}

func checkImplausiblePartCount(input Input) (bool, string) {
	if input.IsMultiPart && input.TotalPages > 10 && len(input.Parts) < 2 {
		return false, fmt.Sprintf(
			"multi-part document with %d pages produced only %d part(s)",
			input.TotalPages, len(input.Parts),
		)
	}
	return true, ""
}

func checkSegmentationFloor(input Input) (bool, string) {
	if input.SegmentationAttempted && input.SegmentationConfidence < SegmentationFloor {
		return false, fmt.Sprintf(
			"segmentation confidence %d is below the floor of %d",
			input.SegmentationConfidence, SegmentationFloor,
		)
	}
	return true, ""
}

func checkAutonomousThreshold(input Input) (bool, string) {
	if input.FinalConfidence < input.AutonomousThreshold {
		return false, fmt.Sprintf(
			"final confidence %d is below the autonomous approval threshold %d",
			input.FinalConfidence, input.AutonomousThreshold,
		)
	}
	return true, ""
}

func isScoreSection(section string) bool {
	_, ok := scoreSections[strings.ToLower(strings.TrimSpace(section))]
	return ok
}
