package split

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// UnlabelledInstrument names the synthesized part covering pages no
// instruction claimed.
const UnlabelledInstrument = "Unlabelled"

// CuttingInstruction describes one part to carve out of the source document.
type CuttingInstruction struct {
	Instrument    string `json:"instrument"`
	PartName      string `json:"partName"`
	Section       string `json:"section,omitempty"`
	Transposition string `json:"transposition,omitempty"`
	PartNumber    int    `json:"partNumber,omitempty"`
	FromPage      int    `json:"fromPage"`
	ToPage        int    `json:"toPage"`
}

// PageCount returns the inclusive page span of the instruction.
func (c CuttingInstruction) PageCount() int {
	return c.ToPage - c.FromPage + 1
}

var titleCaser = cases.Title(language.English)

// Normalize cleans up model-produced instructions: trims text fields,
// title-cases instrument names, defaults part names, sorts by page order,
// and rejects ranges that fall outside the document or overlap each other.
func Normalize(instructions []CuttingInstruction, totalPages int) ([]CuttingInstruction, error) {
	if totalPages < 1 {
		return nil, fmt.Errorf("document has no pages")
	}
	normalized := make([]CuttingInstruction, 0, len(instructions))
	for _, instr := range instructions {
		instr.Instrument = titleCaser.String(strings.TrimSpace(instr.Instrument))
		instr.PartName = strings.TrimSpace(instr.PartName)
		instr.Section = strings.ToLower(strings.TrimSpace(instr.Section))
		instr.Transposition = strings.TrimSpace(instr.Transposition)
		if instr.PartName == "" {
			instr.PartName = instr.Instrument
			if instr.PartNumber > 0 {
				instr.PartName = fmt.Sprintf("%s %d", instr.Instrument, instr.PartNumber)
			}
		}
		if instr.FromPage < 1 || instr.ToPage < instr.FromPage || instr.ToPage > totalPages {
			return nil, fmt.Errorf(
				"instruction %q has invalid page range %d-%d for a %d page document",
				instr.PartName, instr.FromPage, instr.ToPage, totalPages,
			)
		}
		normalized = append(normalized, instr)
	}

	sort.SliceStable(normalized, func(i, j int) bool {
		if normalized[i].FromPage != normalized[j].FromPage {
			return normalized[i].FromPage < normalized[j].FromPage
		}
		return normalized[i].ToPage < normalized[j].ToPage
	})

	for i := 1; i < len(normalized); i++ {
		if normalized[i].FromPage <= normalized[i-1].ToPage {
			return nil, fmt.Errorf(
				"instructions %q and %q overlap on page %d",
				normalized[i-1].PartName, normalized[i].PartName, normalized[i].FromPage,
			)
		}
	}
	return normalized, nil
}

// FillGaps materializes an unlabelled part for every contiguous page range no
// instruction claimed, so each source page lands in exactly one part. The
// input must already be normalized (sorted, non-overlapping).
func FillGaps(instructions []CuttingInstruction, totalPages int) []CuttingInstruction {
	var healed []CuttingInstruction
	next := 1
	for _, instr := range instructions {
		if instr.FromPage > next {
			healed = append(healed, unlabelled(next, instr.FromPage-1))
		}
		healed = append(healed, instr)
		next = instr.ToPage + 1
	}
	if next <= totalPages {
		healed = append(healed, unlabelled(next, totalPages))
	}
	return healed
}

func unlabelled(from, to int) CuttingInstruction {
	return CuttingInstruction{
		Instrument: UnlabelledInstrument,
		PartName:   fmt.Sprintf("%s (pages %d-%d)", UnlabelledInstrument, from, to),
		FromPage:   from,
		ToPage:     to,
	}
}
