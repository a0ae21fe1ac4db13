package split

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
)

// PartResult is one carved-out part together with its rendered bytes.
type PartResult struct {
	Instruction CuttingInstruction
	Data        []byte
	PageCount   int
}

// Splitter extracts page ranges from a PDF into standalone documents.
type Splitter struct{}

// NewSplitter returns a ready splitter.
func NewSplitter() *Splitter {
	return &Splitter{}
}

// Split carves the source PDF into one document per instruction. The
// instructions must be normalized and gap-healed so every page is claimed
// exactly once; the realized page counts are verified against the claims.
func (s *Splitter) Split(source io.ReadSeeker, instructions []CuttingInstruction) ([]PartResult, error) {
	ctx, err := api.ReadAndValidate(source, nil)
	if err != nil {
		return nil, fmt.Errorf("read source pdf: %w", err)
	}

	results := make([]PartResult, 0, len(instructions))
	for _, instr := range instructions {
		pages := make([]int, 0, instr.PageCount())
		for page := instr.FromPage; page <= instr.ToPage; page++ {
			pages = append(pages, page)
		}

		partCtx, err := pdfcpu.ExtractPages(ctx, pages, false)
		if err != nil {
			return nil, fmt.Errorf("extract pages %d-%d for %q: %w", instr.FromPage, instr.ToPage, instr.PartName, err)
		}
		if err := partCtx.EnsurePageCount(); err != nil {
			return nil, fmt.Errorf("count pages for %q: %w", instr.PartName, err)
		}
		var buf bytes.Buffer
		if err := api.WriteContext(partCtx, &buf); err != nil {
			return nil, fmt.Errorf("write part %q: %w", instr.PartName, err)
		}
		if partCtx.PageCount != instr.PageCount() {
			return nil, fmt.Errorf(
				"part %q realized %d pages, instruction claims %d",
				instr.PartName, partCtx.PageCount, instr.PageCount(),
			)
		}

		results = append(results, PartResult{
			Instruction: instr,
			Data:        buf.Bytes(),
			PageCount:   partCtx.PageCount,
		})
	}
	return results, nil
}
