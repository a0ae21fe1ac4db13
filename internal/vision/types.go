package vision

import (
	"segno/internal/sessions"
	"segno/internal/split"
)

// ExtractionResult is the full-document model output: title-level metadata,
// the multi-part flag, cutting instructions, and an overall confidence.
type ExtractionResult struct {
	Metadata        sessions.Metadata          `json:"metadata"`
	IsMultiPart     bool                       `json:"isMultiPart"`
	ConfidenceScore int                        `json:"confidenceScore"`
	Instructions    []split.CuttingInstruction `json:"instructions"`
	Raw             string                     `json:"-"`
}

// HeaderLabel is one page's label from the header-labeling pass.
type HeaderLabel struct {
	Page       int    `json:"page"`
	Label      string `json:"label"`
	Confidence int    `json:"confidence"`
}

// ExtractRequest carries the inputs for a full-document extraction call.
type ExtractRequest struct {
	// PageImages are paths to rendered full-page PNGs, in page order.
	PageImages []string
	// SeedLabels optionally carries per-page labels from a prior
	// header-labeling pass or the deterministic segmenter.
	SeedLabels []HeaderLabel
	// Model overrides the configured model when non-empty (the second pass
	// uses the stricter verification model this way).
	Model string
}
