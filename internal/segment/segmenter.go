package segment

import (
	"math"
	"strings"

	"segno/internal/render"
	"segno/internal/textutil"
)

// Segment is a contiguous page range believed to belong to one part.
// Pages are 1-based and the range is inclusive.
type Segment struct {
	Label    string
	FromPage int
	ToPage   int
}

// Result is the segmenter output. Confidence is 0-100; an empty segment
// list always carries confidence 0.
type Result struct {
	Segments   []Segment
	Confidence int
}

// Segmenter splits a document on header-text boundaries. A page whose header
// diverges from the running segment's label starts a new segment; pages with
// empty headers are treated as continuation pages.
type Segmenter struct {
	// boundary is the cosine similarity below which a non-empty header is
	// considered a new part rather than a restatement of the current one.
	boundary float64
}

// New returns a segmenter with the default boundary similarity.
func New() *Segmenter {
	return &Segmenter{boundary: 0.6}
}

// Segment groups the given per-page headers into parts. When the text-layer
// coverage is zero there is nothing to work with and the result is empty
// with confidence 0.
func (s *Segmenter) Segment(headers []render.PageHeader) Result {
	coverage := render.Coverage(headers)
	if coverage == 0 {
		return Result{}
	}

	var segments []Segment
	for _, page := range headers {
		header := strings.TrimSpace(page.Header)

		if len(segments) == 0 {
			segments = append(segments, Segment{Label: header, FromPage: page.Page, ToPage: page.Page})
			continue
		}

		current := &segments[len(segments)-1]
		if header == "" {
			// Continuation page: music continues without restating the part.
			current.ToPage = page.Page
			continue
		}
		if current.Label == "" {
			current.Label = header
			current.ToPage = page.Page
			continue
		}
		if textutil.Similarity(current.Label, header) >= s.boundary {
			current.ToPage = page.Page
			continue
		}
		segments = append(segments, Segment{Label: header, FromPage: page.Page, ToPage: page.Page})
	}

	return Result{Segments: segments, Confidence: confidence(coverage, segments)}
}

// confidence scales with how much of the document carries a text layer and
// how many of the resulting segments actually got a header label.
func confidence(coverage float64, segments []Segment) int {
	if len(segments) == 0 {
		return 0
	}
	labeled := 0
	for _, s := range segments {
		if s.Label != "" {
			labeled++
		}
	}
	score := 100 * coverage * float64(labeled) / float64(len(segments))
	rounded := int(math.Round(score))
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return rounded
}
