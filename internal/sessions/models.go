package sessions

import (
	"strings"
	"time"
)

// ParseStatus reflects whether an upload has been split into parts.
type ParseStatus string

const (
	ParsePending ParseStatus = "pending"
	Parsed       ParseStatus = "parsed"
	NotParsed    ParseStatus = "not_parsed"
)

// SecondPassStatus tracks the follow-up verification job.
type SecondPassStatus string

const (
	SecondPassNone    SecondPassStatus = "none"
	SecondPassQueued  SecondPassStatus = "queued"
	SecondPassRunning SecondPassStatus = "running"
	SecondPassDone    SecondPassStatus = "done"
	SecondPassFailed  SecondPassStatus = "failed"
)

// RoutingDecision is the pipeline's confidence-based choice for one attempt.
type RoutingDecision string

const (
	RouteAutoParseAutoApprove RoutingDecision = "auto_parse_auto_approve"
	RouteAutoParseSecondPass  RoutingDecision = "auto_parse_second_pass"
	RouteNoParseSecondPass    RoutingDecision = "no_parse_second_pass"
)

// Metadata holds the title-level fields returned by extraction.
type Metadata struct {
	Title         string `json:"title"`
	Composer      string `json:"composer"`
	Arranger      string `json:"arranger,omitempty"`
	Publisher     string `json:"publisher,omitempty"`
	CopyrightYear int    `json:"copyrightYear,omitempty"`
	Ensemble      string `json:"ensemble,omitempty"`
	FileType      string `json:"fileType,omitempty"`
	IsMultiPart   bool   `json:"isMultiPart"`
}

// Part describes one produced instrument part.
type Part struct {
	Instrument    string `json:"instrument"`
	PartName      string `json:"partName"`
	Section       string `json:"section,omitempty"`
	Transposition string `json:"transposition,omitempty"`
	PartNumber    int    `json:"partNumber,omitempty"`
	FromPage      int    `json:"fromPage"`
	ToPage        int    `json:"toPage"`
	StorageKey    string `json:"storageKey"`
	PageCount     int    `json:"pageCount"`
}

// Session is one upload's persisted lifecycle record.
type Session struct {
	ID         string
	FileID     string
	UploaderID string
	FileName   string
	StorageKey string
	PageCount  int

	ParseStatus         ParseStatus
	SecondPassStatus    SecondPassStatus
	RoutingDecision     RoutingDecision
	RequiresHumanReview bool

	// Confidence scores are nil until the corresponding stage has run.
	ExtractionConfidence   *int
	SegmentationConfidence *int
	FinalConfidence        *int

	Metadata *Metadata
	Parts    []Part

	ErrorMessage string
	CommittedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Stats aggregates session counts per parse status.
type Stats struct {
	Total      int
	Pending    int
	Parsed     int
	NotParsed  int
	NeedReview int
	Committed  int
}

// ParseStatusFromString converts a string into a known ParseStatus.
func ParseStatusFromString(value string) (ParseStatus, bool) {
	normalized := ParseStatus(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case ParsePending, Parsed, NotParsed:
		return normalized, true
	default:
		return "", false
	}
}

// SetFinalConfidence computes the run's final confidence: the minimum of the
// scores actually present. A run without segmentation uses extraction alone.
func (s *Session) SetFinalConfidence() {
	switch {
	case s.ExtractionConfidence == nil:
		s.FinalConfidence = nil
	case s.SegmentationConfidence == nil:
		v := *s.ExtractionConfidence
		s.FinalConfidence = &v
	default:
		v := min(*s.ExtractionConfidence, *s.SegmentationConfidence)
		s.FinalConfidence = &v
	}
}

// TotalPartPages sums the realized page counts across produced parts.
func (s *Session) TotalPartPages() int {
	total := 0
	for _, part := range s.Parts {
		total += part.PageCount
	}
	return total
}
