package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PageHeader is the text found in the header band of one page.
type PageHeader struct {
	Page    int // 1-based
	Header  string
	HasText bool // any text on the page, not just the header band
}

// ExtractPageHeaders reads the PDF text layer and returns the header-band
// text per page. Scanned documents with no text layer yield empty headers
// with HasText false on every page.
func ExtractPageHeaders(path string, fraction float64) ([]PageHeader, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf text layer: %w", err)
	}
	defer file.Close()

	total := reader.NumPage()
	headers := make([]PageHeader, 0, total)
	for page := 1; page <= total; page++ {
		header, hasText := pageHeaderText(reader.Page(page), fraction)
		headers = append(headers, PageHeader{Page: page, Header: header, HasText: hasText})
	}
	return headers, nil
}

// Coverage returns the fraction of pages carrying any text layer, in [0, 1].
func Coverage(headers []PageHeader) float64 {
	if len(headers) == 0 {
		return 0
	}
	withText := 0
	for _, h := range headers {
		if h.HasText {
			withText++
		}
	}
	return float64(withText) / float64(len(headers))
}

// pageHeaderText collects text positioned in the top band of the page.
// The text layer of arbitrary uploads can be malformed in ways the parser
// panics on; treat those pages as having no text.
func pageHeaderText(page pdf.Page, fraction float64) (header string, hasText bool) {
	defer func() {
		if recover() != nil {
			header = ""
			hasText = false
		}
	}()

	if page.V.IsNull() {
		return "", false
	}
	texts := page.Content().Text
	if len(texts) == 0 {
		return "", false
	}

	top, bottom := pageVerticalBounds(page)
	threshold := top - (top-bottom)*fraction

	var band []pdf.Text
	for _, t := range texts {
		if t.Y >= threshold {
			band = append(band, t)
		}
	}
	return assembleRows(band), true
}

func pageVerticalBounds(page pdf.Page) (top, bottom float64) {
	top, bottom = 792, 0
	box := page.V.Key("MediaBox")
	if box.Kind() == pdf.Array && box.Len() == 4 {
		bottom = box.Index(1).Float64()
		top = box.Index(3).Float64()
	}
	if top <= bottom {
		top, bottom = 792, 0
	}
	return top, bottom
}

// assembleRows orders positioned text top-to-bottom, left-to-right, joining
// glyphs within a row and separating rows with spaces.
func assembleRows(texts []pdf.Text) string {
	if len(texts) == 0 {
		return ""
	}
	sort.SliceStable(texts, func(i, j int) bool {
		const rowTolerance = 2.0
		if texts[i].Y-texts[j].Y > rowTolerance {
			return true
		}
		if texts[j].Y-texts[i].Y > rowTolerance {
			return false
		}
		return texts[i].X < texts[j].X
	})

	var builder strings.Builder
	lastY := texts[0].Y
	for _, t := range texts {
		if lastY-t.Y > 2.0 {
			builder.WriteString(" ")
			lastY = t.Y
		}
		builder.WriteString(t.S)
	}
	return strings.Join(strings.Fields(builder.String()), " ")
}
