package testsupport

import (
	"fmt"
	"strings"
	"testing"
)

// PDF generates a minimal, structurally valid PDF with the requested number
// of blank pages. The output has no text layer, which is also what a pure
// image scan looks like to the text extractor.
func PDF(t testing.TB, pages int) []byte {
	t.Helper()
	if pages < 1 {
		t.Fatalf("page count must be positive, got %d", pages)
	}

	var body strings.Builder
	offsets := make([]int, 0, pages+3)

	write := func(obj string) {
		offsets = append(offsets, body.Len())
		body.WriteString(obj)
	}

	body.WriteString("%PDF-1.4\n")

	write("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	kids := make([]string, pages)
	for i := 0; i < pages; i++ {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}
	write(fmt.Sprintf(
		"2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 612 792] >>\nendobj\n",
		strings.Join(kids, " "), pages,
	))

	for i := 0; i < pages; i++ {
		write(fmt.Sprintf("%d 0 obj\n<< /Type /Page /Parent 2 0 R >>\nendobj\n", i+3))
	}

	xrefOffset := body.Len()
	size := pages + 3
	body.WriteString(fmt.Sprintf("xref\n0 %d\n", size))
	body.WriteString("0000000000 65535 f \n")
	for _, offset := range offsets {
		body.WriteString(fmt.Sprintf("%010d 00000 n \n", offset))
	}
	body.WriteString(fmt.Sprintf(
		"trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		size, xrefOffset,
	))

	return []byte(body.String())
}
