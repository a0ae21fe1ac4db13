package storage

import (
	"fmt"
	"path"
	"strings"
)

// UploadKey returns the object key for an original uploaded PDF.
func UploadKey(prefix, sessionID string) string {
	return join(prefix, sessionID, "original.pdf")
}

// PartKey returns the object key for a split part file. Index is 1-based and
// matches the order of the cutting instructions.
func PartKey(prefix, sessionID string, index int) string {
	return join(prefix, sessionID, "parts", fmt.Sprintf("%d.pdf", index))
}

func join(elements ...string) string {
	cleaned := make([]string, 0, len(elements))
	for _, element := range elements {
		element = strings.Trim(element, "/")
		if element != "" {
			cleaned = append(cleaned, element)
		}
	}
	return path.Join(cleaned...)
}
