package utils

import (
	"fmt"
	"hash/crc32"
	"path"
	"strings"

	"github.com/google/uuid"
)

// CalculateHash generates a quoted CRC32 version token for the data
func CalculateHash(data []byte) string {
	table := crc32.MakeTable(crc32.IEEE)
	return fmt.Sprintf("\"%08x\"", crc32.Checksum(data, table))
}

// GenerateRandomID generates a random ID for subscriptions
func GenerateRandomID() string {
	return uuid.NewString()
}

// CleanDocumentPath normalises a document path to a slash separated relative form.
// Paths containing ".." elements are rejected.
func CleanDocumentPath(p string) (string, error) {
	p = strings.ReplaceAll(p, "\\", "/")
	cleaned := path.Clean("/" + p)
	cleaned = strings.TrimPrefix(cleaned, "/")

	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("empty document path")
	}
	for _, part := range strings.Split(p, "/") {
		if part == ".." {
			return "", fmt.Errorf("document path %q must not contain \"..\"", p)
		}
	}
	return cleaned, nil
}
