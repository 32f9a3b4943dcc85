package security

import (
	"fmt"
	"strings"
)

// ReferenceSuffixLen is the number of random characters after the prefix.
const ReferenceSuffixLen = 6

var referenceCharset = []rune("ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")

// GenerateReference returns a human-readable workflow reference such as
// "REQ-7K2Q9D". Uniqueness is enforced by the database, not here.
func GenerateReference(prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", fmt.Errorf("reference prefix is required")
	}
	suffix, err := randomString(referenceCharset, ReferenceSuffixLen)
	if err != nil {
		return "", fmt.Errorf("generate reference: %w", err)
	}
	return prefix + "-" + suffix, nil
}
