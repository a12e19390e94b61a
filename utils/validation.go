package utils

import (
	"os"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	identifierPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]{0,127}$`)
	unsafeIdentChars  = regexp.MustCompile(`[^a-z0-9_.-]`)
)

// ValidIdentifier reports whether s can be used as a table or partner id.
// Ids are lowercase, start with a letter or digit and hold at most 128 characters.
func ValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// SanitizeIdentifier lowercases s, turns whitespace into underscores and strips
// everything else that is not allowed in an identifier.
func SanitizeIdentifier(s string) string {
	sanitized := strings.ToLower(strings.TrimSpace(s))
	sanitized = strings.Join(strings.Fields(sanitized), "_")
	sanitized = strings.ReplaceAll(sanitized, "..", "")
	sanitized = unsafeIdentChars.ReplaceAllString(sanitized, "")
	sanitized = strings.TrimLeft(sanitized, "_.-")
	if len(sanitized) > 128 {
		sanitized = sanitized[:128]
	}
	return sanitized
}

// VerifyDirExists checks that path exists and is a directory.
func VerifyDirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// GenerateRequestID creates a unique request identifier using UUID v4.
func GenerateRequestID() string {
	return uuid.New().String()
}
