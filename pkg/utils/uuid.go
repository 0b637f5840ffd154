package utils

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// ParseUUID parses a string into a UUID
func ParseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(s))
}

// ParseOptionalUUID returns nil for an empty string
func ParseOptionalUUID(s string) (*uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	id, err := ParseUUID(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

var (
	codeInvalidChars = regexp.MustCompile("[^A-Z0-9-]")
	codeDashes       = regexp.MustCompile("-+")
)

// NormalizeCode turns free text into a catalog code, e.g. " lipid profile " -> "LIPID-PROFILE"
func NormalizeCode(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "-")
	s = codeInvalidChars.ReplaceAllString(s, "")
	s = codeDashes.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// NormalizeEmail lowercases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// StringPtr returns nil for an empty string
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
