package middleware

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Input checks applied at the transport boundary, before the core sees a request.

const (
	maxFileNameLen = 255
	maxTargetLen   = 128
)

// ValidateFileName rejects empty, oversized or control-character file names.
func ValidateFileName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("file name cannot be empty")
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("file name must be valid UTF-8")
	}
	if utf8.RuneCountInString(name) > maxFileNameLen {
		return fmt.Errorf("file name longer than %d characters", maxFileNameLen)
	}
	if strings.ContainsFunc(name, unicode.IsControl) {
		return fmt.Errorf("invalid characters in file name")
	}
	return nil
}

// ValidateTargetObject bounds the target length; emptiness is the core's concern.
func ValidateTargetObject(target string) error {
	if utf8.RuneCountInString(target) > maxTargetLen {
		return fmt.Errorf("targetObject longer than %d characters", maxTargetLen)
	}
	if strings.ContainsFunc(target, unicode.IsControl) {
		return fmt.Errorf("invalid characters in targetObject")
	}
	return nil
}

// ValidatePage validates the page number
func ValidatePage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}
