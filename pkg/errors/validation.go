package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateModelName validates a model name for safety and correctness.
// Model names appear in cache keys, session records and export filenames,
// so the rules are intentionally conservative:
//   - No empty names
//   - No control characters
//   - No path traversal sequences (.., //, etc.)
//   - No null bytes
//   - Maximum length of 256 characters
func ValidateModelName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidModel, "model name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidModel, "model name too long (max 256 characters)")
	}

	// Check for control characters and null bytes
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidModel, "model name contains invalid control characters")
		}
	}

	// Check for path traversal patterns
	dangerousPatterns := []string{
		"..",   // Parent directory
		"//",   // Double slash
		"\x00", // Null byte
		"\\",   // Backslash (Windows path)
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidModel, "model name contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// ValidatePath validates a user-supplied export path for safety.
// It prevents path traversal attacks and ensures reasonable path length.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	// Check for null bytes and control characters
	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	// Check for path traversal
	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	// No backslashes (potential Windows path injection)
	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}

// sessionNameRegex matches session names safe for filenames and URLs.
var sessionNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// ValidateSessionName validates a user-facing session name.
func ValidateSessionName(name string) error {
	if err := ValidateModelName(name); err != nil {
		return err
	}

	if !sessionNameRegex.MatchString(name) {
		return New(ErrCodeInvalidModel, "invalid session name: %q", name)
	}

	return nil
}
