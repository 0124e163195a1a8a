package middleware

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/bryanwahyu/whatif-lab/internal/domain/scenario"
)

// Input validation and sanitization utilities

var taskIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidateTaskID checks a video task id before it is sent upstream.
func ValidateTaskID(taskID string) error {
	if taskID == "" {
		return fmt.Errorf("task ID cannot be empty")
	}
	if !taskIDPattern.MatchString(taskID) {
		return fmt.Errorf("invalid task ID format")
	}
	return nil
}

// ValidateLimit parses the limit query parameter; empty means the maximum.
func ValidateLimit(raw string) (int, error) {
	if raw == "" {
		return scenario.MaxRecent, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("limit must be an integer")
	}
	return scenario.ClampLimit(n), nil
}
