package errors

import (
	"errors"
	"strings"
)

// SanitizeError removes sensitive information from error messages returned by
// the admin API.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	var raceErr *UsageRaceError
	if errors.As(err, &raceErr) {
		return raceErr.Error()
	}
	if errors.Is(err, ErrNotFound) {
		return "asset not found"
	}

	errMsg := err.Error()

	// Connection strings and keys
	if strings.Contains(errMsg, "postgres://") || strings.Contains(errMsg, "password") ||
		strings.Contains(errMsg, "Bearer") || strings.Contains(errMsg, "apikey") {
		return "database connection failed"
	}

	lowerErrMsg := strings.ToLower(errMsg)
	sensitiveKeywords := []string{
		"/etc/", "/var/", "/usr/", "/home/", "/root/",
		"no such file or directory",
		"permission denied",
		"access denied",
	}
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(lowerErrMsg, keyword) {
			return "operation failed"
		}
	}

	if strings.Contains(lowerErrMsg, "connection refused") {
		return "service unavailable"
	}

	if strings.Contains(lowerErrMsg, "timeout") || strings.Contains(lowerErrMsg, "deadline exceeded") {
		return "request timeout"
	}

	return "internal server error"
}
