package directory

import (
	"errors"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/go-hclog"
)

// LogOperation runs fn, logging start, duration and outcome with the given
// fields.
func LogOperation(logger hclog.Logger, operation string, fields map[string]any, fn func() error) error {
	start := time.Now()

	args := fieldArgs(fields)
	args = append(args, "operation", operation)

	logger.Debug("starting operation", args...)

	err := fn()

	args = append(args, "duration_ms", time.Since(start).Milliseconds())

	if err != nil {
		args = append(args, "error", err.Error())
		logger.Error("operation failed", args...)
	} else {
		logger.Debug("operation completed", args...)
	}

	return err
}

// LogDirectoryError logs a failed directory operation with any LDAP result
// code and diagnostic message the error carries.
func LogDirectoryError(logger hclog.Logger, operation string, err error, fields map[string]any) {
	args := fieldArgs(fields)
	args = append(args, "operation", operation, "error", err.Error())

	var ldapErr *ldap.Error
	if errors.As(err, &ldapErr) {
		args = append(args, "ldap_result_code", ldapErr.ResultCode)
		if ldapErr.MatchedDN != "" {
			args = append(args, "ldap_matched_dn", ldapErr.MatchedDN)
		}
		if ldapErr.Err != nil {
			args = append(args, "ldap_diagnostic_message", ldapErr.Err.Error())
		}
	}

	logger.Error("directory operation failed", args...)
}

// fieldArgs flattens a field map into hclog key/value arguments, redacting
// credentials.
func fieldArgs(fields map[string]any) []any {
	args := make([]any, 0, 2*(len(fields)+3))
	for k, v := range SanitizeFields(fields) {
		args = append(args, k, v)
	}
	return args
}

// SanitizeFields removes sensitive information from log fields.
func SanitizeFields(fields map[string]any) map[string]any {
	sanitized := make(map[string]any, len(fields))

	sensitiveKeys := map[string]bool{
		"password":    true,
		"passwd":      true,
		"bind_pw":     true,
		"secret":      true,
		"token":       true,
		"key":         true,
		"credential":  true,
		"credentials": true,
	}

	for k, v := range fields {
		if sensitiveKeys[k] {
			sanitized[k] = "[REDACTED]"
			continue
		}

		if str, ok := v.(string); ok && containsSensitivePattern(str) {
			sanitized[k] = "[REDACTED]"
			continue
		}

		sanitized[k] = v
	}

	return sanitized
}

// containsSensitivePattern checks for credential material embedded in a
// string value.
func containsSensitivePattern(s string) bool {
	patterns := []string{
		"password=",
		"passwd=",
		"secret=",
		"token=",
	}

	lower := strings.ToLower(s)
	for _, pattern := range patterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}

	return false
}
