package result

import (
	"context"
	"errors"
	"net"
	"strings"
)

// ErrorCategory classifies why a link failed.
type ErrorCategory string

const (
	CategoryTimeout             ErrorCategory = "timeout"
	CategoryDNSFailure          ErrorCategory = "dns_failure"
	CategoryConnectionRefused   ErrorCategory = "connection_refused"
	CategoryIncorrectStatusCode ErrorCategory = "incorrect_status_code"
	CategoryUnknown             ErrorCategory = "unknown"
)

// ClassifyError determines the category of a failed link. A failure that
// still produced a status code means the code did not match the expectation.
func ClassifyError(err error, statusCode *int) ErrorCategory {
	if statusCode != nil {
		return CategoryIncorrectStatusCode
	}
	if err == nil {
		return CategoryUnknown
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return CategoryDNSFailure
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() {
			return CategoryTimeout
		}
		if opErr.Op == "dial" && strings.Contains(opErr.Error(), "connection refused") {
			return CategoryConnectionRefused
		}
	}

	// Browser engines report network failures as strings such as
	// "net::ERR_NAME_NOT_RESOLVED".
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "err_name_not_resolved"), strings.Contains(msg, "no such host"):
		return CategoryDNSFailure
	case strings.Contains(msg, "err_connection_refused"), strings.Contains(msg, "connection refused"):
		return CategoryConnectionRefused
	case strings.Contains(msg, "err_timed_out"), strings.Contains(msg, "timeout"):
		return CategoryTimeout
	}

	return CategoryUnknown
}

// FormatCategory returns a human-readable label for an error category.
func FormatCategory(cat ErrorCategory) string {
	switch cat {
	case CategoryTimeout:
		return "Timeouts"
	case CategoryDNSFailure:
		return "DNS Failures"
	case CategoryConnectionRefused:
		return "Connection Refused"
	case CategoryIncorrectStatusCode:
		return "Unexpected Status Codes"
	default:
		return "Other Errors"
	}
}
