package domain

import (
	"fmt"
	"time"
)

// FailureKind classifies why an ingestion request did not succeed.
type FailureKind int

const (
	// FailureParse means a body was returned but could not be parsed.
	FailureParse FailureKind = iota + 1
	// FailureNoData means the response carried no body.
	FailureNoData
	// FailureStatus means the server answered with a status other than 200.
	FailureStatus
	// FailureTransport means no response was received.
	FailureTransport
)

// String returns a short label suitable for logs and metric labels.
func (k FailureKind) String() string {
	switch k {
	case FailureParse:
		return "parse_error"
	case FailureNoData:
		return "no_data"
	case FailureStatus:
		return "status"
	case FailureTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Failure is the error returned for a failed request. Use errors.As to
// inspect it; Unwrap exposes the transport cause when there is one.
type Failure struct {
	Kind FailureKind

	// StatusCode is set for FailureStatus (and any failure with a response).
	StatusCode int

	// RetryAfter is the server's Retry-After hint, zero when absent.
	RetryAfter time.Duration

	// Err is the underlying cause for FailureTransport.
	Err error
}

// Error implements the error interface.
func (f *Failure) Error() string {
	switch f.Kind {
	case FailureStatus:
		return fmt.Sprintf("ingestion returned status %d", f.StatusCode)
	case FailureTransport:
		if f.Err != nil {
			return "ingestion transport error: " + f.Err.Error()
		}
		return "ingestion transport error"
	case FailureNoData:
		return "ingestion response had no body"
	case FailureParse:
		return "ingestion response could not be parsed"
	default:
		return "ingestion failure"
	}
}

// Unwrap returns the underlying error for errors.Is/As support.
func (f *Failure) Unwrap() error {
	return f.Err
}
