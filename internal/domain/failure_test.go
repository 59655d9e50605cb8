package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestFailure_Error(t *testing.T) {
	tests := []struct {
		f    *Failure
		want string
	}{
		{&Failure{Kind: FailureStatus, StatusCode: 503}, "status 503"},
		{&Failure{Kind: FailureTransport, Err: context.DeadlineExceeded}, "deadline exceeded"},
		{&Failure{Kind: FailureTransport}, "transport error"},
		{&Failure{Kind: FailureNoData}, "no body"},
		{&Failure{Kind: FailureParse}, "could not be parsed"},
	}
	for _, tt := range tests {
		if got := tt.f.Error(); !strings.Contains(got, tt.want) {
			t.Errorf("%s: Error() = %q, want it to contain %q", tt.f.Kind, got, tt.want)
		}
	}
}

func TestFailure_As(t *testing.T) {
	err := fmt.Errorf("send events: %w", &Failure{Kind: FailureTransport, Err: context.Canceled})

	var f *Failure
	if !errors.As(err, &f) {
		t.Fatal("errors.As did not find Failure")
	}
	if f.Kind != FailureTransport {
		t.Errorf("Kind = %v", f.Kind)
	}
	if !errors.Is(err, context.Canceled) {
		t.Error("Unwrap should expose the transport cause")
	}
}

func TestFailureKind_String(t *testing.T) {
	kinds := map[FailureKind]string{
		FailureParse:     "parse_error",
		FailureNoData:    "no_data",
		FailureStatus:    "status",
		FailureTransport: "transport",
		FailureKind(0):   "unknown",
	}
	for k, want := range kinds {
		if k.String() != want {
			t.Errorf("String() = %q, want %q", k.String(), want)
		}
	}
}
