package postgres

import (
	"context"
	"testing"
	"time"
)

func TestOperationName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"select", "SELECT id FROM incidents", "SELECT"},
		{"lowercase insert", "insert into audit_log values ($1)", "INSERT"},
		{"leading whitespace", "\n\t  UPDATE incidents SET status = $1", "UPDATE"},
		{"empty", "", "UNKNOWN"},
		{"whitespace only", "   \n", "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := operationName(tt.in); got != tt.want {
				t.Errorf("operationName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSetQueryObserver(t *testing.T) {
	// Not parallel: mutates the package-global observer.
	defer SetQueryObserver(nil)

	var (
		gotOp      string
		gotOutcome string
	)
	SetQueryObserver(QueryObserverFunc(func(_ context.Context, operation, outcome string, _ time.Duration) {
		gotOp = operation
		gotOutcome = outcome
	}))

	obs := getQueryObserver()
	if obs == nil {
		t.Fatal("expected non-nil observer after Set")
	}
	obs.ObserveQuery(context.Background(), "SELECT", "ok", time.Millisecond)

	if gotOp != "SELECT" || gotOutcome != "ok" {
		t.Errorf("observed %q/%q, want SELECT/ok", gotOp, gotOutcome)
	}

	SetQueryObserver(nil)
	if getQueryObserver() != nil {
		t.Error("expected nil observer after reset")
	}
}

func TestNewPool_InvalidURL(t *testing.T) {
	t.Parallel()

	if _, err := NewPool(context.Background(), "://not-a-url"); err == nil {
		t.Fatal("expected error for malformed database url")
	}
}
