package worker

import (
	"testing"
	"time"
)

func TestNextDelay(t *testing.T) {
	tests := []struct {
		name    string
		policy  RetryPolicy
		attempt int
		want    time.Duration
	}{
		{"fixed", RetryPolicy{InitialDelay: 5 * time.Second, BackoffFactor: 1}, 2, 5 * time.Second},
		{"exponential", RetryPolicy{InitialDelay: time.Second, BackoffFactor: 2}, 3, 4 * time.Second},
		{"clamped", RetryPolicy{InitialDelay: time.Second, BackoffFactor: 10, MaxDelay: 30 * time.Second}, 4, 30 * time.Second},
		{"zero attempt", RetryPolicy{InitialDelay: time.Second}, 0, time.Second},
		{"defaults", RetryPolicy{}, 2, 2 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.NextDelay(tt.attempt); got != tt.want {
				t.Fatalf("NextDelay(%d) = %s, want %s", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestExhausted(t *testing.T) {
	p := RetryPolicy{MaxRetries: 3}
	if p.Exhausted(2) {
		t.Fatalf("attempt 2 of 3 must not be exhausted")
	}
	if !p.Exhausted(3) {
		t.Fatalf("attempt 3 of 3 must be exhausted")
	}
	if !(RetryPolicy{}).Exhausted(1) {
		t.Fatalf("zero policy allows a single attempt")
	}
}
