package util

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetry(t *testing.T) {
	attempts := 0
	targetAttempts := 3

	err := Retry(context.Background(), Backoff{Attempts: 5}, func() error {
		attempts++
		if attempts < targetAttempts {
			return errors.New("transient error")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Retry returned unexpected error: %v", err)
	}
	if attempts != targetAttempts {
		t.Errorf("Retry called fn %d times, want %d", attempts, targetAttempts)
	}
}

func TestRetryAllFail(t *testing.T) {
	attempts := 0
	maxAttempts := 3
	persistent := errors.New("persistent error")

	err := Retry(context.Background(), Backoff{Attempts: maxAttempts}, func() error {
		attempts++
		return persistent
	})

	if !errors.Is(err, persistent) {
		t.Fatalf("Retry error = %v, want wrapping %v", err, persistent)
	}
	if attempts != maxAttempts {
		t.Errorf("Retry called fn %d times, want %d", attempts, maxAttempts)
	}
}

func TestRetryStopsOnDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := Retry(ctx, Backoff{Attempts: 100, BaseDelay: 10 * time.Millisecond, MaxDelay: 10 * time.Millisecond}, func() error {
		return errors.New("not ready")
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Retry error = %v, want deadline exceeded", err)
	}
}

func TestNewIDIsOrdered(t *testing.T) {
	prev := NewID()
	for i := 0; i < 100; i++ {
		id := NewID()
		if id <= prev {
			t.Fatalf("NewID not monotonic: %s after %s", id, prev)
		}
		prev = id
	}
}

func TestTradingCalendar(t *testing.T) {
	cal := NewTradingCalendar([]string{"2024-01-03", "2024-01-02", "2024-01-05", "2024-01-03"})

	if cal.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", cal.Len())
	}
	if i, ok := cal.Index("2024-01-03"); !ok || i != 1 {
		t.Errorf("Index(2024-01-03) = %d, %v", i, ok)
	}
	if next, ok := cal.Next("2024-01-03"); !ok || next != "2024-01-05" {
		t.Errorf("Next(2024-01-03) = %q, %v", next, ok)
	}
	if _, ok := cal.Next("2024-01-05"); ok {
		t.Error("Next on last day should report false")
	}
	if prev, ok := cal.Prev("2024-01-03"); !ok || prev != "2024-01-02" {
		t.Errorf("Prev(2024-01-03) = %q, %v", prev, ok)
	}
	if _, ok := cal.Prev("2024-01-02"); ok {
		t.Error("Prev on first day should report false")
	}

	got := cal.Between("2024-01-02", "2024-01-05")
	if len(got) != 2 || got[0] != "2024-01-03" || got[1] != "2024-01-05" {
		t.Errorf("Between = %v", got)
	}
	if got := cal.Between("2024-01-05", "2024-01-02"); got != nil {
		t.Errorf("Between reversed = %v, want nil", got)
	}
}

func TestTradingCalendarNearest(t *testing.T) {
	cal := NewTradingCalendar([]string{"2024-01-02", "2024-01-03", "2024-01-05"})

	tests := []struct {
		now  time.Time
		want string
	}{
		{time.Date(2024, 1, 3, 10, 0, 0, 0, time.Local), "2024-01-03"},
		{time.Date(2024, 1, 4, 10, 0, 0, 0, time.Local), "2024-01-03"},
		{time.Date(2025, 6, 1, 10, 0, 0, 0, time.Local), "2024-01-05"},
		{time.Date(2023, 6, 1, 10, 0, 0, 0, time.Local), "2024-01-02"},
	}
	for _, tt := range tests {
		if got := cal.Nearest(tt.now); got != tt.want {
			t.Errorf("Nearest(%s) = %q, want %q", tt.now.Format("2006-01-02"), got, tt.want)
		}
	}

	if got := NewTradingCalendar(nil).Nearest(time.Now()); got != "" {
		t.Errorf("Nearest on empty calendar = %q", got)
	}
}
