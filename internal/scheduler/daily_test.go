package scheduler

import (
	"context"
	"testing"
	"time"
)

func noop(context.Context, time.Time) error { return nil }

func TestParseRunAt(t *testing.T) {
	tests := []struct {
		in           string
		hour, minute int
		wantErr      bool
	}{
		{"00:05", 0, 5, false},
		{"23:59", 23, 59, false},
		{"24:00", 0, 0, true},
		{"5", 0, 0, true},
		{"", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			h, m, err := ParseRunAt(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error=%v, got %v", tt.wantErr, err)
			}
			if !tt.wantErr && (h != tt.hour || m != tt.minute) {
				t.Errorf("expected %02d:%02d, got %02d:%02d", tt.hour, tt.minute, h, m)
			}
		})
	}
}

func TestDaily_Next(t *testing.T) {
	d, err := NewDaily("00:05", noop, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"before_run_time", time.Date(2024, 3, 10, 0, 1, 0, 0, time.UTC), time.Date(2024, 3, 10, 0, 5, 0, 0, time.UTC)},
		{"exactly_at_run_time", time.Date(2024, 3, 10, 0, 5, 0, 0, time.UTC), time.Date(2024, 3, 11, 0, 5, 0, 0, time.UTC)},
		{"after_run_time", time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC), time.Date(2024, 3, 11, 0, 5, 0, 0, time.UTC)},
		{"crosses_month_end", time.Date(2024, 2, 29, 9, 0, 0, 0, time.UTC), time.Date(2024, 3, 1, 0, 5, 0, 0, time.UTC)},
		{"crosses_year_end", time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC), time.Date(2025, 1, 1, 0, 5, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.Next(tt.now); !got.Equal(tt.want) {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestDaily_RunStopsOnCancel(t *testing.T) {
	d, err := NewDaily("00:05", noop, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestNewDaily_RejectsBadTime(t *testing.T) {
	if _, err := NewDaily("noon", noop, nil); err == nil {
		t.Error("expected error for invalid run time")
	}
}
