package course

import (
	"math/rand"
	"testing"
	"time"
)

func Test_Classify(t *testing.T) {
	start := time.Date(2026, 3, 15, 18, 0, 0, 0, time.UTC)
	duration := 60

	tests := []struct {
		name    string
		now     time.Time
		want    SessionState
		wantErr error
	}{
		{name: "well before start", now: start.Add(-24 * time.Hour), want: StateUpcoming},
		{name: "just outside lead window", now: start.Add(-StartingSoonLead - time.Second), want: StateUpcoming},
		{name: "exactly 10 minutes before", now: start.Add(-StartingSoonLead), want: StateStartingSoon},
		{name: "within lead window", now: start.Add(-5 * time.Minute), want: StateStartingSoon},
		{name: "one second before start", now: start.Add(-time.Second), want: StateStartingSoon},
		{name: "exactly at start", now: start, want: StateLiveNow},
		{name: "mid-session", now: start.Add(30 * time.Minute), want: StateLiveNow},
		{name: "one second before end", now: start.Add(time.Duration(duration)*time.Minute - time.Second), want: StateLiveNow},
		{name: "exactly at end", now: start.Add(time.Duration(duration) * time.Minute), want: StateEnded},
		{name: "after end", now: start.Add(2 * time.Hour), want: StateEnded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.now, start, duration)
			if err != tt.wantErr {
				t.Fatalf("Classify() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func Test_Classify_invalidSchedule(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		start    time.Time
		duration int
	}{
		{name: "zero start time", start: time.Time{}, duration: 60},
		{name: "zero duration", start: now.Add(time.Hour), duration: 0},
		{name: "negative duration", start: now.Add(time.Hour), duration: -30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Classify(now, tt.start, tt.duration); err != ErrInvalidSchedule {
				t.Errorf("Classify() error = %v, want ErrInvalidSchedule", err)
			}
		})
	}
}

// every instant must map to exactly one state; sweep a session's whole
// lifetime with random offsets
func Test_Classify_singleState(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	start := time.Date(2026, 3, 15, 18, 0, 0, 0, time.UTC)
	duration := 90
	end := start.Add(time.Duration(duration) * time.Minute)

	for i := 0; i < 1000; i++ {
		offset := time.Duration(rng.Int63n(int64(72 * time.Hour)))
		now := start.Add(-36 * time.Hour).Add(offset)

		state, err := Classify(now, start, duration)
		if err != nil {
			t.Fatalf("Classify(%v) error = %v", now, err)
		}

		var want SessionState
		switch {
		case !now.Before(end):
			want = StateEnded
		case !now.Before(start):
			want = StateLiveNow
		case start.Sub(now) <= StartingSoonLead:
			want = StateStartingSoon
		default:
			want = StateUpcoming
		}
		if state != want {
			t.Fatalf("Classify(%v) = %v, want %v", now, state, want)
		}
	}
}

func Test_Countdown(t *testing.T) {
	start := time.Date(2026, 3, 15, 18, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{name: "days out", now: start.Add(-50 * time.Hour), want: "2d 2h 0m"},
		{name: "hours out", now: start.Add(-90 * time.Minute), want: "1h 30m"},
		{name: "minutes out", now: start.Add(-9 * time.Minute), want: "9m"},
		{name: "already started", now: start.Add(time.Minute), want: "starting now"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Countdown(tt.now, start); got != tt.want {
				t.Errorf("Countdown() = %q, want %q", got, tt.want)
			}
		})
	}
}
