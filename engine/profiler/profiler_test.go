package profiler

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-vk/engine/frame"
)

func TestTickWaitsForInterval(t *testing.T) {
	p := NewProfiler(WithInterval(time.Hour), WithQuiet(true))
	for range 10 {
		if p.Tick(frame.Stats{}) {
			t.Fatal("report before the interval elapsed")
		}
	}
}

func TestReportCountsIntervalDeltas(t *testing.T) {
	p := NewProfiler(WithInterval(time.Nanosecond), WithQuiet(true))
	time.Sleep(time.Millisecond)
	if !p.Tick(frame.Stats{Presented: 10, Retries: 2}) {
		t.Fatal("expected a report")
	}
	if r := p.Last(); r.Presented != 10 || r.Retries != 2 || r.FPS <= 0 {
		t.Errorf("first report %+v", r)
	}

	time.Sleep(time.Millisecond)
	p.Tick(frame.Stats{Presented: 15, Retries: 2})
	if r := p.Last(); r.Presented != 5 || r.Retries != 0 {
		t.Errorf("second report should hold deltas, got %+v", r)
	}
}
