package profiling

import (
	"strings"
	"testing"
	"time"
)

func TestTrackAccumulatesPerTick(t *testing.T) {
	ResetTick()
	stop := Track("water.Vertical")
	time.Sleep(time.Millisecond)
	stop()
	first := Snapshot()["water.Vertical"]
	if first < time.Millisecond {
		t.Fatalf("tracked %v, want at least 1ms", first)
	}

	Track("water.Vertical")()
	if got := Snapshot()["water.Vertical"]; got < first {
		t.Errorf("second Track lowered the total: %v < %v", got, first)
	}

	ResetTick()
	if _, ok := Snapshot()["water.Vertical"]; ok {
		t.Error("ResetTick should clear the tick totals")
	}
}

func TestFormatMs(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0ms"},
		{2 * time.Millisecond, "2ms"},
		{4200 * time.Microsecond, "4.2ms"},
	}
	for _, tt := range tests {
		if got := formatMs(tt.d); got != tt.want {
			t.Errorf("formatMs(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestTopNOrdersBySlowest(t *testing.T) {
	ResetTick()
	mu.Lock()
	tickTotals["a"] = time.Millisecond
	tickTotals["b"] = 3 * time.Millisecond
	tickTotals["c"] = 2 * time.Millisecond
	mu.Unlock()

	got := TopN(2)
	if got != "b:3ms, c:2ms" {
		t.Errorf("TopN(2) = %q", got)
	}
	if !strings.HasPrefix(TopN(10), "b:") {
		t.Error("TopN larger than entries should still work")
	}
}
