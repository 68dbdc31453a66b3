//go:build waterdebug

package fluid

import (
	"math"
	"testing"
)

func TestOutOfRangeVolumePanicsInDebug(t *testing.T) {
	tests := []struct {
		name string
		v    float64
	}{
		{"above max", 1.7},
		{"negative", -0.2},
		{"nan", math.NaN()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStorage()
			p := Pos{1, 2, 3}
			defer func() {
				if recover() == nil {
					t.Errorf("Set(%v) did not panic", tt.v)
				}
				if s.Has(p) {
					t.Error("out-of-range volume was stored")
				}
			}()
			s.Set(p, tt.v)
		})
	}
}

func TestInRangeVolumeDoesNotPanicInDebug(t *testing.T) {
	s := NewStorage()
	s.Set(Pos{}, MaxVolume+1e-12)
	if got := s.Volume(Pos{}); got != MaxVolume {
		t.Errorf("volume = %v, want %v", got, MaxVolume)
	}
}
