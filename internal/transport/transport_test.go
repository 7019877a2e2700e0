package transport

import (
	"errors"
	"testing"
)

func TestSpeedFactor(t *testing.T) {
	cases := []struct {
		bpm  int
		want float64
	}{
		{120, 1},
		{60, 0.5},
		{240, 2},
		{90, 0.75},
	}
	for _, tc := range cases {
		got, err := SpeedFactor(tc.bpm)
		if err != nil || got != tc.want {
			t.Fatalf("SpeedFactor(%d) = %v, %v; want %v", tc.bpm, got, err, tc.want)
		}
	}
	for _, bpm := range []int{0, -1} {
		if _, err := SpeedFactor(bpm); !errors.Is(err, ErrInvalidSpeed) {
			t.Fatalf("SpeedFactor(%d) err = %v", bpm, err)
		}
	}
}

func TestValidVolume(t *testing.T) {
	for v, want := range map[float64]bool{0: true, 0.5: true, 1: true, -0.01: false, 1.5: false} {
		if ValidVolume(v) != want {
			t.Fatalf("ValidVolume(%v) = %v", v, !want)
		}
	}
}

func TestStateString(t *testing.T) {
	if Stopped.String() != "stopped" || Playing.String() != "playing" || Paused.String() != "paused" {
		t.Fatalf("unexpected state names")
	}
}
