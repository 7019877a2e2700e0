// Package transport holds the playback state machine vocabulary shared by
// the player and the command front ends (console, remote API).
package transport

import "github.com/pkg/errors"

type State int

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "stopped"
	}
}

var (
	ErrNothingToResume = errors.New("nothing to resume")
	ErrNotPlaying      = errors.New("not playing")
	ErrInvalidVolume   = errors.New("volume must be between 0.0 and 1.0")
	ErrInvalidSpeed    = errors.New("speed must be positive")
)

// Controller is the set of transport commands a front end can issue.
type Controller interface {
	Pause() error
	Resume() error
	Stop() error
	SetVolume(v float64) error
	SetSpeed(bpm int) error
	State() State
	Volume() float64
	SpeedFactor() float64
}

// ValidVolume reports whether v is an acceptable master volume.
func ValidVolume(v float64) bool {
	return v >= 0 && v <= 1
}

// SpeedFactor converts a requested tempo into a duration multiplier
// relative to 120 BPM.
func SpeedFactor(bpm int) (float64, error) {
	if bpm <= 0 {
		return 0, errors.Wrapf(ErrInvalidSpeed, "got %d", bpm)
	}
	return float64(bpm) / 120, nil
}
