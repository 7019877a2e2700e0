package synth

import (
	"math"

	"github.com/pkg/errors"
)

// ErrInvalidPitch is returned for note names outside the twelve-tone table
// or octaves outside 0..8.
var ErrInvalidPitch = errors.New("invalid note name or octave")

const (
	MinOctave = 0
	MaxOctave = 8
)

var semitones = map[string]int{
	"C": 0, "C#": 1, "Db": 1,
	"D": 2, "D#": 3, "Eb": 3,
	"E": 4,
	"F": 5, "F#": 6, "Gb": 6,
	"G": 7, "G#": 8, "Ab": 8,
	"A": 9, "A#": 10, "Bb": 10,
	"B": 11,
}

// Frequency returns the equal-tempered frequency (A4 = 440 Hz) of a note
// name and octave.
func Frequency(name string, octave int) (float64, error) {
	semi, ok := semitones[name]
	if !ok || octave < MinOctave || octave > MaxOctave {
		return 0, errors.Wrapf(ErrInvalidPitch, "%s%d", name, octave)
	}
	n := octave*12 + semi - 57
	return 440 * math.Pow(2, float64(n)/12), nil
}
