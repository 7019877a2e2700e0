package lfo

import "math"

// LFO is a sine low-frequency oscillator that produces per-sample
// modulation. Each note owns its own LFO so vibrato always starts at
// phase zero when the note starts.
type LFO struct {
	depth  float64 // modulation depth (semitones for pitch vibrato)
	rateHz float64
	phase  float64 // current phase [0, 1)
}

// New returns an LFO with the given depth and rate.
func New(depth, rateHz float64) *LFO {
	l := &LFO{}
	l.Set(depth, rateHz)
	return l
}

// Set configures the LFO parameters.
func (l *LFO) Set(depth, rateHz float64) {
	l.depth = depth
	l.rateHz = rateHz
}

// Sample returns depth*sin(2π·phase) for the current sample and then
// advances by one sample. Returns 0 if depth or rate is zero.
func (l *LFO) Sample(sampleRate float64) float64 {
	if l.depth == 0 || l.rateHz == 0 || sampleRate == 0 {
		return 0
	}
	v := math.Sin(2*math.Pi*l.phase) * l.depth
	l.phase += l.rateHz / sampleRate
	for l.phase >= 1.0 {
		l.phase -= 1.0
	}
	return v
}
