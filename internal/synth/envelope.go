package synth

import "math"

// raisedCosine returns the gain at sample pos of a note lasting total
// samples with fade-length half-cosine ramps at both ends.
func raisedCosine(pos, total, fade int) float64 {
	if fade <= 0 {
		return 1
	}
	if pos < fade {
		return (1 - math.Cos(math.Pi*float64(pos)/float64(fade))) / 2
	}
	if remaining := total - pos; remaining < fade {
		return max((1-math.Cos(math.Pi*float64(remaining)/float64(fade)))/2, 0)
	}
	return 1
}

// bandFade picks the fade length for a plain note: low notes get longer
// ramps so their slower cycles do not click.
func bandFade(freq float64) int {
	switch {
	case freq < 100:
		return Samples(80)
	case freq < 300:
		return Samples(60)
	default:
		return Samples(40)
	}
}

const (
	lowBoostBelow = 200.0
	lowBoostGain  = 1.5
)

// lowBoost raises the amplitude of notes below 200 Hz, capped at full
// scale.
func lowBoost(freq, amp float64) float64 {
	if freq >= lowBoostBelow {
		return amp
	}
	return math.Min(amp*lowBoostGain, 1)
}
