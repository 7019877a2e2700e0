package synth

import (
	"math"

	"github.com/autopiano/autopiano-go/internal/lfo"
)

const (
	VibratoRateHz = 6.0
	// VibratoDepth is the peak pitch deviation in semitones.
	VibratoDepth = 0.75
)

// Tone is a sine oscillator with a raised-cosine envelope and optional
// pitch vibrato.
type Tone struct {
	freq    float64
	amp     float64
	total   int
	pos     int
	fade    int
	phase   float64
	vibrato *lfo.LFO
}

// NewNote returns a plain note: banded fade, low-frequency boost and,
// when vibrato is set, a 6 Hz / 0.75 semitone pitch vibrato.
func NewNote(freq float64, samples int, amp float64, vibrato bool) *Tone {
	return newTone(freq, samples, lowBoost(freq, amp), bandFade(freq), vibrato)
}

func newTone(freq float64, samples int, amp float64, fade int, vibrato bool) *Tone {
	t := &Tone{
		freq:  freq,
		amp:   amp,
		total: max(samples, 0),
		fade:  fade,
	}
	if vibrato {
		t.vibrato = lfo.New(VibratoDepth, VibratoRateHz)
	}
	return t
}

func (t *Tone) Len() int { return t.total }

func (t *Tone) Next(dst []float32) int {
	count := min(len(dst), t.total-t.pos)
	for i := 0; i < count; i++ {
		f := t.freq
		if t.vibrato != nil {
			f *= math.Pow(2, t.vibrato.Sample(SampleRate)/12)
		}
		env := raisedCosine(t.pos, t.total, t.fade)
		dst[i] = float32(t.amp * env * math.Sin(t.phase))
		t.phase += 2 * math.Pi * f / SampleRate
		if t.phase >= 2*math.Pi {
			t.phase -= 2 * math.Pi
		}
		t.pos++
	}
	return count
}
