package synth

import "math"

const (
	graceMinMs     = 20
	graceGain      = 0.7
	segmentFadeMs  = 10
	glideFadeMs    = 30
	glideLowFadeMs = 60
	glideLowBelow  = 50.0
)

// GraceSplit divides a note of total samples into the grace segment and
// the main segment. The grace segment is an eighth of the note but never
// shorter than 20 ms; the main segment is what remains.
func GraceSplit(total int) (grace, main int) {
	grace = max(total/8, Samples(graceMinMs))
	main = max(total-grace, 0)
	return grace, main
}

// Grace plays a short grace tone followed immediately by the main tone.
type Grace struct {
	grace *Tone
	main  *Tone
}

// NewGrace builds the grace-note composite. The grace segment sounds at
// 0.7x amp; each segment has its own 10 ms fade.
func NewGrace(graceFreq, mainFreq float64, samples int, amp float64, vibrato bool) *Grace {
	g, m := GraceSplit(max(samples, 0))
	fade := Samples(segmentFadeMs)
	return &Grace{
		grace: newTone(graceFreq, g, amp*graceGain, fade, false),
		main:  newTone(mainFreq, m, amp, fade, vibrato),
	}
}

func (g *Grace) Len() int { return g.grace.Len() + g.main.Len() }

func (g *Grace) Next(dst []float32) int {
	n := g.grace.Next(dst)
	if n < len(dst) {
		n += g.main.Next(dst[n:])
	}
	return n
}

// Glissando slides linearly from one frequency to another over its
// duration.
type Glissando struct {
	from, to float64
	amp      float64
	total    int
	pos      int
	fade     int
	phase    float64
}

func NewGlissando(from, to float64, samples int, amp float64) *Glissando {
	fade := Samples(glideFadeMs)
	if from < glideLowBelow {
		fade = Samples(glideLowFadeMs)
	}
	return &Glissando{from: from, to: to, amp: amp, total: max(samples, 0), fade: fade}
}

func (g *Glissando) Len() int { return g.total }

func (g *Glissando) Next(dst []float32) int {
	count := min(len(dst), g.total-g.pos)
	for i := 0; i < count; i++ {
		progress := float64(g.pos) / float64(g.total)
		f := g.from + (g.to-g.from)*progress
		env := raisedCosine(g.pos, g.total, g.fade)
		dst[i] = float32(g.amp * env * math.Sin(g.phase))
		g.phase += 2 * math.Pi * f / SampleRate
		if g.phase >= 2*math.Pi {
			g.phase -= 2 * math.Pi
		}
		g.pos++
	}
	return count
}
