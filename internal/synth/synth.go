// Package synth renders single notation elements into mono float32
// samples at SampleRate. Generators are pulled in blocks and report how
// many samples they produced; zero means exhausted.
package synth

const (
	SampleRate = 44100
	// BlockSize is the chunk Render pulls from a generator at a time.
	BlockSize = 1024
)

// Generator is a finite, lazily produced sample sequence.
type Generator interface {
	// Next fills dst with up to len(dst) samples and returns how many it
	// wrote. It returns 0 once the generator is exhausted.
	Next(dst []float32) int
	// Len is the total number of samples the generator produces.
	Len() int
}

// Samples converts milliseconds to a sample count.
func Samples(ms int) int {
	return ms * SampleRate / 1000
}

// Millis converts a sample count to whole milliseconds.
func Millis(samples int) int {
	return samples * 1000 / SampleRate
}

// Render pulls g to exhaustion and returns the samples clipped to [-1, 1].
func Render(g Generator) []float32 {
	out := make([]float32, g.Len())
	pos := 0
	for pos < len(out) {
		end := min(pos+BlockSize, len(out))
		n := g.Next(out[pos:end])
		if n == 0 {
			break
		}
		pos += n
	}
	for i, s := range out {
		if s > 1 {
			out[i] = 1
		} else if s < -1 {
			out[i] = -1
		}
	}
	return out
}

// Energy is the sum of squared samples.
func Energy(samples []float32) float64 {
	var e float64
	for _, s := range samples {
		e += float64(s) * float64(s)
	}
	return e
}

// Silence produces n zero samples. Rests use it inside mixed blocks so the
// block keeps the rest's duration.
type Silence struct {
	n, pos int
}

func NewSilence(n int) *Silence {
	return &Silence{n: max(n, 0)}
}

func (s *Silence) Len() int { return s.n }

func (s *Silence) Next(dst []float32) int {
	count := min(len(dst), s.n-s.pos)
	clear(dst[:count])
	s.pos += count
	return count
}
