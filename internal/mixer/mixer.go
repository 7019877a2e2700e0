// Package mixer sums concurrently sounding generators into one block.
package mixer

import "github.com/autopiano/autopiano-go/internal/synth"

// Mixer is a synth.Generator whose output is the sample-wise sum of its
// inputs. Its length is that of the longest input; inputs that run out
// early contribute silence.
type Mixer struct {
	inputs  []synth.Generator
	total   int
	pos     int
	scratch []float32
}

func New(inputs ...synth.Generator) *Mixer {
	m := &Mixer{inputs: inputs}
	for _, in := range inputs {
		m.total = max(m.total, in.Len())
	}
	return m
}

func (m *Mixer) Len() int { return m.total }

func (m *Mixer) Next(dst []float32) int {
	count := min(len(dst), m.total-m.pos)
	if count <= 0 {
		return 0
	}
	out := dst[:count]
	clear(out)
	if cap(m.scratch) < count {
		m.scratch = make([]float32, count)
	}
	buf := m.scratch[:count]
	for _, in := range m.inputs {
		n := in.Next(buf)
		for i := 0; i < n; i++ {
			out[i] += buf[i]
		}
	}
	m.pos += count
	return count
}
