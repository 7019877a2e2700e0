package sequencer

import (
	"context"

	"github.com/autopiano/autopiano-go/internal/mixer"
	"github.com/autopiano/autopiano-go/internal/notation"
	"github.com/autopiano/autopiano-go/internal/synth"
)

// Output receives rendered blocks in playing order.
type Output interface {
	// Play hands block to the device and returns once it has finished
	// sounding. It returns ctx.Err() if ctx is cancelled first.
	Play(ctx context.Context, block []float32) error
	// Rest holds silence for the given number of samples.
	Rest(ctx context.Context, samples int) error
}

// Controls supplies the live volume and speed factor. They are read once
// per block, so changes apply from the next element on.
type Controls interface {
	Volume() float64
	SpeedFactor() float64
}

// Phase identifies which part of the traversal a block belongs to.
type Phase int

const (
	PhaseVoices Phase = iota
	PhaseSections
)

func (p Phase) String() string {
	if p == PhaseSections {
		return "sections"
	}
	return "voices"
}

// Cursor is a resume point. Beat and Voice address the voices phase;
// Section, Measure and Element the sections phase. A cursor whose Beat is
// at or past the beat count points into the sections phase.
type Cursor struct {
	BPM     int
	Voice   int
	Beat    int
	Section int
	Measure int
	Element int
}

// Start returns the cursor for playing score from the top.
func Start(score *notation.Score) Cursor {
	return Cursor{BPM: score.BPM()}
}

// Block describes one unit handed to the Output.
type Block struct {
	Phase    Phase
	Beat     int
	Voices   []int // voice ordinals mixed into a voices-phase block
	Section  int
	Measure  int
	Element  int
	Samples  int
	Elements []notation.Element
}

type Options struct {
	// VoiceGainStep is subtracted from the amplitude multiplier per voice
	// ordinal: voice i plays at max(0, 1-VoiceGainStep*i).
	VoiceGainStep float64
	// VoiceDetune is raised to the voice ordinal and multiplied into every
	// frequency of that voice.
	VoiceDetune float64
	// OnBlock, if set, is called on the playback goroutine before each
	// block is handed to the Output.
	OnBlock func(Block)
	// Logf receives one debug line per element.
	Logf func(format string, args ...any)
}

func DefaultOptions() Options {
	return Options{VoiceGainStep: 0.2, VoiceDetune: 0.95}
}

type levels struct {
	volume float64
	speed  float64
}

type Sequencer struct {
	score  *notation.Score
	out    Output
	ctl    Controls
	opts   Options
	voices [][]notation.Element
}

func New(score *notation.Score, out Output, ctl Controls, opts Options) *Sequencer {
	return &Sequencer{
		score:  score,
		out:    out,
		ctl:    ctl,
		opts:   opts,
		voices: flattenVoices(score),
	}
}

// Beats is the number of beat slots in the voices phase.
func (s *Sequencer) Beats() int { return beatCount(s.voices) }

func (s *Sequencer) levels() levels {
	return levels{volume: s.ctl.Volume(), speed: s.ctl.SpeedFactor()}
}

func (s *Sequencer) logf(format string, args ...any) {
	if s.opts.Logf != nil {
		s.opts.Logf(format, args...)
	}
}

// Run plays the score from the given cursor. It returns a nil error once
// everything has played. When ctx is cancelled it returns ctx.Err() and
// the cursor to resume from: the step that was interrupted, or the next
// one if cancellation was observed between steps. Any other error aborts
// playback and is returned with the cursor of the failing step.
func (s *Sequencer) Run(ctx context.Context, from Cursor) (Cursor, error) {
	bpm := from.BPM
	if bpm <= 0 {
		bpm = s.score.BPM()
	}
	beats := s.Beats()
	for beat := from.Beat; beat < beats; beat++ {
		first := 0
		if beat == from.Beat {
			first = from.Voice
		}
		cur := Cursor{BPM: bpm, Voice: first, Beat: beat}
		if err := ctx.Err(); err != nil {
			return cur, err
		}
		if err := s.playBeat(ctx, bpm, beat, first); err != nil {
			return cur, err
		}
	}

	sections := s.score.Sections
	for si := from.Section; si < len(sections); si++ {
		measures := sections[si].Measures
		firstMeasure := 0
		if si == from.Section {
			firstMeasure = from.Measure
		}
		for mi := firstMeasure; mi < len(measures); mi++ {
			els := measures[mi].Elements
			firstElement := 0
			if si == from.Section && mi == from.Measure {
				firstElement = from.Element
			}
			for ei := firstElement; ei < len(els); ei++ {
				cur := Cursor{BPM: bpm, Beat: beats, Section: si, Measure: mi, Element: ei}
				if err := ctx.Err(); err != nil {
					return cur, err
				}
				if err := s.playElement(ctx, bpm, cur, els[ei]); err != nil {
					return cur, err
				}
			}
		}
	}
	return Cursor{BPM: bpm, Beat: beats, Section: len(sections)}, nil
}

// playBeat mixes the element at slot beat of every voice from ordinal
// first onwards and plays the result as one block.
func (s *Sequencer) playBeat(ctx context.Context, bpm, beat, first int) error {
	lv := s.levels()
	var (
		gens   []synth.Generator
		voices []int
		els    []notation.Element
	)
	for v := first; v < len(s.voices); v++ {
		if beat >= len(s.voices[v]) {
			continue
		}
		el := s.voices[v][beat]
		g, err := s.generator(el, bpm, v, lv)
		if err != nil {
			return err
		}
		s.logf("beat %d voice %d: %s", beat, s.score.Voices[v].Number, el)
		gens = append(gens, g)
		voices = append(voices, v)
		els = append(els, el)
	}
	if len(gens) == 0 {
		return nil
	}
	block := synth.Render(mixer.New(gens...))
	if s.opts.OnBlock != nil {
		s.opts.OnBlock(Block{
			Phase:    PhaseVoices,
			Beat:     beat,
			Voices:   voices,
			Samples:  len(block),
			Elements: els,
		})
	}
	return s.out.Play(ctx, block)
}

func (s *Sequencer) playElement(ctx context.Context, bpm int, cur Cursor, el notation.Element) error {
	g, err := s.generator(el, bpm, 0, s.levels())
	if err != nil {
		return err
	}
	s.logf("%s section %d measure %d: %s", s.score.Sections[cur.Section].Kind, cur.Section, cur.Measure, el)
	if s.opts.OnBlock != nil {
		s.opts.OnBlock(Block{
			Phase:    PhaseSections,
			Beat:     cur.Beat,
			Section:  cur.Section,
			Measure:  cur.Measure,
			Element:  cur.Element,
			Samples:  g.Len(),
			Elements: []notation.Element{el},
		})
	}
	if _, ok := el.(*notation.Rest); ok {
		return s.out.Rest(ctx, g.Len())
	}
	return s.out.Play(ctx, synth.Render(g))
}
