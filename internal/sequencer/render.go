package sequencer

import (
	"math"

	"github.com/pkg/errors"

	"github.com/autopiano/autopiano-go/internal/mixer"
	"github.com/autopiano/autopiano-go/internal/notation"
	"github.com/autopiano/autopiano-go/internal/synth"
)

// voiceGain is the amplitude multiplier for the voice at ordinal i.
func (s *Sequencer) voiceGain(i int) float64 {
	return math.Max(0, 1-s.opts.VoiceGainStep*float64(i))
}

// voiceDetune is the frequency multiplier for the voice at ordinal i.
func (s *Sequencer) voiceDetune(i int) float64 {
	if s.opts.VoiceDetune <= 0 {
		return 1
	}
	return math.Pow(s.opts.VoiceDetune, float64(i))
}

// generator builds the sample generator for one element played by the
// voice at ordinal voice. Sections play as voice 0.
func (s *Sequencer) generator(el notation.Element, bpm int, voice int, lv levels) (synth.Generator, error) {
	samples := synth.Samples(Duration(el.Duration(), bpm, lv.speed))
	gain := lv.volume * s.voiceGain(voice)
	detune := s.voiceDetune(voice)
	switch el := el.(type) {
	case *notation.Note:
		return noteGenerator(el, samples, el.Dynamics.Amplitude()*gain, detune)
	case *notation.Chord:
		if len(el.Pitches) == 0 {
			return synth.NewSilence(samples), nil
		}
		amp := el.Dynamics.Amplitude() * gain / float64(len(el.Pitches))
		tones := make([]synth.Generator, 0, len(el.Pitches))
		for _, p := range el.Pitches {
			f, err := synth.Frequency(p.Name, p.Octave)
			if err != nil {
				return nil, errors.Wrapf(err, "chord at offset %d", el.Pos)
			}
			tones = append(tones, synth.NewNote(f*detune, samples, amp, false))
		}
		return mixer.New(tones...), nil
	case *notation.Rest:
		return synth.NewSilence(samples), nil
	}
	return nil, errors.Errorf("unsupported element %T", el)
}

func noteGenerator(n *notation.Note, samples int, amp, detune float64) (synth.Generator, error) {
	f, err := synth.Frequency(n.Name, n.Octave)
	if err != nil {
		return nil, errors.Wrapf(err, "note at offset %d", n.Pos)
	}
	if n.Ornament.Kind == notation.OrnamentNone {
		return synth.NewNote(f*detune, samples, amp, n.Vibrato), nil
	}
	of, err := synth.Frequency(n.Ornament.Pitch.Name, n.Ornament.Pitch.Octave)
	if err != nil {
		return nil, errors.Wrapf(err, "ornament at offset %d", n.Ornament.Pitch.Pos)
	}
	if n.Ornament.Kind == notation.OrnamentGrace {
		return synth.NewGrace(of*detune, f*detune, samples, amp, n.Vibrato), nil
	}
	return synth.NewGlissando(of*detune, f*detune, samples, amp), nil
}
