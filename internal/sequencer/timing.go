package sequencer

import (
	"time"

	"github.com/autopiano/autopiano-go/internal/notation"
)

// Duration returns the playing time of a written length in whole
// milliseconds at bpm, scaled by the speed factor.
func Duration(l notation.Length, bpm int, speed float64) int {
	if bpm <= 0 {
		bpm = notation.DefaultBPM
	}
	base := int(l.Beats() * 60000 / float64(bpm))
	return int(float64(base) * speed)
}

// Length estimates how long the whole score plays at the given speed
// factor: one mixed block per beat for the voices, then every section
// element in turn.
func Length(score *notation.Score, speed float64) time.Duration {
	bpm := score.BPM()
	voices := flattenVoices(score)
	var ms int
	for beat := 0; beat < beatCount(voices); beat++ {
		longest := 0
		for _, els := range voices {
			if beat < len(els) {
				longest = max(longest, Duration(els[beat].Duration(), bpm, speed))
			}
		}
		ms += longest
	}
	for _, sec := range score.Sections {
		for _, m := range sec.Measures {
			for _, el := range m.Elements {
				ms += Duration(el.Duration(), bpm, speed)
			}
		}
	}
	return time.Duration(ms) * time.Millisecond
}

// flattenVoices lays each voice's measures end to end so voices with
// unequal measure lengths still line up by element slot.
func flattenVoices(score *notation.Score) [][]notation.Element {
	out := make([][]notation.Element, len(score.Voices))
	for i, v := range score.Voices {
		for _, m := range v.Measures {
			out[i] = append(out[i], m.Elements...)
		}
	}
	return out
}

func beatCount(voices [][]notation.Element) int {
	n := 0
	for _, els := range voices {
		n = max(n, len(els))
	}
	return n
}
