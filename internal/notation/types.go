package notation

import (
	"strconv"
	"strings"
)

// DefaultBPM is the tempo used when a score carries no [BPM=...] marker.
const DefaultBPM = 120

type SectionKind int

const (
	SectionDefault SectionKind = iota
	SectionIntro
	SectionInterlude
	SectionRepeat
)

func (k SectionKind) String() string {
	switch k {
	case SectionIntro:
		return "INTRO"
	case SectionInterlude:
		return "INTERLUDE"
	case SectionRepeat:
		return "REPEAT"
	default:
		return "DEFAULT"
	}
}

type Score struct {
	Pos      int
	Tempo    *Tempo
	Key      *Key
	Voices   []Voice
	Sections []Section
}

// BPM returns the score tempo, or DefaultBPM when none was declared.
func (s *Score) BPM() int {
	if s.Tempo == nil {
		return DefaultBPM
	}
	return s.Tempo.BPM
}

type Tempo struct {
	Pos int
	BPM int
}

type Key struct {
	Pos  int
	Name string
}

// Voice is one independently timed line. Number comes from the V<n>
// marker, or from the part order inside a [VOICE]/[VOICES] block.
type Voice struct {
	Pos      int
	Number   int
	Name     string
	Measures []Measure
}

type Section struct {
	Pos      int
	Kind     SectionKind
	Measures []Measure
}

type Measure struct {
	Pos      int
	Elements []Element
}

// Element is a playable measure entry: *Note, *Chord or *Rest.
type Element interface {
	Position() int
	Duration() Length
	element()
}

// Length is a written duration such as "1/4" plus the dotted flag.
type Length struct {
	Value  string
	Dotted bool
}

var beatsByValue = map[string]float64{
	"1":    4,
	"1/2":  2,
	"1/4":  1,
	"1/8":  0.5,
	"1/16": 0.25,
}

// Beats returns the length in quarter-note beats. Unknown values count as
// one beat.
func (l Length) Beats() float64 {
	beats, ok := beatsByValue[l.Value]
	if !ok {
		beats = 1
	}
	if l.Dotted {
		beats *= 1.5
	}
	return beats
}

func (l Length) String() string {
	if l.Value == "" && !l.Dotted {
		return ""
	}
	s := l.Value
	if l.Dotted {
		s += "."
	}
	return s
}

// Dynamics is a loudness mark (p, pp, mp, mf, f, ff, fff).
type Dynamics string

var dynamicsAmplitude = map[Dynamics]float64{
	"pp":  0.1,
	"p":   0.3,
	"mp":  0.45,
	"mf":  0.6,
	"f":   0.8,
	"ff":  0.95,
	"fff": 1.0,
}

// DefaultAmplitude applies to elements without a dynamics mark.
const DefaultAmplitude = 0.7

func (d Dynamics) Amplitude() float64 {
	if a, ok := dynamicsAmplitude[d]; ok {
		return a
	}
	return DefaultAmplitude
}

// Pitch is a bare note name and octave, used for chord members and
// ornaments.
type Pitch struct {
	Pos    int
	Name   string
	Octave int
}

func (p Pitch) String() string {
	return p.Name + strconv.Itoa(p.Octave)
}

type OrnamentKind int

const (
	OrnamentNone OrnamentKind = iota
	OrnamentGrace
	OrnamentGlissando
)

// Ornament decorates a note with a grace note or a glissando start pitch.
type Ornament struct {
	Kind  OrnamentKind
	Pitch Pitch
}

type Note struct {
	Pitch
	Length   Length
	Dynamics Dynamics
	Vibrato  bool
	Ornament Ornament
}

func (n *Note) Position() int    { return n.Pos }
func (n *Note) Duration() Length { return n.Length }
func (*Note) element()           {}

func (n *Note) String() string {
	var b strings.Builder
	b.WriteString(n.Pitch.String())
	switch n.Ornament.Kind {
	case OrnamentGrace:
		b.WriteString("\\")
		b.WriteString(n.Ornament.Pitch.String())
	case OrnamentGlissando:
		b.WriteString("\\\\")
		b.WriteString(n.Ornament.Pitch.String())
	}
	writeLength(&b, n.Length, n.Vibrato)
	return b.String()
}

type Chord struct {
	Pos      int
	Pitches  []Pitch
	Length   Length
	Dynamics Dynamics
}

func (c *Chord) Position() int    { return c.Pos }
func (c *Chord) Duration() Length { return c.Length }
func (*Chord) element()           {}

func (c *Chord) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, p := range c.Pitches {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p.String())
	}
	b.WriteByte('}')
	writeLength(&b, c.Length, false)
	return b.String()
}

type Rest struct {
	Pos    int
	Length Length
}

func (r *Rest) Position() int    { return r.Pos }
func (r *Rest) Duration() Length { return r.Length }
func (*Rest) element()           {}

func (r *Rest) String() string {
	var b strings.Builder
	b.WriteByte('R')
	writeLength(&b, r.Length, false)
	return b.String()
}

func writeLength(b *strings.Builder, l Length, vibrato bool) {
	if l.String() == "" && !vibrato {
		return
	}
	b.WriteByte('(')
	b.WriteString(l.String())
	if vibrato {
		b.WriteByte('~')
	}
	b.WriteByte(')')
}
