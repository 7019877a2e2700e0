package notation

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ParseError reports malformed notation. Pos is the byte offset of the
// offending token.
type ParseError struct {
	Msg string
	Pos int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s at offset %d", e.Msg, e.Pos)
}

// LineCol converts a byte offset in src to a 1-based line and column.
func LineCol(src string, pos int) (line, col int) {
	if pos > len(src) {
		pos = len(src)
	}
	line = 1 + strings.Count(src[:pos], "\n")
	col = pos - strings.LastIndexByte(src[:pos], '\n')
	return line, col
}

// Parse tokenizes and parses notation source into a Score.
func Parse(src string) (*Score, error) {
	return ParseTokens(Tokenize(src))
}

// ParseTokens builds a Score from a token stream produced by Tokenize.
func ParseTokens(toks []Token) (*Score, error) {
	if len(toks) == 0 || toks[len(toks)-1].Kind != EOF {
		end := 0
		if len(toks) > 0 {
			last := toks[len(toks)-1]
			end = last.Pos + len(last.Lexeme)
		}
		toks = append(toks, Token{Kind: EOF, Pos: end})
	}
	p := &parser{toks: toks}
	return p.parseScore()
}

type parser struct {
	toks []Token
	cur  int
}

func (p *parser) peek() Token { return p.toks[p.cur] }

func (p *parser) atEnd() bool { return p.peek().Kind == EOF }

func (p *parser) check(kind Kind) bool { return p.peek().Kind == kind }

func (p *parser) advance() Token {
	tok := p.toks[p.cur]
	if tok.Kind != EOF {
		p.cur++
	}
	return tok
}

func (p *parser) match(kind Kind) bool {
	if p.check(kind) {
		p.advance()
		return true
	}
	return false
}

// blocked reports whether the next token ends a run of measures. It is
// checked between measures only; inside a measure markers are skipped.
func (p *parser) blocked() bool {
	kind := p.peek().Kind
	return kind == EOF || kind.structural()
}

func (p *parser) errorf(pos int, format string, args ...any) error {
	return &ParseError{Msg: fmt.Sprintf(format, args...), Pos: pos}
}

func (p *parser) parseScore() (*Score, error) {
	score := &Score{}
	for !p.atEnd() {
		tok := p.peek()
		switch tok.Kind {
		case BPM:
			tempo, err := p.parseTempo()
			if err != nil {
				return nil, err
			}
			score.Tempo = tempo
		case KeyMarker:
			p.advance()
			name := strings.TrimSuffix(strings.TrimPrefix(tok.Lexeme, "[KEY="), "]")
			score.Key = &Key{Pos: tok.Pos, Name: name}
		case VoiceMarker:
			voice, err := p.parseVoice()
			if err != nil {
				return nil, err
			}
			score.Voices = append(score.Voices, voice)
		case VoiceBlock:
			voices, err := p.parseParts(EndVoice, "[/VOICE]")
			if err != nil {
				return nil, err
			}
			score.Voices = append(score.Voices, voices...)
		case Voices:
			voices, err := p.parseParts(EndVoices, "[/VOICES]")
			if err != nil {
				return nil, err
			}
			score.Voices = append(score.Voices, voices...)
		case Intro, Interlude, Repeat:
			section, err := p.parseSection()
			if err != nil {
				return nil, err
			}
			score.Sections = append(score.Sections, section)
		default:
			if tok.Kind.structural() {
				// stray closer such as [/REPEAT] or [/PART] outside a block
				p.advance()
				continue
			}
			section := Section{Pos: tok.Pos, Kind: SectionDefault}
			for !p.blocked() {
				m, err := p.parseMeasure()
				if err != nil {
					return nil, err
				}
				section.Measures = append(section.Measures, m)
			}
			score.Sections = append(score.Sections, section)
		}
	}
	if len(score.Voices) == 0 && len(score.Sections) == 0 {
		score.Sections = append(score.Sections, Section{Kind: SectionDefault})
	}
	return score, nil
}

func (p *parser) parseTempo() (*Tempo, error) {
	tok := p.advance()
	text := strings.TrimSuffix(strings.TrimPrefix(tok.Lexeme, "[BPM="), "]")
	bpm, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || bpm <= 0 {
		return nil, p.errorf(tok.Pos, "invalid BPM value: %s", text)
	}
	return &Tempo{Pos: tok.Pos, BPM: bpm}, nil
}

func (p *parser) parseSection() (Section, error) {
	tok := p.advance()
	section := Section{Pos: tok.Pos}
	switch tok.Kind {
	case Intro:
		section.Kind = SectionIntro
	case Interlude:
		section.Kind = SectionInterlude
	case Repeat:
		section.Kind = SectionRepeat
	}
	for !p.blocked() {
		m, err := p.parseMeasure()
		if err != nil {
			return section, err
		}
		section.Measures = append(section.Measures, m)
	}
	if section.Kind == SectionRepeat {
		p.match(EndRepeat)
	}
	return section, nil
}

func (p *parser) parseVoice() (Voice, error) {
	tok := p.advance()
	if !isVoiceMarker(tok.Lexeme) {
		return Voice{}, p.errorf(tok.Pos, "invalid voice marker %q: expected V followed by a number", tok.Lexeme)
	}
	number, err := strconv.Atoi(tok.Lexeme[1:])
	if err != nil {
		return Voice{}, p.errorf(tok.Pos, "invalid voice marker %q: %v", tok.Lexeme, err)
	}
	voice := Voice{Pos: tok.Pos, Number: number}
	for !p.blocked() {
		m, err := p.parseMeasure()
		if err != nil {
			return voice, err
		}
		voice.Measures = append(voice.Measures, m)
	}
	return voice, nil
}

// parseParts reads a [VOICE] or [VOICES] block. Each [PART...] inside it
// becomes a Voice numbered by its order in the block.
func (p *parser) parseParts(closer Kind, closerText string) ([]Voice, error) {
	p.advance()
	var voices []Voice
	for !p.atEnd() && !p.check(closer) {
		if !p.check(Part) {
			p.advance()
			continue
		}
		tok := p.advance()
		voice := Voice{Pos: tok.Pos, Number: len(voices), Name: partName(tok.Lexeme)}
		for !p.blocked() {
			// a part may omit its final bar, so its closers also end a measure
			m, err := p.parseMeasure(EndPart, Part, closer)
			if err != nil {
				return nil, err
			}
			voice.Measures = append(voice.Measures, m)
		}
		end := p.peek()
		if end.Kind != EndPart || !strings.HasPrefix(end.Lexeme, "[/PART") {
			return nil, p.errorf(end.Pos, "expected [/PART-NAME] to close part block")
		}
		p.advance()
		voices = append(voices, voice)
	}
	if !p.check(closer) {
		return nil, p.errorf(p.peek().Pos, "expected %s to close voice block", closerText)
	}
	p.advance()
	return voices, nil
}

// partName extracts NAME from "[PART-NAME]". Bare parts have no name.
func partName(lexeme string) string {
	name, ok := strings.CutPrefix(lexeme, "[PART-")
	if !ok {
		return ""
	}
	return strings.TrimSuffix(name, "]")
}

// parseMeasure reads elements up to and including the next bar. A voice
// marker or one of stops ends the measure without being consumed; any other
// token that is not a note, chord or rest is dropped.
func (p *parser) parseMeasure(stops ...Kind) (Measure, error) {
	m := Measure{Pos: p.peek().Pos}
	for !p.atEnd() {
		kind := p.peek().Kind
		if kind == Bar {
			p.advance()
			break
		}
		if kind == VoiceMarker || slices.Contains(stops, kind) {
			break
		}
		var (
			el  Element
			err error
		)
		switch kind {
		case NoteName:
			el, err = p.parseNote()
		case LeftBrace:
			el, err = p.parseChord()
		case RestMarker:
			el, err = p.parseRest()
		default:
			p.advance()
			continue
		}
		if err != nil {
			return m, err
		}
		m.Elements = append(m.Elements, el)
	}
	return m, nil
}

func (p *parser) parsePitch() Pitch {
	tok := p.advance()
	pitch := Pitch{Pos: tok.Pos, Name: tok.Lexeme}
	if p.check(Number) {
		if octave, err := strconv.Atoi(p.advance().Lexeme); err == nil {
			pitch.Octave = octave
		}
	}
	return pitch
}

func (p *parser) parseOrnamentPitch(marker string) (Pitch, error) {
	p.advance()
	if !p.check(NoteName) {
		return Pitch{}, p.errorf(p.peek().Pos, "expected note name after %s marker", marker)
	}
	return p.parsePitch(), nil
}

func (p *parser) parseNote() (*Note, error) {
	note := &Note{Pitch: p.parsePitch()}
	if p.check(Grace) {
		pitch, err := p.parseOrnamentPitch("grace note")
		if err != nil {
			return nil, err
		}
		note.Ornament = Ornament{Kind: OrnamentGrace, Pitch: pitch}
	}
	if p.check(Glissando) {
		pitch, err := p.parseOrnamentPitch("glissando")
		if err != nil {
			return nil, err
		}
		if note.Ornament.Kind == OrnamentNone {
			note.Ornament = Ornament{Kind: OrnamentGlissando, Pitch: pitch}
		}
	}
	if p.match(LeftParen) {
		note.Length = p.parseLengthBody()
		if p.match(Tilde) {
			note.Vibrato = true
		}
		if !p.match(RightParen) {
			return nil, p.errorf(p.peek().Pos, "expected ')' after duration")
		}
	}
	// ties are recognised but not linked
	p.match(Tie)
	return note, nil
}

// parseLengthBody reads "NUMBER? DOT?" inside a duration clause. A number
// lexed with its own trailing dot, as in "1/4.", counts as dotted.
func (p *parser) parseLengthBody() Length {
	var l Length
	if p.check(Number) {
		text := p.advance().Lexeme
		if trimmed, ok := strings.CutSuffix(text, "."); ok && trimmed != "" {
			text = trimmed
			l.Dotted = true
		}
		l.Value = text
	}
	if p.match(Dot) {
		l.Dotted = true
	}
	return l
}

func (p *parser) parseChord() (*Chord, error) {
	open := p.advance()
	chord := &Chord{Pos: open.Pos}
	for {
		for !p.atEnd() && !p.check(NoteName) && !p.check(RightBrace) {
			p.advance()
		}
		if p.check(RightBrace) {
			break
		}
		if !p.check(NoteName) {
			return nil, p.errorf(p.peek().Pos, "expected note name in chord")
		}
		chord.Pitches = append(chord.Pitches, p.parsePitch())
		for !p.atEnd() && !p.check(Comma) && !p.check(RightBrace) {
			p.advance()
		}
		if !p.match(Comma) {
			break
		}
	}
	if !p.match(RightBrace) {
		return nil, p.errorf(p.peek().Pos, "expected '}' after chord notes")
	}
	if p.match(LeftParen) {
		chord.Length = p.parseLengthBody()
		if !p.match(RightParen) {
			return nil, p.errorf(p.peek().Pos, "expected ')' after chord duration")
		}
	}
	return chord, nil
}

func (p *parser) parseRest() (*Rest, error) {
	tok := p.advance()
	rest := &Rest{Pos: tok.Pos}
	if p.match(LeftParen) {
		rest.Length = p.parseLengthBody()
		if !p.match(RightParen) {
			return nil, p.errorf(p.peek().Pos, "expected ')' after rest duration")
		}
	}
	return rest, nil
}
