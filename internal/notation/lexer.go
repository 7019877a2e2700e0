package notation

import (
	"strings"
	"unicode/utf8"
)

var singleCharKinds = map[byte]Kind{
	'(': LeftParen,
	')': RightParen,
	'{': LeftBrace,
	'}': RightBrace,
	',': Comma,
	':': Colon,
	'|': Bar,
	'~': Tilde,
	'.': Dot,
	'-': Tie,
	'#': Sharp,
	'b': Flat,
}

var wordKinds = map[string]Kind{
	"VOICE":     VoiceBlock,
	"PART":      Part,
	"BPM":       BPM,
	"KEY":       KeyMarker,
	"INTRO":     Intro,
	"INTERLUDE": Interlude,
	"REPEAT":    Repeat,
	"p":         DynamicsMarker,
	"pp":        DynamicsMarker,
	"mp":        DynamicsMarker,
	"mf":        DynamicsMarker,
	"f":         DynamicsMarker,
	"ff":        DynamicsMarker,
	"fff":       DynamicsMarker,
}

var bracketKinds = map[string]Kind{
	"[INTRO]":     Intro,
	"[INTERLUDE]": Interlude,
	"[REPEAT]":    Repeat,
	"[/REPEAT]":   EndRepeat,
	"[VOICE]":     VoiceBlock,
	"[/VOICE]":    EndVoice,
	"[VOICES]":    Voices,
	"[/VOICES]":   EndVoices,
	"[PART]":      Part,
	"[/PART]":     EndPart,
}

type lexer struct {
	src  string
	pos  int
	toks []Token
}

// Tokenize splits notation source into tokens. It never fails: characters
// it does not recognise become identifiers. The result always ends with an
// EOF token positioned at len(src).
func Tokenize(src string) []Token {
	lx := &lexer{src: src}
	for lx.pos < len(src) {
		lx.scan()
	}
	lx.toks = append(lx.toks, Token{Kind: EOF, Pos: len(src)})
	return lx.toks
}

func (lx *lexer) emit(kind Kind, start int) {
	lx.toks = append(lx.toks, Token{Kind: kind, Lexeme: lx.src[start:lx.pos], Pos: start})
}

func (lx *lexer) peekAt(off int) byte {
	if lx.pos+off < len(lx.src) {
		return lx.src[lx.pos+off]
	}
	return 0
}

func (lx *lexer) scan() {
	start := lx.pos
	c := lx.src[lx.pos]
	switch {
	case c == ' ' || c == '\t' || c == '\r' || c == '\n':
		lx.pos++
	case c == '/':
		lx.scanSlash()
	case c == '\\':
		lx.pos++
		if lx.peekAt(0) == '\\' {
			lx.pos++
			lx.emit(Glissando, start)
			return
		}
		lx.emit(Grace, start)
	case c == '[':
		lx.scanBracket()
	case c == ']':
		lx.pos++
	case c >= 'A' && c <= 'G':
		lx.pos++
		lx.emit(NoteName, start)
	case c >= '0' && c <= '9':
		lx.pos++
		for lx.pos < len(lx.src) {
			d := lx.src[lx.pos]
			if (d < '0' || d > '9') && d != '/' && d != '.' {
				break
			}
			lx.pos++
		}
		lx.emit(Number, start)
	case c == 'R' && lx.peekAt(1) == '(':
		lx.pos++
		lx.emit(RestMarker, start)
	default:
		if kind, ok := singleCharKinds[c]; ok {
			lx.pos++
			lx.emit(kind, start)
			return
		}
		lx.scanWord()
	}
}

func (lx *lexer) scanSlash() {
	start := lx.pos
	switch lx.peekAt(1) {
	case '/':
		end := strings.IndexByte(lx.src[lx.pos:], '\n')
		if end < 0 {
			lx.pos = len(lx.src)
		} else {
			lx.pos += end
		}
		lx.emit(Comment, start)
	case '*':
		end := strings.Index(lx.src[lx.pos+2:], "*/")
		if end < 0 {
			lx.pos = len(lx.src)
		} else {
			lx.pos += 2 + end + 2
		}
		lx.emit(Comment, start)
	default:
		lx.pos++
		lx.emit(Slash, start)
	}
}

func (lx *lexer) scanBracket() {
	start := lx.pos
	end := strings.IndexByte(lx.src[lx.pos:], ']')
	if end < 0 {
		lx.pos = len(lx.src)
	} else {
		lx.pos += end + 1
	}
	lx.emit(classifyBracket(lx.src[start:lx.pos]), start)
}

func classifyBracket(text string) Kind {
	if kind, ok := bracketKinds[text]; ok {
		return kind
	}
	closed := strings.HasSuffix(text, "]")
	switch {
	case strings.HasPrefix(text, "[BPM="):
		return BPM
	case strings.HasPrefix(text, "[KEY="):
		return KeyMarker
	case closed && strings.HasPrefix(text, "[PART-"):
		return Part
	case closed && strings.HasPrefix(text, "[/PART-"):
		return EndPart
	}
	return Identifier
}

func (lx *lexer) scanWord() {
	start := lx.pos
	_, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
	lx.pos += size
	for lx.pos < len(lx.src) && isWordByte(lx.src[lx.pos]) {
		lx.pos++
	}
	lx.emit(classifyWord(lx.src[start:lx.pos]), start)
}

// isWordByte reports whether c continues a word: ASCII letters, digits
// and '='. Non-ASCII letters start a new word.
func isWordByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '='
}

func classifyWord(text string) Kind {
	if isVoiceMarker(text) || text == "V" {
		return VoiceMarker
	}
	if kind, ok := wordKinds[text]; ok {
		return kind
	}
	return Identifier
}

// isVoiceMarker reports whether text is V followed by one or more digits.
func isVoiceMarker(text string) bool {
	if len(text) < 2 || text[0] != 'V' {
		return false
	}
	for i := 1; i < len(text); i++ {
		if text[i] < '0' || text[i] > '9' {
			return false
		}
	}
	return true
}
