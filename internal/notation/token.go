package notation

import "fmt"

// Kind identifies a lexical token class.
type Kind int

const (
	EOF Kind = iota
	NoteName
	Sharp
	Flat
	Number
	Dot
	LeftParen
	RightParen
	LeftBrace
	RightBrace
	Comma
	Colon
	Slash
	Grace
	Glissando
	RestMarker
	Bar
	Tilde
	Tie
	Identifier
	VoiceMarker
	VoiceBlock
	EndVoice
	Voices
	EndVoices
	Part
	EndPart
	BPM
	KeyMarker
	Intro
	Interlude
	Repeat
	EndRepeat
	DynamicsMarker
	Comment
)

var kindNames = [...]string{
	EOF:            "EOF",
	NoteName:       "NOTE_NAME",
	Sharp:          "SHARP",
	Flat:           "FLAT",
	Number:         "NUMBER",
	Dot:            "DOT",
	LeftParen:      "LEFT_PAREN",
	RightParen:     "RIGHT_PAREN",
	LeftBrace:      "LEFT_BRACE",
	RightBrace:     "RIGHT_BRACE",
	Comma:          "COMMA",
	Colon:          "COLON",
	Slash:          "SLASH",
	Grace:          "BACKSLASH",
	Glissando:      "GLISSANDO",
	RestMarker:     "REST",
	Bar:            "BAR",
	Tilde:          "TILDE",
	Tie:            "TIE",
	Identifier:     "IDENTIFIER",
	VoiceMarker:    "VOICE",
	VoiceBlock:     "VOICE_BLOCK",
	EndVoice:       "END_VOICE",
	Voices:         "VOICES",
	EndVoices:      "END_VOICES",
	Part:           "PART",
	EndPart:        "END_PART",
	BPM:            "BPM",
	KeyMarker:      "KEY",
	Intro:          "INTRO",
	Interlude:      "INTERLUDE",
	Repeat:         "REPEAT",
	EndRepeat:      "END_REPEAT",
	DynamicsMarker: "DYNAMICS",
	Comment:        "COMMENT",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// structural reports whether k opens or closes a score-level construct.
// Runs of measures end before a structural token; a measure itself skips
// them.
func (k Kind) structural() bool {
	switch k {
	case VoiceMarker, VoiceBlock, EndVoice, Voices, EndVoices, Part, EndPart,
		BPM, KeyMarker, Intro, Interlude, Repeat, EndRepeat:
		return true
	}
	return false
}

// Token is one lexeme of notation source. Pos is the byte offset of the
// first character.
type Token struct {
	Kind   Kind
	Lexeme string
	Pos    int
}

func (t Token) String() string {
	if t.Lexeme == "" {
		return t.Kind.String()
	}
	return fmt.Sprintf("%s(%q)", t.Kind, t.Lexeme)
}
