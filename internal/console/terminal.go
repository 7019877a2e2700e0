package console

import (
	"io"
	"os"

	"golang.org/x/term"
)

// Terminal is a raw-mode line editor on a tty.
type Terminal struct {
	*term.Terminal
	fd    int
	state *term.State
}

type stdio struct {
	io.Reader
	io.Writer
}

// OpenTerminal puts in into raw mode and returns a line editor writing to
// out. ok is false when in is not a terminal; callers then fall back to
// NewLineReader.
func OpenTerminal(in *os.File, out io.Writer) (t *Terminal, ok bool, err error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return nil, false, nil
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, false, err
	}
	return &Terminal{
		Terminal: term.NewTerminal(stdio{in, out}, Prompt),
		fd:       fd,
		state:    state,
	}, true, nil
}

// Restore leaves raw mode.
func (t *Terminal) Restore() error {
	if t.state == nil {
		return nil
	}
	err := term.Restore(t.fd, t.state)
	t.state = nil
	return err
}
