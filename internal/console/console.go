// Package console is the interactive playback prompt: single-line
// commands that drive a transport.Controller.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/pkg/errors"

	"github.com/autopiano/autopiano-go/internal/logging"
	"github.com/autopiano/autopiano-go/internal/transport"
)

const Prompt = "> "

const helpText = `Playback:
  p, pause        pause playback
  r, resume       resume from the paused position
  s, stop         stop and discard the position
Levels:
  v <0.0-1.0>     set volume, e.g. v 0.8
  sp <bpm>        set speed as a tempo, e.g. sp 120
Other:
  h, help         show this help
  q, quit         leave the console
`

// LineReader yields one command line at a time. It returns io.EOF when
// input is exhausted.
type LineReader interface {
	ReadLine() (string, error)
}

type scannerReader struct {
	sc *bufio.Scanner
}

// NewLineReader reads newline-terminated lines from r.
func NewLineReader(r io.Reader) LineReader {
	return &scannerReader{sc: bufio.NewScanner(r)}
}

func (s *scannerReader) ReadLine() (string, error) {
	if s.sc.Scan() {
		return s.sc.Text(), nil
	}
	if err := s.sc.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

type Console struct {
	ctl  transport.Controller
	in   LineReader
	out  io.Writer
	log  *logging.Logger
	echo bool // write the prompt before each read
}

func New(ctl transport.Controller, in LineReader, out io.Writer, log *logging.Logger) *Console {
	if log == nil {
		log = logging.Discard()
	}
	_, isTerm := in.(*Terminal)
	return &Console{ctl: ctl, in: in, out: out, log: log, echo: !isTerm}
}

var commands = []string{"p", "pause", "r", "resume", "s", "stop", "v", "volume", "sp", "speed", "h", "help", "q", "quit"}

// suggest returns the known command closest to word, or "" if nothing is
// within two edits.
func suggest(word string) string {
	best, bestDist := "", 3
	for _, c := range commands {
		if d := levenshtein.ComputeDistance(word, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// Execute runs one command line and returns the reply to show. quit is
// true when the user asked to leave.
func (c *Console) Execute(line string) (reply string, quit bool) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return "", false
	}
	cmd, args := fields[0], fields[1:]
	c.log.Debugf("console command %q", line)
	switch cmd {
	case "p", "pause":
		if err := c.ctl.Pause(); err != nil {
			return "Nothing is playing.", false
		}
		return "Playback paused.", false
	case "r", "resume":
		if err := c.ctl.Resume(); err != nil {
			if errors.Is(err, transport.ErrNothingToResume) {
				return "Nothing to resume.", false
			}
			return fmt.Sprintf("Error: %v", err), false
		}
		return "Playback resumed.", false
	case "s", "stop":
		if err := c.ctl.Stop(); err != nil {
			c.log.Warnf("stop: %v", err)
		}
		return "Playback stopped.", false
	case "v", "volume":
		if len(args) != 1 {
			return "Error: provide a volume between 0.0 and 1.0.", false
		}
		v, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return "Error: provide a volume between 0.0 and 1.0.", false
		}
		if err := c.ctl.SetVolume(v); err != nil {
			return "Error: volume must be between 0.0 and 1.0.", false
		}
		return fmt.Sprintf("Volume set to %.2f.", v), false
	case "sp", "speed":
		if len(args) != 1 {
			return "Error: provide a BPM value.", false
		}
		bpm, err := strconv.Atoi(args[0])
		if err != nil {
			return "Error: provide a BPM value.", false
		}
		if err := c.ctl.SetSpeed(bpm); err != nil {
			return "Error: BPM must be greater than 0.", false
		}
		return fmt.Sprintf("Speed set to %d BPM.", bpm), false
	case "h", "help":
		return strings.TrimRight(helpText, "\n"), false
	case "q", "quit", "exit":
		return "Left the console.", true
	}
	if s := suggest(cmd); s != "" {
		return fmt.Sprintf("Unknown command %q. Did you mean %q? Type 'h' for help.", cmd, s), false
	}
	return fmt.Sprintf("Unknown command %q. Type 'h' for help.", cmd), false
}

type readResult struct {
	line string
	err  error
}

// Run prints the help text and serves commands until the user quits,
// input ends or ctx is cancelled. Leaving the console does not stop
// playback.
func (c *Console) Run(ctx context.Context) error {
	fmt.Fprintln(c.out, strings.TrimRight(helpText, "\n"))
	lines := make(chan readResult)
	next := make(chan struct{}, 1)
	go func() {
		defer close(lines)
		for range next {
			line, err := c.in.ReadLine()
			select {
			case lines <- readResult{line, err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()
	defer close(next)

	for {
		if c.echo {
			fmt.Fprint(c.out, Prompt)
		}
		next <- struct{}{}
		select {
		case <-ctx.Done():
			return nil
		case r, ok := <-lines:
			if !ok {
				return nil
			}
			if r.err != nil {
				if r.err == io.EOF {
					return nil
				}
				return errors.Wrap(r.err, "read command")
			}
			reply, quit := c.Execute(r.line)
			if reply != "" {
				fmt.Fprintln(c.out, reply)
			}
			if quit {
				return nil
			}
		}
	}
}
