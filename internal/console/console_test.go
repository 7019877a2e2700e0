package console

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/autopiano/autopiano-go/internal/transport"
)

type fakeController struct {
	state  transport.State
	volume float64
	speed  float64
	calls  []string
}

func (f *fakeController) Pause() error {
	f.calls = append(f.calls, "pause")
	if f.state != transport.Playing {
		return transport.ErrNotPlaying
	}
	f.state = transport.Paused
	return nil
}

func (f *fakeController) Resume() error {
	f.calls = append(f.calls, "resume")
	if f.state != transport.Paused {
		return transport.ErrNothingToResume
	}
	f.state = transport.Playing
	return nil
}

func (f *fakeController) Stop() error {
	f.calls = append(f.calls, "stop")
	f.state = transport.Stopped
	return nil
}

func (f *fakeController) SetVolume(v float64) error {
	if !transport.ValidVolume(v) {
		return transport.ErrInvalidVolume
	}
	f.volume = v
	return nil
}

func (f *fakeController) SetSpeed(bpm int) error {
	s, err := transport.SpeedFactor(bpm)
	if err != nil {
		return err
	}
	f.speed = s
	return nil
}

func (f *fakeController) State() transport.State { return f.state }
func (f *fakeController) Volume() float64        { return f.volume }
func (f *fakeController) SpeedFactor() float64   { return f.speed }

func TestExecute(t *testing.T) {
	ctl := &fakeController{state: transport.Playing, volume: 1, speed: 1}
	c := New(ctl, NewLineReader(strings.NewReader("")), &bytes.Buffer{}, nil)
	cases := []struct {
		line  string
		reply string
		quit  bool
	}{
		{"p", "Playback paused.", false},
		{"P", "Nothing is playing.", false},
		{"r", "Playback resumed.", false},
		{"v 0.8", "Volume set to 0.80.", false},
		{"v 1.5", "Error: volume must be between 0.0 and 1.0.", false},
		{"v loud", "Error: provide a volume between 0.0 and 1.0.", false},
		{"v", "Error: provide a volume between 0.0 and 1.0.", false},
		{"sp 60", "Speed set to 60 BPM.", false},
		{"SP 0", "Error: BPM must be greater than 0.", false},
		{"sp fast", "Error: provide a BPM value.", false},
		{"s", "Playback stopped.", false},
		{"r", "Nothing to resume.", false},
		{"", "", false},
		{"q", "Left the console.", true},
	}
	for _, tc := range cases {
		reply, quit := c.Execute(tc.line)
		if reply != tc.reply || quit != tc.quit {
			t.Fatalf("Execute(%q) = %q, %v; want %q, %v", tc.line, reply, quit, tc.reply, tc.quit)
		}
	}
	if ctl.volume != 0.8 || ctl.speed != 0.5 {
		t.Fatalf("levels = %v, %v; invalid input must not change them", ctl.volume, ctl.speed)
	}
}

func TestUnknownCommandSuggests(t *testing.T) {
	c := New(&fakeController{}, NewLineReader(strings.NewReader("")), &bytes.Buffer{}, nil)
	reply, _ := c.Execute("pase")
	if !strings.Contains(reply, `Did you mean "pause"`) {
		t.Fatalf("reply = %q", reply)
	}
	reply, _ = c.Execute("xylophone")
	if strings.Contains(reply, "Did you mean") || !strings.Contains(reply, "Type 'h' for help") {
		t.Fatalf("reply = %q", reply)
	}
}

func TestRunUntilQuit(t *testing.T) {
	ctl := &fakeController{state: transport.Playing}
	var out bytes.Buffer
	c := New(ctl, NewLineReader(strings.NewReader("p\nr\nq\ns\n")), &out, nil)
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := strings.Join(ctl.calls, ","); got != "pause,resume" {
		t.Fatalf("calls = %s", got)
	}
	if !strings.Contains(out.String(), "Left the console.") || !strings.Contains(out.String(), Prompt) {
		t.Fatalf("output = %q", out.String())
	}
}

func TestRunStopsAtEOF(t *testing.T) {
	ctl := &fakeController{state: transport.Playing}
	c := New(ctl, NewLineReader(strings.NewReader("p")), &bytes.Buffer{}, nil)
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ctl.state != transport.Paused {
		t.Fatalf("state = %s", ctl.state)
	}
}
