package autopiano

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	intaudio "github.com/autopiano/autopiano-go/internal/audio"
	intseq "github.com/autopiano/autopiano-go/internal/sequencer"
	intsynth "github.com/autopiano/autopiano-go/internal/synth"
	inttransport "github.com/autopiano/autopiano-go/internal/transport"
)

// fakeSink finishes every block instantly.
type fakeSink struct {
	mu      sync.Mutex
	writes  []int
	stopped bool
}

func (s *fakeSink) Write(block []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, len(block))
	return nil
}

func (s *fakeSink) Busy() bool { return false }

func (s *fakeSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	return nil
}

type sinkRecorder struct {
	mu    sync.Mutex
	sinks []*fakeSink
}

func (r *sinkRecorder) open() (intaudio.Sink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &fakeSink{}
	r.sinks = append(r.sinks, s)
	return s, nil
}

func (r *sinkRecorder) writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.sinks {
		s.mu.Lock()
		n += len(s.writes)
		s.mu.Unlock()
	}
	return n
}

func instantSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func newTestPlayer(t *testing.T, rec *sinkRecorder, seq intseq.Options) *Player {
	t.Helper()
	p, err := NewPlayer(WithSinkFactory(rec.open), WithSequencerOptions(seq))
	if err != nil {
		t.Fatalf("NewPlayer: %v", err)
	}
	p.sleep = instantSleep
	return p
}

func waitForEvent(t *testing.T, ch <-chan PlaybackEvent, kind EventKind) PlaybackEvent {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev.Kind == kind {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s event", kind)
		}
	}
}

func TestPlayerRunsToCompletion(t *testing.T) {
	rec := &sinkRecorder{}
	p := newTestPlayer(t, rec, intseq.DefaultOptions())
	events := p.Watch()
	if err := p.PlayText("V0 C4 D4 E4 |"); err != nil {
		t.Fatalf("PlayText: %v", err)
	}
	if err := p.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	ev := waitForEvent(t, events, EventPlaybackEnded)
	if ev.Session == "" || ev.Session != p.Session() {
		t.Fatalf("event session %q, player session %q", ev.Session, p.Session())
	}
	if got := rec.writes(); got != 3 {
		t.Fatalf("wrote %d blocks, want 3", got)
	}
	if p.State() != inttransport.Stopped {
		t.Fatalf("state = %s, want stopped", p.State())
	}
}

func TestPauseResumePlaysInterruptedBeatOnce(t *testing.T) {
	rec := &sinkRecorder{}
	var (
		p      *Player
		beats  []int
		paused bool
	)
	opts := intseq.DefaultOptions()
	opts.OnBlock = func(b intseq.Block) {
		beats = append(beats, b.Beat)
		if b.Beat == 2 && !paused {
			paused = true
			if err := p.Pause(); err != nil {
				t.Errorf("Pause: %v", err)
			}
		}
	}
	p = newTestPlayer(t, rec, opts)
	events := p.Watch()
	if err := p.PlayText("V0 C4 D4 E4 F4 G4 |"); err != nil {
		t.Fatalf("PlayText: %v", err)
	}
	waitForEvent(t, events, EventPaused)
	if p.State() != inttransport.Paused {
		t.Fatalf("state = %s, want paused", p.State())
	}
	if got := rec.writes(); got != 2 {
		t.Fatalf("wrote %d blocks before pause, want 2", got)
	}
	if err := p.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if err := p.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if want := []int{0, 1, 2, 2, 3, 4}; !reflect.DeepEqual(beats, want) {
		t.Fatalf("blocks at beats %v, want %v", beats, want)
	}
	if got := rec.writes(); got != 5 {
		t.Fatalf("wrote %d blocks, want 5", got)
	}
	if len(rec.sinks) != 2 || !rec.sinks[0].stopped {
		t.Fatalf("expected the paused sink to be released and a new one opened")
	}
}

func TestStopDiscardsPausePosition(t *testing.T) {
	rec := &sinkRecorder{}
	var p *Player
	opts := intseq.DefaultOptions()
	opts.OnBlock = func(b intseq.Block) {
		if b.Beat == 1 && p.State() == inttransport.Playing {
			p.Pause()
		}
	}
	p = newTestPlayer(t, rec, opts)
	events := p.Watch()
	if err := p.PlayText("V0 C4 D4 E4 |"); err != nil {
		t.Fatalf("PlayText: %v", err)
	}
	waitForEvent(t, events, EventPaused)
	if err := p.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := p.Resume(); !errors.Is(err, inttransport.ErrNothingToResume) {
		t.Fatalf("Resume after Stop = %v, want ErrNothingToResume", err)
	}
	if err := p.Wait(); err != nil {
		t.Fatalf("Wait after Stop = %v", err)
	}
}

func TestTransportCommandsWhenIdle(t *testing.T) {
	p := newTestPlayer(t, &sinkRecorder{}, intseq.DefaultOptions())
	if err := p.Pause(); !errors.Is(err, inttransport.ErrNotPlaying) {
		t.Fatalf("Pause = %v", err)
	}
	if err := p.Resume(); !errors.Is(err, inttransport.ErrNothingToResume) {
		t.Fatalf("Resume = %v", err)
	}
	if err := p.Stop(); err != nil {
		t.Fatalf("Stop = %v", err)
	}
	if err := p.Wait(); err != nil {
		t.Fatalf("Wait = %v", err)
	}
}

func TestVolumeAndSpeedValidation(t *testing.T) {
	p := newTestPlayer(t, &sinkRecorder{}, intseq.DefaultOptions())
	for _, v := range []float64{-0.1, 1.01} {
		if err := p.SetVolume(v); !errors.Is(err, inttransport.ErrInvalidVolume) {
			t.Fatalf("SetVolume(%g) = %v", v, err)
		}
	}
	if err := p.SetVolume(0.25); err != nil || p.Volume() != 0.25 {
		t.Fatalf("SetVolume(0.25) = %v, volume %g", err, p.Volume())
	}
	for _, bpm := range []int{0, -60} {
		if err := p.SetSpeed(bpm); !errors.Is(err, inttransport.ErrInvalidSpeed) {
			t.Fatalf("SetSpeed(%d) = %v", bpm, err)
		}
	}
	if err := p.SetSpeed(60); err != nil || p.SpeedFactor() != 0.5 {
		t.Fatalf("SetSpeed(60) = %v, factor %g", err, p.SpeedFactor())
	}
	if p.SpeedFactor() != 0.5 || p.Volume() != 0.25 {
		t.Fatalf("rejected values changed the levels")
	}
}

func TestSpeedAppliesToNextBlock(t *testing.T) {
	rec := &sinkRecorder{}
	p := newTestPlayer(t, rec, intseq.DefaultOptions())
	if err := p.SetSpeed(240); err != nil {
		t.Fatalf("SetSpeed: %v", err)
	}
	if err := p.PlayText("V0 C4 |"); err != nil {
		t.Fatalf("PlayText: %v", err)
	}
	if err := p.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	// Quarter note at 120 BPM is 500 ms; a factor of 2 doubles it.
	want := intsynth.Samples(1000)
	if got := rec.sinks[0].writes[0]; got != want {
		t.Fatalf("block length %d, want %d", got, want)
	}
}

func TestInvalidPitchFailsSession(t *testing.T) {
	p := newTestPlayer(t, &sinkRecorder{}, intseq.DefaultOptions())
	events := p.Watch()
	if err := p.PlayText("V0 C4 C9 |"); err != nil {
		t.Fatalf("PlayText: %v", err)
	}
	if err := p.Wait(); !errors.Is(err, intsynth.ErrInvalidPitch) {
		t.Fatalf("Wait = %v, want ErrInvalidPitch", err)
	}
	ev := waitForEvent(t, events, EventFailed)
	if ev.Err == nil {
		t.Fatalf("failed event without error")
	}
	if p.State() != inttransport.Stopped {
		t.Fatalf("state = %s, want stopped", p.State())
	}
}

func TestPlayReplacesRunningSession(t *testing.T) {
	rec := &sinkRecorder{}
	var p *Player
	opts := intseq.DefaultOptions()
	opts.OnBlock = func(b intseq.Block) {
		if b.Beat == 0 && len(rec.sinks) == 1 {
			p.Pause()
		}
	}
	p = newTestPlayer(t, rec, opts)
	events := p.Watch()
	if err := p.PlayText("V0 C4 D4 |"); err != nil {
		t.Fatalf("PlayText: %v", err)
	}
	first := p.Session()
	waitForEvent(t, events, EventPaused)
	if err := p.PlayText("V0 E4 |"); err != nil {
		t.Fatalf("second PlayText: %v", err)
	}
	if err := p.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if p.Session() == first {
		t.Fatalf("session id was reused")
	}
	if got := rec.writes(); got != 1 {
		t.Fatalf("wrote %d blocks, want 1", got)
	}
}

func TestUnknownBackend(t *testing.T) {
	if _, err := NewPlayer(WithBackend("theremin")); err == nil {
		t.Fatalf("expected unknown backend error")
	}
}
