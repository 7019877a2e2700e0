//go:build portaudio

package audio

import (
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
	"github.com/pkg/errors"

	"github.com/autopiano/autopiano-go/internal/synth"
)

const portaudioFrames = 1024

func init() {
	register("portaudio", NewPortaudioSink)
}

// PortaudioSink pushes blocks through a blocking PortAudio stream on a
// writer goroutine; Busy is true while that goroutine runs.
type PortaudioSink struct {
	mu      sync.Mutex
	stream  *portaudio.Stream
	buf     []float32
	busy    atomic.Bool
	stopped atomic.Bool
	wg      sync.WaitGroup
}

func NewPortaudioSink() (Sink, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, errors.Wrap(err, "portaudio init")
	}
	s := &PortaudioSink{buf: make([]float32, portaudioFrames)}
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(synth.SampleRate), len(s.buf), &s.buf)
	if err != nil {
		portaudio.Terminate()
		return nil, errors.Wrap(err, "open portaudio stream")
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, errors.Wrap(err, "start portaudio stream")
	}
	s.stream = stream
	return s, nil
}

func (s *PortaudioSink) Write(block []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream == nil {
		return errors.New("portaudio sink closed")
	}
	s.stopped.Store(false)
	s.busy.Store(true)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.busy.Store(false)
		for off := 0; off < len(block) && !s.stopped.Load(); off += len(s.buf) {
			n := copy(s.buf, block[off:])
			clear(s.buf[n:])
			if err := s.stream.Write(); err != nil {
				return
			}
		}
	}()
	return nil
}

func (s *PortaudioSink) Busy() bool { return s.busy.Load() }

// Stop halts the writer and releases the stream. The sink cannot be
// written to afterwards; the player opens a new one on resume.
func (s *PortaudioSink) Stop() error {
	s.stopped.Store(true)
	s.wg.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream == nil {
		return nil
	}
	err := s.stream.Stop()
	s.stream.Close()
	s.stream = nil
	portaudio.Terminate()
	return err
}
