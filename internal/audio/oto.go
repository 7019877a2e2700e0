package audio

import (
	"bytes"
	"encoding/binary"
	"math"
	"sync"

	"github.com/ebitengine/oto/v3"

	"github.com/autopiano/autopiano-go/internal/synth"
)

var (
	otoContextOnce sync.Once
	otoContext     *oto.Context
	otoContextErr  error
)

// oto allows a single context per process.
func sharedOtoContext() (*oto.Context, error) {
	otoContextOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   synth.SampleRate,
			ChannelCount: 1,
			Format:       oto.FormatFloat32LE,
		})
		if err != nil {
			otoContextErr = err
			return
		}
		<-ready
		otoContext = ctx
	})
	return otoContext, otoContextErr
}

// OtoSink writes mono float32 blocks straight to an oto player.
type OtoSink struct {
	mu     sync.Mutex
	ctx    *oto.Context
	player *oto.Player
}

func NewOtoSink() (Sink, error) {
	ctx, err := sharedOtoContext()
	if err != nil {
		return nil, err
	}
	return &OtoSink{ctx: ctx}, nil
}

func encodeFloat32LE(block []float32) []byte {
	out := make([]byte, len(block)*4)
	for i, s := range block {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(s))
	}
	return out
}

func (s *OtoSink) Write(block []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player != nil {
		s.player.Close()
	}
	s.player = s.ctx.NewPlayer(bytes.NewReader(encodeFloat32LE(block)))
	s.player.Play()
	return nil
}

func (s *OtoSink) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player != nil && s.player.IsPlaying()
}

func (s *OtoSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player == nil {
		return nil
	}
	s.player.Pause()
	err := s.player.Close()
	s.player = nil
	return err
}
