package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"

	"github.com/autopiano/autopiano-go/internal/synth"
)

// BlockReader streams a mono block as interleaved stereo float32
// little-endian frames, the format ebiten's F32 players read.
type BlockReader struct {
	mu    sync.Mutex
	block []float32
	pos   int
}

func NewBlockReader(block []float32) *BlockReader {
	return &BlockReader{block: block}
}

func (r *BlockReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pos >= len(r.block) {
		return 0, io.EOF
	}
	frames := min(len(p)/8, len(r.block)-r.pos)
	for i := 0; i < frames; i++ {
		u := math.Float32bits(r.block[r.pos+i])
		binary.LittleEndian.PutUint32(p[i*8:], u)
		binary.LittleEndian.PutUint32(p[i*8+4:], u)
	}
	r.pos += frames
	return frames * 8, nil
}

func (r *BlockReader) Close() error { return nil }

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioContextErr  error
	audioSampleRate  int
)

func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioContextErr != nil {
		return nil, audioContextErr
	}
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

// EbitenSink plays each block on a new ebiten audio player sharing the
// process-wide audio context.
type EbitenSink struct {
	mu     sync.Mutex
	ctx    *ebitaudio.Context
	player *ebitaudio.Player
}

func NewEbitenSink() (Sink, error) {
	ctx, err := sharedAudioContext(synth.SampleRate)
	if err != nil {
		return nil, err
	}
	return &EbitenSink{ctx: ctx}, nil
}

func (s *EbitenSink) Write(block []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player != nil {
		s.player.Close()
	}
	pl, err := s.ctx.NewPlayerF32(NewBlockReader(block))
	if err != nil {
		s.player = nil
		return err
	}
	pl.Play()
	s.player = pl
	return nil
}

func (s *EbitenSink) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player != nil && s.player.IsPlaying()
}

func (s *EbitenSink) Stop() error {
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
