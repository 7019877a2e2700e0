package autopiano

import (
	"context"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"

	intnotation "github.com/autopiano/autopiano-go/internal/notation"
	intseq "github.com/autopiano/autopiano-go/internal/sequencer"
	intsynth "github.com/autopiano/autopiano-go/internal/synth"
)

const wavBitDepth = 16

// captureOutput collects blocks back to back instead of playing them.
type captureOutput struct {
	samples []float32
}

func (c *captureOutput) Play(ctx context.Context, block []float32) error {
	c.samples = append(c.samples, block...)
	return ctx.Err()
}

func (c *captureOutput) Rest(ctx context.Context, samples int) error {
	c.samples = append(c.samples, make([]float32, samples)...)
	return ctx.Err()
}

type fixedLevels struct{ speed float64 }

func (fixedLevels) Volume() float64        { return 1 }
func (l fixedLevels) SpeedFactor() float64 { return l.speed }

// RenderSamples plays score into memory at full volume and the given speed
// factor and returns the mono samples at intsynth.SampleRate.
func RenderSamples(ctx context.Context, score *intnotation.Score, speed float64) ([]float32, error) {
	if speed <= 0 {
		speed = 1
	}
	out := &captureOutput{}
	seq := intseq.New(score, out, fixedLevels{speed: speed}, intseq.DefaultOptions())
	if _, err := seq.Run(ctx, intseq.Start(score)); err != nil {
		return nil, err
	}
	return out.samples, nil
}

// WriteWAV encodes mono samples as 16-bit PCM.
func WriteWAV(w io.WriteSeeker, samples []float32, sampleRate int) error {
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, len(samples)),
		SourceBitDepth: wavBitDepth,
	}
	for i, s := range samples {
		buf.Data[i] = int(min(max(s, -1), 1) * 32767)
	}
	enc := wav.NewEncoder(w, sampleRate, wavBitDepth, 1, 1)
	if err := enc.Write(buf); err != nil {
		return errors.Wrap(err, "encode wav")
	}
	return errors.Wrap(enc.Close(), "finish wav")
}

// RenderWAVFile renders score and writes it to path, returning the number
// of samples written.
func RenderWAVFile(ctx context.Context, score *intnotation.Score, path string, speed float64) (int, error) {
	samples, err := RenderSamples(ctx, score, speed)
	if err != nil {
		return 0, err
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	if err := WriteWAV(f, samples, intsynth.SampleRate); err != nil {
		f.Close()
		return 0, err
	}
	return len(samples), f.Close()
}
