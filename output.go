package autopiano

import (
	"context"
	"time"

	intaudio "github.com/autopiano/autopiano-go/internal/audio"
	intsynth "github.com/autopiano/autopiano-go/internal/synth"
)

const defaultPollInterval = 5 * time.Millisecond

// sleepFunc waits for d or until ctx is done.
type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// sinkOutput drives a Sink one block at a time: wait for the device to
// go idle, write, then wait for the block to finish.
type sinkOutput struct {
	sink  intaudio.Sink
	poll  time.Duration
	sleep sleepFunc
}

func (o *sinkOutput) waitIdle(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			o.sink.Stop()
			return err
		}
		if !o.sink.Busy() {
			return nil
		}
		if err := o.sleep(ctx, o.poll); err != nil {
			o.sink.Stop()
			return err
		}
	}
}

func (o *sinkOutput) Play(ctx context.Context, block []float32) error {
	if err := o.waitIdle(ctx); err != nil {
		return err
	}
	if err := o.sink.Write(block); err != nil {
		return err
	}
	return o.waitIdle(ctx)
}

func (o *sinkOutput) Rest(ctx context.Context, samples int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d := time.Duration(samples) * time.Second / intsynth.SampleRate
	return o.sleep(ctx, d)
}
