package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"
	"github.com/pkg/errors"
	"github.com/remeh/sizedwaitgroup"
	"github.com/spf13/cobra"

	"github.com/autopiano/autopiano-go"
	"github.com/autopiano/autopiano-go/internal/logging"
	"github.com/autopiano/autopiano-go/internal/synth"
	"github.com/autopiano/autopiano-go/internal/transport"
)

var (
	renderOutDir string
	renderJobs   int
)

var renderCmd = &cobra.Command{
	Use:   "render <file>...",
	Short: "Render scores to 16-bit WAV files without playing them",
	Args:  cobra.MinimumNArgs(1),
	RunE:  withLogger(runRender),
}

func init() {
	renderCmd.Flags().StringVarP(&renderOutDir, "output", "o", "", "directory for the WAV files (default: next to each score)")
	renderCmd.Flags().IntVarP(&renderJobs, "jobs", "j", runtime.NumCPU(), "scores rendered at once")
	rootCmd.AddCommand(renderCmd)
}

func wavPath(src string) string {
	name := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)) + ".wav"
	dir := renderOutDir
	if dir == "" {
		dir = filepath.Dir(src)
	}
	return filepath.Join(dir, name)
}

func runRender(cmd *cobra.Command, args []string, log *logging.Logger) error {
	speed := 1.0
	if speedBPM != 0 {
		f, err := transport.SpeedFactor(speedBPM)
		if err != nil {
			return err
		}
		speed = f
	}
	if renderOutDir != "" {
		if err := os.MkdirAll(renderOutDir, 0o755); err != nil {
			return err
		}
	}

	var (
		mu     sync.Mutex
		failed int
		out    = cmd.OutOrStdout()
	)
	wg := sizedwaitgroup.New(max(renderJobs, 1))
	for _, src := range args {
		wg.Add()
		go func(src string) {
			defer wg.Done()
			dst := wavPath(src)
			start := time.Now()
			n, size, err := renderOne(cmd.Context(), log, src, dst, speed)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				log.Errorf("render %s: %v", src, err)
				return
			}
			audioLen := time.Duration(n) * time.Second / synth.SampleRate
			fmt.Fprintf(out, "%s -> %s (%s audio, %s, %s)\n", src, dst,
				durafmt.Parse(audioLen).LimitFirstN(2),
				humanize.Bytes(uint64(size)),
				time.Since(start).Round(time.Millisecond))
			log.Infof("rendered %s to %s", src, dst)
		}(src)
	}
	wg.Wait()
	if failed > 0 {
		return errors.Errorf("%d of %d scores failed to render", failed, len(args))
	}
	return nil
}

func renderOne(ctx context.Context, log *logging.Logger, src, dst string, speed float64) (samples int, size int64, err error) {
	score, err := loadScore(src, log)
	if err != nil {
		return 0, 0, err
	}
	samples, err = autopiano.RenderWAVFile(ctx, score, dst, speed)
	if err != nil {
		return 0, 0, err
	}
	fi, err := os.Stat(dst)
	if err != nil {
		return 0, 0, err
	}
	return samples, fi.Size(), nil
}
