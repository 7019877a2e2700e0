package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/hako/durafmt"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/autopiano/autopiano-go"
	"github.com/autopiano/autopiano-go/internal/audio"
	"github.com/autopiano/autopiano-go/internal/console"
	"github.com/autopiano/autopiano-go/internal/logging"
	"github.com/autopiano/autopiano-go/internal/notation"
	"github.com/autopiano/autopiano-go/internal/sequencer"
	"github.com/autopiano/autopiano-go/internal/transport"
)

const (
	appName = "autopiano"
	version = "1.0.0"
)

var (
	debug         bool
	logFile       string
	backend       string
	volume        float64
	speedBPM      int
	interactive   bool
	noInteractive bool
)

var rootCmd = &cobra.Command{
	Use:   appName + " [flags] <file>",
	Short: "Play piano notation scores",
	Long: `autopiano reads a score written in piano notation (voices, parts,
intro/interlude/repeat sections) and plays it on the audio device.
While playing, an interactive console accepts pause, resume, stop,
volume and speed commands.`,
	Version:       version,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          withLogger(runPlay),
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&debug, "debug", "d", false, "print debug output for every element played")
	pf.StringVar(&logFile, "log-file", "autopiano.log", "append log lines to this file (empty disables)")
	pf.StringVar(&backend, "backend", "ebiten", fmt.Sprintf("audio backend %v", audio.Backends()))
	pf.Float64Var(&volume, "volume", 1, "initial volume (0.0-1.0)")
	pf.IntVar(&speedBPM, "speed", 0, "playing speed as a tempo in BPM, 120 is normal (0 keeps normal speed)")

	rootCmd.Flags().BoolVarP(&interactive, "interactive", "i", true, "run the playback console (default)")
	rootCmd.Flags().BoolVarP(&noInteractive, "no-interactive", "n", false, "play without the console")
}

// withLogger opens the log for one command run and records the error the
// command fails with.
func withLogger(run func(cmd *cobra.Command, args []string, log *logging.Logger) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		log := logging.New(cmd.ErrOrStderr(), logFile, debug)
		defer log.Close()
		err := run(cmd, args, log)
		if err != nil {
			log.Errorf("%v", err)
		}
		return err
	}
}

// loadScore reads and parses a score file, reporting parse errors with
// their line and column.
func loadScore(path string, log *logging.Logger) (*notation.Score, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read score")
	}
	src := string(raw)
	log.Infof("read score from %s", path)
	toks := notation.Tokenize(src)
	log.Infof("tokenized %d tokens", len(toks))
	score, err := notation.ParseTokens(toks)
	if err != nil {
		var perr *notation.ParseError
		if errors.As(err, &perr) {
			line, col := notation.LineCol(src, perr.Pos)
			return nil, errors.Errorf("%s:%d:%d: %s", path, line, col, perr.Msg)
		}
		return nil, err
	}
	log.Infof("parsed %d voices and %d sections", len(score.Voices), len(score.Sections))
	return score, nil
}

func scoreLength(score *notation.Score, speed float64) string {
	return durafmt.Parse(sequencer.Length(score, speed)).LimitFirstN(2).String()
}

func printSummary(w io.Writer, path string, score *notation.Score, speed float64) {
	fmt.Fprintf(w, "%s %s\n", appName, version)
	fmt.Fprintf(w, "score:    %s\n", path)
	fmt.Fprintf(w, "tempo:    %d BPM\n", score.BPM())
	if score.Key != nil {
		fmt.Fprintf(w, "key:      %s\n", score.Key.Name)
	}
	fmt.Fprintf(w, "voices:   %d\n", len(score.Voices))
	fmt.Fprintf(w, "sections: %d\n", len(score.Sections))
	fmt.Fprintf(w, "length:   %s\n", scoreLength(score, speed))
}

func newPlayer(log *logging.Logger) (*autopiano.Player, error) {
	p, err := autopiano.NewPlayer(autopiano.WithBackend(backend), autopiano.WithLogger(log))
	if err != nil {
		return nil, err
	}
	if err := p.SetVolume(volume); err != nil {
		return nil, err
	}
	if speedBPM != 0 {
		if err := p.SetSpeed(speedBPM); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func runPlay(cmd *cobra.Command, args []string, log *logging.Logger) error {
	if len(args) == 0 {
		return cmd.Help()
	}
	ctx, path := cmd.Context(), args[0]
	score, err := loadScore(path, log)
	if err != nil {
		return err
	}
	player, err := newPlayer(log)
	if err != nil {
		return err
	}
	defer player.Close()

	printSummary(cmd.OutOrStdout(), path, score, player.SpeedFactor())
	if err := player.Play(score); err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		player.Stop()
	}()

	if noInteractive || !interactive {
		err = player.Wait()
	} else {
		err = runConsole(ctx, player, log)
	}
	if err == nil {
		log.Infof("playback of %s complete", path)
	}
	return err
}

// runConsole serves the console until the user quits and the session
// finishes, or the session finishes on its own.
func runConsole(ctx context.Context, player *autopiano.Player, log *logging.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		in  console.LineReader
		out io.Writer = os.Stdout
	)
	t, ok, err := console.OpenTerminal(os.Stdin, os.Stdout)
	switch {
	case err != nil:
		log.Warnf("terminal unavailable, reading plain lines: %v", err)
		in = console.NewLineReader(os.Stdin)
	case ok:
		defer t.Restore()
		in, out = t, t
	default:
		in = console.NewLineReader(os.Stdin)
	}

	var playErr error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := console.New(player, in, out, log).Run(gctx)
		if player.State() == transport.Paused {
			player.Stop()
		}
		return err
	})
	g.Go(func() error {
		playErr = player.Wait()
		cancel()
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	return playErr
}
