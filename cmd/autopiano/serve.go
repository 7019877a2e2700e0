package main

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/autopiano/autopiano-go/internal/logging"
	"github.com/autopiano/autopiano-go/internal/remote"
)

var (
	serveAddr  string
	serveRate  float64
	serveBurst int
)

var serveCmd = &cobra.Command{
	Use:   "serve <file>",
	Short: "Play a score and control it over HTTP",
	Long: `serve plays a score and exposes the transport over HTTP:

  GET  /status            state, volume and speed factor
  POST /pause, /resume, /stop
  PUT  /volume            {"volume": 0.8}
  PUT  /speed             {"bpm": 90}`,
	Args: cobra.ExactArgs(1),
	RunE: withLogger(runServe),
}

func init() {
	def := remote.DefaultOptions()
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().Float64Var(&serveRate, "rate", def.RequestsPerSecond, "requests per second allowed (0 disables limiting)")
	serveCmd.Flags().IntVar(&serveBurst, "burst", def.Burst, "request burst size")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string, log *logging.Logger) error {
	score, err := loadScore(args[0], log)
	if err != nil {
		return err
	}
	player, err := newPlayer(log)
	if err != nil {
		return err
	}
	defer player.Close()
	printSummary(cmd.OutOrStdout(), args[0], score, player.SpeedFactor())

	opts := remote.DefaultOptions()
	opts.RequestsPerSecond = serveRate
	opts.Burst = serveBurst
	srv := &http.Server{
		Addr:              serveAddr,
		Handler:           remote.NewHandler(player, log, opts),
		ReadHeaderTimeout: 5 * time.Second,
	}

	if err := player.Play(score); err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		log.Infof("remote control listening on %s", serveAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		player.Stop()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
