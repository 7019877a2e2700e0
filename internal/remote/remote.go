// Package remote exposes the playback transport over HTTP so a browser or
// script can pause, resume, stop and re-level a running player.
package remote

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"github.com/autopiano/autopiano-go/internal/logging"
	"github.com/autopiano/autopiano-go/internal/transport"
)

type Status struct {
	State  string  `json:"state"`
	Volume float64 `json:"volume"`
	Speed  float64 `json:"speed"`
}

type volumeRequest struct {
	Volume *float64 `json:"volume"`
}

type speedRequest struct {
	BPM *int `json:"bpm"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type Options struct {
	// RequestsPerSecond and Burst bound the request rate across all
	// clients. Zero disables limiting.
	RequestsPerSecond float64
	Burst             int
	AllowedOrigins    []string
}

func DefaultOptions() Options {
	return Options{RequestsPerSecond: 20, Burst: 10, AllowedOrigins: []string{"*"}}
}

type server struct {
	ctl transport.Controller
	log *logging.Logger
}

// NewHandler builds the HTTP API around ctl.
func NewHandler(ctl transport.Controller, log *logging.Logger, opts Options) http.Handler {
	if log == nil {
		log = logging.Discard()
	}
	s := &server{ctl: ctl, log: log}

	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/status", s.handleStatus).Methods("GET")
	router.HandleFunc("/pause", s.handleCommand(ctl.Pause)).Methods("POST")
	router.HandleFunc("/resume", s.handleCommand(ctl.Resume)).Methods("POST")
	router.HandleFunc("/stop", s.handleCommand(ctl.Stop)).Methods("POST")
	router.HandleFunc("/volume", s.handleVolume).Methods("PUT")
	router.HandleFunc("/speed", s.handleSpeed).Methods("PUT")

	var h http.Handler = router
	if opts.RequestsPerSecond > 0 {
		h = limit(h, rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), max(opts.Burst, 1)))
	}
	c := cors.New(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
	})
	return c.Handler(h)
}

func limit(next http.Handler, l *rate.Limiter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow() {
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func (s *server) status() Status {
	return Status{
		State:  s.ctl.State().String(),
		Volume: s.ctl.Volume(),
		Speed:  s.ctl.SpeedFactor(),
	}
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

func (s *server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, transport.ErrNotPlaying), errors.Is(err, transport.ErrNothingToResume):
		code = http.StatusConflict
	case errors.Is(err, transport.ErrInvalidVolume), errors.Is(err, transport.ErrInvalidSpeed):
		code = http.StatusBadRequest
	}
	s.log.Warnf("remote %s %s: %v", r.Method, r.URL.Path, err)
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

func (s *server) handleCommand(cmd func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		if err := cmd(); err != nil {
			s.fail(w, r, err)
			return
		}
		s.log.Infof("remote %s %s took %s", r.Method, r.URL.Path, time.Since(start))
		writeJSON(w, http.StatusOK, s.status())
	}
}

func (s *server) handleVolume(w http.ResponseWriter, r *http.Request) {
	var req volumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Volume == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: `expected {"volume": <0.0-1.0>}`})
		return
	}
	if err := s.ctl.SetVolume(*req.Volume); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.status())
}

func (s *server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	var req speedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.BPM == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: `expected {"bpm": <positive integer>}`})
		return
	}
	if err := s.ctl.SetSpeed(*req.BPM); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.status())
}
