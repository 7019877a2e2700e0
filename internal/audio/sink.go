// Package audio binds rendered mono blocks to an output device.
package audio

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/autopiano/autopiano-go/internal/synth"
)

// Sink plays mono float32 blocks at synth.SampleRate, one at a time.
// Write must only be called while Busy reports false.
type Sink interface {
	Write(block []float32) error
	Busy() bool
	// Stop silences the current block and releases the device. Callers
	// open a new sink instead of writing to a stopped one.
	Stop() error
}

// Factory opens a fresh sink.
type Factory func() (Sink, error)

var (
	backendsMu sync.Mutex
	backends   = map[string]Factory{
		"ebiten": NewEbitenSink,
		"oto":    NewOtoSink,
		"null":   func() (Sink, error) { return NewNull(), nil },
	}
)

// register adds a backend that is only compiled in with a build tag.
func register(name string, f Factory) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[name] = f
}

// Backends lists the available backend names.
func Backends() []string {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open returns the factory for a named backend.
func Open(name string) (Factory, error) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	f, ok := backends[strings.ToLower(name)]
	if !ok {
		return nil, errors.Errorf("unknown audio backend %q", name)
	}
	return f, nil
}

// Null is a device-less sink that stays busy for as long as the block
// would take to play.
type Null struct {
	mu    sync.Mutex
	until time.Time
	now   func() time.Time
}

func NewNull() *Null {
	return &Null{now: time.Now}
}

func (n *Null) Write(block []float32) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	d := time.Duration(len(block)) * time.Second / synth.SampleRate
	n.until = n.now().Add(d)
	return nil
}

func (n *Null) Busy() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.now().Before(n.until)
}

func (n *Null) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.until = time.Time{}
	return nil
}
