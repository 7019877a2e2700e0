// Package autopiano plays piano notation scores through the local audio
// device. Playback can be paused, resumed from where it stopped, and
// re-levelled while it runs.
package autopiano

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	intaudio "github.com/autopiano/autopiano-go/internal/audio"
	intlog "github.com/autopiano/autopiano-go/internal/logging"
	intnotation "github.com/autopiano/autopiano-go/internal/notation"
	intseq "github.com/autopiano/autopiano-go/internal/sequencer"
	inttransport "github.com/autopiano/autopiano-go/internal/transport"
)

// EventKind identifies a PlaybackEvent.
type EventKind int

const (
	EventStarted EventKind = iota
	EventPaused
	EventResumed
	EventStopped
	EventPlaybackEnded
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventPaused:
		return "paused"
	case EventResumed:
		return "resumed"
	case EventStopped:
		return "stopped"
	case EventPlaybackEnded:
		return "ended"
	case EventFailed:
		return "failed"
	}
	return "unknown"
}

// PlaybackEvent is delivered on the channel returned by Watch.
type PlaybackEvent struct {
	Kind    EventKind
	Session string
	Err     error // set for EventFailed
}

type PlayerOption func(*playerConfig)

type playerConfig struct {
	backend string
	newSink intaudio.Factory
	log     *intlog.Logger
	seq     intseq.Options
	poll    time.Duration
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{
		backend: "ebiten",
		log:     intlog.Discard(),
		seq:     intseq.DefaultOptions(),
		poll:    defaultPollInterval,
	}
}

// WithBackend selects a registered audio backend by name.
func WithBackend(name string) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.backend = name
	}
}

// WithSinkFactory overrides the backend with a custom sink constructor.
func WithSinkFactory(f intaudio.Factory) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.newSink = f
	}
}

func WithLogger(l *intlog.Logger) PlayerOption {
	return func(cfg *playerConfig) {
		if l != nil {
			cfg.log = l
		}
	}
}

func WithSequencerOptions(o intseq.Options) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.seq = o
	}
}

// Compile parses notation text into a playable score.
func Compile(text string) (*intnotation.Score, error) {
	return intnotation.Parse(text)
}

// playbackState holds the live volume and speed factor shared with the
// playback goroutine, which reads them once per block.
type playbackState struct {
	volume atomic.Uint64
	speed  atomic.Uint64
}

func (l *playbackState) Volume() float64      { return math.Float64frombits(l.volume.Load()) }
func (l *playbackState) SpeedFactor() float64 { return math.Float64frombits(l.speed.Load()) }

type session struct {
	id       string
	score    *intnotation.Score
	finished chan struct{}
	once     sync.Once
	err      error
}

func newSession(score *intnotation.Score) *session {
	return &session{
		id:       uuid.NewString(),
		score:    score,
		finished: make(chan struct{}),
	}
}

func (s *session) finish(err error) {
	s.once.Do(func() {
		s.err = err
		close(s.finished)
	})
}

// Player owns one playback session at a time and the transport state
// around it: stopped, playing or paused.
type Player struct {
	cfg    playerConfig
	log    *intlog.Logger
	levels playbackState
	sleep  sleepFunc

	mu      sync.Mutex
	state   inttransport.State
	session *session
	sink    intaudio.Sink
	cursor  *intseq.Cursor
	cancel  context.CancelFunc
	done    chan struct{} // closed when the playback goroutine exits

	eventCh   chan PlaybackEvent
	eventChMu sync.Mutex
}

var _ inttransport.Controller = (*Player)(nil)

func NewPlayer(opts ...PlayerOption) (*Player, error) {
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.newSink == nil {
		f, err := intaudio.Open(cfg.backend)
		if err != nil {
			return nil, err
		}
		cfg.newSink = f
	}
	p := &Player{cfg: cfg, log: cfg.log, sleep: sleepContext}
	p.levels.volume.Store(math.Float64bits(1))
	p.levels.speed.Store(math.Float64bits(1))
	return p, nil
}

// PlayText compiles text and plays it.
func (p *Player) PlayText(text string) error {
	score, err := Compile(text)
	if err != nil {
		return err
	}
	return p.Play(score)
}

// Play stops whatever is playing and starts score from the top in a new
// session. It returns once playback has started.
func (p *Player) Play(score *intnotation.Score) error {
	if score == nil {
		return errors.New("nil score")
	}
	for {
		if err := p.Stop(); err != nil {
			p.log.Warnf("stopping previous session: %v", err)
		}
		p.mu.Lock()
		if p.done == nil {
			break
		}
		p.mu.Unlock()
	}
	defer p.mu.Unlock()

	sink, err := p.cfg.newSink()
	if err != nil {
		return errors.Wrap(err, "open audio sink")
	}
	sess := newSession(score)
	p.session = sess
	p.sink = sink
	p.cursor = nil
	p.state = inttransport.Playing
	p.startLocked(intseq.Start(score))
	p.log.Infof("session %s: playing %d voices and %d sections at %d BPM", sess.id, len(score.Voices), len(score.Sections), score.BPM())
	p.sendEvent(PlaybackEvent{Kind: EventStarted, Session: sess.id})
	return nil
}

func (p *Player) seqOptions() intseq.Options {
	o := p.cfg.seq
	if o.Logf == nil {
		o.Logf = p.log.Debugf
	}
	return o
}

// startLocked launches the playback goroutine from cursor. p.mu is held.
func (p *Player) startLocked(from intseq.Cursor) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	out := &sinkOutput{sink: p.sink, poll: p.cfg.poll, sleep: p.sleep}
	seq := intseq.New(p.session.score, out, &p.levels, p.seqOptions())
	go p.run(ctx, seq, from, p.session, done)
}

func (p *Player) run(ctx context.Context, seq *intseq.Sequencer, from intseq.Cursor, sess *session, done chan struct{}) {
	cur, err := seq.Run(ctx, from)

	p.mu.Lock()
	defer p.mu.Unlock()
	defer close(done)
	if p.done == done {
		p.done = nil
		p.cancel = nil
	}
	if p.session != sess {
		return
	}
	switch {
	case err == nil:
		p.state = inttransport.Stopped
		p.cursor = nil
		p.log.Infof("session %s: playback finished", sess.id)
		sess.finish(nil)
		p.sendEvent(PlaybackEvent{Kind: EventPlaybackEnded, Session: sess.id})
	case errors.Is(err, context.Canceled):
		if p.state == inttransport.Paused {
			c := cur
			p.cursor = &c
			p.log.Infof("session %s: paused at beat %d, section %d, measure %d, element %d", sess.id, cur.Beat, cur.Section, cur.Measure, cur.Element)
			p.sendEvent(PlaybackEvent{Kind: EventPaused, Session: sess.id})
		}
	default:
		p.state = inttransport.Stopped
		p.cursor = nil
		if p.sink != nil {
			p.sink.Stop()
			p.sink = nil
		}
		p.log.Errorf("session %s: playback failed: %v", sess.id, err)
		sess.finish(err)
		p.sendEvent(PlaybackEvent{Kind: EventFailed, Session: sess.id, Err: err})
	}
}

// Pause interrupts the current block and keeps the position so Resume can
// continue from it.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != inttransport.Playing {
		return inttransport.ErrNotPlaying
	}
	p.state = inttransport.Paused
	p.cancel()
	p.log.Infof("session %s: pause requested", p.session.id)
	return nil
}

// Resume restarts a paused session on a fresh sink, replaying the
// interrupted block from its beginning.
func (p *Player) Resume() error {
	p.mu.Lock()
	if p.state != inttransport.Paused {
		p.mu.Unlock()
		return inttransport.ErrNothingToResume
	}
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != inttransport.Paused || p.cursor == nil || p.done != nil {
		return inttransport.ErrNothingToResume
	}
	if p.sink != nil {
		if err := p.sink.Stop(); err != nil {
			p.log.Warnf("releasing paused sink: %v", err)
		}
		p.sink = nil
	}
	sink, err := p.cfg.newSink()
	if err != nil {
		return errors.Wrap(err, "reopen audio sink")
	}
	p.sink = sink
	from := *p.cursor
	p.cursor = nil
	p.state = inttransport.Playing
	p.startLocked(from)
	p.log.Infof("session %s: resumed", p.session.id)
	p.sendEvent(PlaybackEvent{Kind: EventResumed, Session: p.session.id})
	return nil
}

// Stop ends the session, discards any pause position and releases the
// sink. Stopping an idle player is a no-op.
func (p *Player) Stop() error {
	p.mu.Lock()
	sess := p.session
	done := p.done
	sink := p.sink
	active := p.state != inttransport.Stopped
	if p.cancel != nil {
		p.cancel()
	}
	p.state = inttransport.Stopped
	p.cursor = nil
	p.sink = nil
	p.mu.Unlock()

	if done != nil {
		<-done
	}
	var err error
	if sink != nil {
		err = errors.Wrap(sink.Stop(), "stop audio sink")
	}
	if sess != nil {
		sess.finish(nil)
		if active {
			p.log.Infof("session %s: stopped", sess.id)
			p.sendEvent(PlaybackEvent{Kind: EventStopped, Session: sess.id})
		}
	}
	return err
}

// Wait blocks until the current session finishes or is stopped and
// returns the error that ended it, if any. A paused session is not
// finished.
func (p *Player) Wait() error {
	p.mu.Lock()
	sess := p.session
	p.mu.Unlock()
	if sess == nil {
		return nil
	}
	<-sess.finished
	return sess.err
}

// Watch returns a channel that receives playback events. Events are
// dropped when the channel is full.
func (p *Player) Watch() <-chan PlaybackEvent {
	ch := make(chan PlaybackEvent, 16)
	p.eventChMu.Lock()
	p.eventCh = ch
	p.eventChMu.Unlock()
	return ch
}

func (p *Player) sendEvent(ev PlaybackEvent) {
	p.eventChMu.Lock()
	ch := p.eventCh
	p.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
		}
	}
}

// SetVolume sets the master volume. It applies from the next block.
func (p *Player) SetVolume(v float64) error {
	if !inttransport.ValidVolume(v) {
		return errors.Wrapf(inttransport.ErrInvalidVolume, "got %g", v)
	}
	p.levels.volume.Store(math.Float64bits(v))
	p.log.Infof("volume set to %.2f", v)
	return nil
}

func (p *Player) Volume() float64 { return p.levels.Volume() }

// SetSpeed sets the playing speed from a tempo, as bpm/120.
func (p *Player) SetSpeed(bpm int) error {
	f, err := inttransport.SpeedFactor(bpm)
	if err != nil {
		return err
	}
	return p.SetSpeedFactor(f)
}

// SetSpeedFactor sets the duration multiplier directly.
func (p *Player) SetSpeedFactor(f float64) error {
	if !(f > 0) || math.IsInf(f, 0) {
		return errors.Wrapf(inttransport.ErrInvalidSpeed, "got %g", f)
	}
	p.levels.speed.Store(math.Float64bits(f))
	p.log.Infof("speed factor set to %.3f", f)
	return nil
}

func (p *Player) SpeedFactor() float64 { return p.levels.SpeedFactor() }

func (p *Player) State() inttransport.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Session returns the id of the current or last session.
func (p *Player) Session() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return ""
	}
	return p.session.id
}

// Close stops playback.
func (p *Player) Close() error {
	return p.Stop()
}
