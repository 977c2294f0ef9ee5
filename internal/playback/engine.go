package playback

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/llehouerou/ripple/internal/accent"
	"github.com/llehouerou/ripple/internal/blob"
	"github.com/llehouerou/ripple/internal/crossfade"
	"github.com/llehouerou/ripple/internal/dsp"
	"github.com/llehouerou/ripple/internal/library"
	"github.com/llehouerou/ripple/internal/logger"
	"github.com/llehouerou/ripple/internal/player"
	"github.com/llehouerou/ripple/internal/playlist"
	"github.com/llehouerou/ripple/internal/resolver"
	"github.com/llehouerou/ripple/internal/state"
	"github.com/llehouerou/ripple/internal/track"
)

// ErrClosed is returned by operations on a closed engine.
var ErrClosed = errors.New("playback engine closed")

// ErrEmptyQueue is returned when there is nothing to play.
var ErrEmptyQueue = errors.New("nothing to play")

// MetadataResolver resolves display metadata for a track.
type MetadataResolver interface {
	Resolve(ctx context.Context, req resolver.Request, deliver resolver.Deliver) (*resolver.Result, error)
}

const (
	// rewindThreshold is how far into a track Previous rewinds instead of
	// going back.
	rewindThreshold = 3 * time.Second
	tickInterval    = 250 * time.Millisecond
	resolveTimeout  = 30 * time.Second
	persistTimeout  = 10 * time.Second
	persistBacklog  = 64
)

// Verify Engine implements Service at compile time.
var _ Service = (*Engine)(nil)

// Engine is the playback engine. All state is guarded by mu; store writes
// and metadata resolution run in background goroutines.
type Engine struct {
	mu sync.Mutex

	output   player.Output
	store    library.Store
	settings state.Interface
	blobs    *blob.Registry
	resolver MetadataResolver
	now      func() time.Time
	intn     func(n int) int

	queue *playlist.PlayingQueue

	// active is the payload-bearing track bound to source.
	active     *track.Track
	source     player.Source
	meta       Metadata
	generation uint64

	graph       *dsp.Graph
	graphFailed bool
	eq          dsp.EQ
	dsp         DSPSettings

	volume   float64
	shuffle  bool
	repeat   bool
	playing  bool
	position time.Duration
	duration time.Duration
	last     State

	fader *crossfade.Fader
	// next is the incoming track of the active crossfade.
	next *track.Track
	// skipFade is the generation whose crossfade could not be prepared.
	skipFade uint64
	// prefetch loads the payload of the likely next track off the lock.
	prefetch *prefetch

	subs   []*Subscription
	subsMu sync.RWMutex

	persistCh   chan func(context.Context)
	persistDone chan struct{}
	wake        chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithResolver enables asynchronous metadata resolution.
func WithResolver(r MetadataResolver) Option {
	return func(e *Engine) { e.resolver = r }
}

// WithClock overrides the clock used for transient track ids.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRand overrides the shuffle source. intn must return a value in [0, n).
func WithRand(intn func(n int) int) Option {
	return func(e *Engine) { e.intn = intn }
}

// WithTicker overrides the crossfade step ticker.
func WithTicker(f crossfade.TickerFunc) Option {
	return func(e *Engine) { e.fader = crossfade.New(f, e.onCrossfadeStep) }
}

// WithDSP sets the initial processing settings.
func WithDSP(s DSPSettings) Option {
	return func(e *Engine) { e.dsp = s.Normalized() }
}

// WithEQ sets the equalizer used when none was saved.
func WithEQ(eq dsp.EQ) Option {
	return func(e *Engine) { e.eq = eq.Clamped() }
}

// New creates an engine. store and settings may be nil, in which case
// nothing is persisted.
func New(output player.Output, store library.Store, settings state.Interface, blobs *blob.Registry, opts ...Option) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		output:      output,
		store:       store,
		settings:    settings,
		blobs:       blobs,
		now:         time.Now,
		intn:        rand.IntN,
		queue:       playlist.NewQueue(),
		eq:          dsp.DefaultEQ(),
		dsp:         DefaultDSPSettings(),
		volume:      1,
		persistCh:   make(chan func(context.Context), persistBacklog),
		persistDone: make(chan struct{}),
		wake:        make(chan struct{}, 1),
		ctx:         ctx,
		cancel:      cancel,
	}
	if e.blobs == nil {
		e.blobs = blob.NewRegistry()
	}
	e.fader = crossfade.New(nil, e.onCrossfadeStep)
	for _, opt := range opts {
		opt(e)
	}
	e.restoreSettings()
	e.fader.SetNominal(e.volume)
	e.meta = Metadata{Accent: accent.Default}
	e.last = e.stateLocked()

	go e.persistLoop()
	return e
}

// restoreSettings loads the saved EQ. Volume and modes always start at
// their defaults.
func (e *Engine) restoreSettings() {
	if e.settings == nil {
		return
	}
	eq, err := e.settings.EQ()
	if err != nil {
		logger.Warn("load equalizer", zap.Error(err))
	} else if eq != nil {
		e.eq = eq.Clamped()
	}
}

// Subscribe creates a new event subscription.
func (e *Engine) Subscribe() *Subscription {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	sub := newSubscription()
	e.subs = append(e.subs, sub)
	return sub
}

// Unsubscribe detaches sub and closes its Done channel. Unknown or already
// detached subscriptions are ignored.
func (e *Engine) Unsubscribe(sub *Subscription) {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	for i, s := range e.subs {
		if s == sub {
			e.subs = append(e.subs[:i], e.subs[i+1:]...)
			sub.close()
			return
		}
	}
}

func (e *Engine) broadcast(fn func(*Subscription)) {
	e.subsMu.RLock()
	defer e.subsMu.RUnlock()
	for _, sub := range e.subs {
		fn(sub)
	}
}

func (e *Engine) stateLocked() State {
	return State{
		IsPlaying:     e.playing,
		Volume:        e.volume,
		IsShuffle:     e.shuffle,
		IsRepeat:      e.repeat,
		IsCrossfading: e.fader.Active(),
		CurrentTime:   e.position,
		Duration:      e.duration,
	}
}

// emitStateLocked sends a StateChange when the snapshot differs from the
// last one sent.
func (e *Engine) emitStateLocked() {
	cur := e.stateLocked()
	if cur == e.last {
		return
	}
	ev := StateChange{Previous: e.last, Current: cur}
	e.last = cur
	e.broadcast(func(s *Subscription) { s.sendState(ev) })
}

func (e *Engine) emitQueueLocked() {
	ev := QueueChange{
		Queue:       e.queue.Queue(),
		Library:     e.queue.Library(),
		Recents:     withoutPayloads(e.queue.Recents()),
		Index:       e.queue.CurrentIndex(),
		QueueActive: e.queue.QueueActive(),
	}
	e.broadcast(func(s *Subscription) { s.sendQueue(ev) })
}

func (e *Engine) emitModeLocked() {
	ev := ModeChange{Shuffle: e.shuffle, Repeat: e.repeat}
	e.broadcast(func(s *Subscription) { s.sendMode(ev) })
}

func (e *Engine) emitMetadataLocked() {
	ev := MetadataChange{Metadata: e.meta}
	e.broadcast(func(s *Subscription) { s.sendMetadata(ev) })
}

func (e *Engine) emitTrack(ev TrackChange) {
	e.broadcast(func(s *Subscription) { s.sendTrack(ev) })
}

func (e *Engine) emitError(ev ErrorEvent) {
	logger.Warn(ev.Message(), zap.Float64("track_id", ev.TrackID))
	e.broadcast(func(s *Subscription) { s.sendError(ev) })
}

func withoutPayloads(tracks []track.Track) []track.Track {
	for i := range tracks {
		tracks[i].Payload = nil
	}
	return tracks
}

// State returns the current playback snapshot.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.source != nil {
		e.position = e.source.Position()
	}
	return e.stateLocked()
}

// Metadata returns the display metadata of the active track.
func (e *Engine) Metadata() Metadata {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.meta
}

// Current returns the active track without its payload, or nil.
func (e *Engine) Current() *track.Track {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil {
		return nil
	}
	t := e.active.WithoutPayload()
	return &t
}

// CurrentIndex returns the index of the active track in the active list.
func (e *Engine) CurrentIndex() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.CurrentIndex()
}

// Queue returns a copy of the user queue.
func (e *Engine) Queue() []track.Track {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.Queue()
}

// Library returns a copy of the library list.
func (e *Engine) Library() []track.Track {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.Library()
}

// Recents returns the recently played tracks, most recent first.
func (e *Engine) Recents() []track.Track {
	e.mu.Lock()
	defer e.mu.Unlock()
	return withoutPayloads(e.queue.Recents())
}

// HiRes reports whether the active track is in a high-resolution format.
func (e *Engine) HiRes() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active != nil && track.IsHiRes(e.active.Format)
}

// TwentyFourBit reports whether the active track is in a 24-bit format.
func (e *Engine) TwentyFourBit() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active != nil && track.Is24Bit(e.active.Format)
}

// Close stops playback, releases every handle the engine owns, waits for
// background work and closes all subscriptions. It is idempotent.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.fader.Cancel()
	e.next = nil
	e.prefetch = nil
	e.teardownSourceLocked()
	e.releaseCoverLocked()
	e.active = nil
	e.playing = false
	e.cancel()
	close(e.persistCh)
	e.mu.Unlock()

	e.wg.Wait()
	<-e.persistDone

	e.subsMu.Lock()
	for _, sub := range e.subs {
		sub.close()
	}
	e.subs = nil
	e.subsMu.Unlock()

	return nil
}
