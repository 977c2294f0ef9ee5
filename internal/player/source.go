package player

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
)

// beepSource is a decoded payload playing through beep.
//
// The processing chain is decoder → resampler → ctrl → volume → end
// detector. Each Route hands the device or graph a fresh routeStream; older
// ones drain themselves so a source is never heard twice.
type beepSource struct {
	out     *BeepOutput
	handle  string
	decoder beep.StreamSeekCloser
	format  beep.Format
	ctrl    *beep.Ctrl
	volume  *effects.Volume
	tail    beep.Streamer

	mu     sync.Mutex
	state  State
	level  float64
	closed bool

	route   atomic.Uint64
	ended   chan struct{}
	endOnce sync.Once
}

func newBeepSource(out *BeepOutput, handle string, decoder beep.StreamSeekCloser, format beep.Format, deviceRate beep.SampleRate, quality int) *beepSource {
	s := &beepSource{
		out:     out,
		handle:  handle,
		decoder: decoder,
		format:  format,
		level:   1,
		ended:   make(chan struct{}),
	}

	var stream beep.Streamer = decoder
	if deviceRate != 0 && format.SampleRate != deviceRate {
		stream = beep.Resample(quality, format.SampleRate, deviceRate, decoder)
	}
	s.ctrl = &beep.Ctrl{Streamer: stream, Paused: true}
	s.volume = &effects.Volume{Streamer: s.ctrl, Base: 2, Volume: 0}
	s.tail = beep.StreamerFunc(s.streamTail)
	return s
}

func (s *beepSource) streamTail(samples [][2]float64) (int, bool) {
	n, ok := s.volume.Stream(samples)
	if !ok {
		s.endOnce.Do(func() { close(s.ended) })
	}
	return n, ok
}

// stream returns a new routed view and detaches every previous one.
func (s *beepSource) stream() beep.Streamer {
	gen := s.route.Add(1)
	return &routeStream{src: s, gen: gen}
}

func (s *beepSource) Handle() string { return s.handle }

func (s *beepSource) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if err := s.out.ready(); err != nil {
		s.state = Paused
		return err
	}
	speaker.Lock()
	s.ctrl.Paused = false
	speaker.Unlock()
	s.state = Playing
	return nil
}

func (s *beepSource) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Playing || s.closed {
		return
	}
	speaker.Lock()
	s.ctrl.Paused = true
	speaker.Unlock()
	s.state = Paused
}

func (s *beepSource) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == Playing
}

func (s *beepSource) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *beepSource) Seek(pos time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	n := s.format.SampleRate.N(pos)
	speaker.Lock()
	defer speaker.Unlock()
	if l := s.decoder.Len(); l > 0 {
		n = min(n, l-1)
	}
	return s.decoder.Seek(max(n, 0))
}

func (s *beepSource) Position() time.Duration {
	speaker.Lock()
	defer speaker.Unlock()
	return s.format.SampleRate.D(s.decoder.Position())
}

func (s *beepSource) Duration() time.Duration {
	return s.format.SampleRate.D(s.decoder.Len())
}

func (s *beepSource) SetVolume(level float64) {
	level = clampLevel(level)
	s.mu.Lock()
	s.level = level
	s.mu.Unlock()

	speaker.Lock()
	s.volume.Volume = levelToVolume(level)
	s.volume.Silent = level <= 0
	speaker.Unlock()
}

func (s *beepSource) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

func (s *beepSource) Ended() <-chan struct{} { return s.ended }

func (s *beepSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.state = Stopped
	// Detach every routed view before releasing the decoder.
	s.route.Add(1)

	speaker.Lock()
	defer speaker.Unlock()
	return s.decoder.Close()
}

// routeStream is one routing of a source. It reports exhaustion once the
// source is re-routed or closed, which makes the device mixer or the graph
// slot drop it.
type routeStream struct {
	src *beepSource
	gen uint64
}

func (r *routeStream) Stream(samples [][2]float64) (int, bool) {
	if r.src.route.Load() != r.gen {
		return 0, false
	}
	return r.src.tail.Stream(samples)
}

func (r *routeStream) Err() error {
	return r.src.decoder.Err()
}
