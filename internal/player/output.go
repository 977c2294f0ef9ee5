package player

import (
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
	"go.uber.org/zap"

	"github.com/llehouerou/ripple/internal/dsp"
	"github.com/llehouerou/ripple/internal/logger"
)

// DefaultQuality is the resampling quality used without upsampling.
const DefaultQuality = 4

// OutputOptions configures the beep output.
type OutputOptions struct {
	// SampleRate of the device; 0 adopts the rate of the first opened source.
	SampleRate int
	// Quality is the beep resampling quality (1..6).
	Quality int
	// Buffer is the device buffer length.
	Buffer time.Duration
}

// BeepOutput plays sources on the default audio device through beep's speaker.
type BeepOutput struct {
	opts OutputOptions

	mu          sync.Mutex
	initialized bool
	initErr     error
	deviceRate  beep.SampleRate
	graphOn     bool
}

// NewBeepOutput creates an output; the device opens on first use.
func NewBeepOutput(opts OutputOptions) *BeepOutput {
	if opts.Quality < 1 || opts.Quality > 6 {
		opts.Quality = DefaultQuality
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 100 * time.Millisecond
	}
	return &BeepOutput{opts: opts, deviceRate: beep.SampleRate(opts.SampleRate)}
}

// init opens the device once. A failure is sticky for the session.
func (o *BeepOutput) init(rate beep.SampleRate) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.initialized || o.initErr != nil {
		return o.initErr
	}
	if o.deviceRate == 0 {
		o.deviceRate = rate
	}
	if err := speaker.Init(o.deviceRate, o.deviceRate.N(o.opts.Buffer)); err != nil {
		o.initErr = fmt.Errorf("%w: %w", ErrPlaybackBlocked, err)
		logger.Warn("audio device unavailable", zap.Error(err))
		return o.initErr
	}
	o.initialized = true
	logger.Info("audio device ready", zap.Int("sample_rate", int(o.deviceRate)))
	return nil
}

// ready reports whether the device is open.
func (o *BeepOutput) ready() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.initErr != nil {
		return o.initErr
	}
	if !o.initialized {
		return ErrPlaybackBlocked
	}
	return nil
}

func (o *BeepOutput) rate() beep.SampleRate {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.deviceRate
}

func (o *BeepOutput) Open(handle string, data []byte, format string) (Source, error) {
	decoder, f, err := decode(data, format)
	if err != nil {
		return nil, err
	}
	// The device adopts the first source's rate; a failed init is reported
	// by Play, not here.
	_ = o.init(f.SampleRate)
	return newBeepSource(o, handle, decoder, f, o.rate(), o.quality()), nil
}

// SetQuality changes the resampling quality of sources opened from now on.
func (o *BeepOutput) SetQuality(q int) {
	if q < 1 || q > 6 {
		q = DefaultQuality
	}
	o.mu.Lock()
	o.opts.Quality = q
	o.mu.Unlock()
}

func (o *BeepOutput) quality() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opts.Quality
}

func (o *BeepOutput) NewGraph(eq dsp.EQ) (*dsp.Graph, error) {
	if err := o.ready(); err != nil {
		return nil, err
	}
	g, err := dsp.NewGraph(o.rate(), eq)
	if err != nil {
		return nil, err
	}
	o.mu.Lock()
	o.graphOn = true
	o.mu.Unlock()
	speaker.Play(g.Streamer())
	return g, nil
}

func (o *BeepOutput) Route(src Source, g *dsp.Graph) error {
	s, ok := src.(*beepSource)
	if !ok {
		return fmt.Errorf("route: foreign source %T", src)
	}
	if err := o.ready(); err != nil {
		return err
	}
	stream := s.stream()
	if g != nil {
		g.Bind(stream)
		return nil
	}
	speaker.Play(stream)
	return nil
}

// Verify BeepOutput implements Output at compile time.
var _ Output = (*BeepOutput)(nil)
