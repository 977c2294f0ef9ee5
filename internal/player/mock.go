package player

import (
	"errors"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"

	"github.com/llehouerou/ripple/internal/dsp"
)

// MockSource is a test double for Source.
type MockSource struct {
	mu       sync.Mutex
	handle   string
	state    State
	position time.Duration
	duration time.Duration
	level    float64
	volumes  []float64
	seeks    []time.Duration
	playErr  error
	closed   bool
	ended    chan struct{}
	endOnce  sync.Once
}

// NewMockSource creates a paused mock source of the given duration.
func NewMockSource(handle string, duration time.Duration) *MockSource {
	return &MockSource{
		handle:   handle,
		state:    Paused,
		duration: duration,
		level:    1,
		ended:    make(chan struct{}),
	}
}

func (m *MockSource) Handle() string { return m.handle }

func (m *MockSource) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.playErr != nil {
		return m.playErr
	}
	m.state = Playing
	return nil
}

func (m *MockSource) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Playing {
		m.state = Paused
	}
}

func (m *MockSource) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == Playing
}

func (m *MockSource) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *MockSource) Seek(pos time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seeks = append(m.seeks, pos)
	m.position = pos
	return nil
}

func (m *MockSource) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *MockSource) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

func (m *MockSource) SetVolume(level float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.level = clampLevel(level)
	m.volumes = append(m.volumes, m.level)
}

func (m *MockSource) Volume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

func (m *MockSource) Ended() <-chan struct{} { return m.ended }

func (m *MockSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.state = Stopped
	return nil
}

// Test helpers

// SetPlayError makes subsequent Play calls fail with err.
func (m *MockSource) SetPlayError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playErr = err
}

// SetPosition moves the reported playback position.
func (m *MockSource) SetPosition(pos time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = pos
}

// SetDuration changes the reported duration.
func (m *MockSource) SetDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duration = d
}

// SimulateEnded closes the Ended channel.
func (m *MockSource) SimulateEnded() {
	m.endOnce.Do(func() { close(m.ended) })
}

// Volumes returns every level written through SetVolume.
func (m *MockSource) Volumes() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.volumes...)
}

// Seeks returns every position passed to Seek.
func (m *MockSource) Seeks() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.seeks...)
}

// IsClosed reports whether Close was called.
func (m *MockSource) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// MockSampleRate is the device rate of MockOutput graphs.
const MockSampleRate beep.SampleRate = 44100

// MockOutput is a test double for Output.
type MockOutput struct {
	mu       sync.Mutex
	sources  []*MockSource
	routes   []*dsp.Graph
	graphs   int
	duration time.Duration
	openErr  error
	graphErr error
	playErr  error
	quality  int
}

// NewMockOutput creates an output whose sources report the given duration.
func NewMockOutput(duration time.Duration) *MockOutput {
	return &MockOutput{duration: duration}
}

func (o *MockOutput) Open(handle string, _ []byte, _ string) (Source, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.openErr != nil {
		return nil, o.openErr
	}
	src := NewMockSource(handle, o.duration)
	if o.playErr != nil {
		src.SetPlayError(o.playErr)
	}
	o.sources = append(o.sources, src)
	return src, nil
}

func (o *MockOutput) NewGraph(eq dsp.EQ) (*dsp.Graph, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.graphs++
	if o.graphErr != nil {
		return nil, o.graphErr
	}
	return dsp.NewGraph(MockSampleRate, eq)
}

func (o *MockOutput) Route(src Source, g *dsp.Graph) error {
	if _, ok := src.(*MockSource); !ok {
		return errors.New("route: foreign source")
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.routes = append(o.routes, g)
	return nil
}

func (o *MockOutput) SetQuality(q int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.quality = q
}

// Test helpers

// Quality returns the last quality set.
func (o *MockOutput) Quality() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.quality
}

// SetOpenError makes subsequent Open calls fail.
func (o *MockOutput) SetOpenError(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.openErr = err
}

// SetGraphError makes NewGraph fail.
func (o *MockOutput) SetGraphError(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.graphErr = err
}

// SetPlayError makes sources opened from now on refuse to play.
func (o *MockOutput) SetPlayError(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.playErr = err
}

// SetDuration changes the duration of sources opened from now on.
func (o *MockOutput) SetDuration(d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.duration = d
}

// Sources returns every source opened so far.
func (o *MockOutput) Sources() []*MockSource {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*MockSource(nil), o.sources...)
}

// Last returns the most recently opened source.
func (o *MockOutput) Last() *MockSource {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.sources) == 0 {
		return nil
	}
	return o.sources[len(o.sources)-1]
}

// Routes returns the graph of every Route call; nil means direct.
func (o *MockOutput) Routes() []*dsp.Graph {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*dsp.Graph(nil), o.routes...)
}

// GraphCalls returns how many times NewGraph was called.
func (o *MockOutput) GraphCalls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.graphs
}

// Verify mocks implement their interfaces at compile time.
var (
	_ Source = (*MockSource)(nil)
	_ Output = (*MockOutput)(nil)
)
