package dsp

import (
	"fmt"
	"sync"

	"github.com/gopxl/beep/v2"
)

// Graph chains input slot → 15 peaking bands → compressor → tap.
//
// The graph output is added to the device once and never drains: with
// nothing bound it produces silence.
type Graph struct {
	sampleRate beep.SampleRate
	input      *slot
	bands      [BandCount]*Peaking
	compressor *Compressor
	tap        *Tap
}

// NewGraph builds the processing chain for sampleRate with initial EQ.
func NewGraph(sampleRate beep.SampleRate, eq EQ) (*Graph, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	eq = eq.Clamped()

	g := &Graph{sampleRate: sampleRate, input: &slot{}}
	var s beep.Streamer = g.input
	for i, f := range Frequencies {
		g.bands[i] = NewPeaking(s, sampleRate, f, eq.Gains[i], eq.Q)
		s = g.bands[i]
	}
	g.compressor = NewCompressor(s, sampleRate)
	g.tap = NewTap(g.compressor, sampleRate)
	return g, nil
}

// SampleRate returns the rate the graph was built for.
func (g *Graph) SampleRate() beep.SampleRate { return g.sampleRate }

// Streamer returns the graph output.
func (g *Graph) Streamer() beep.Streamer { return g.tap }

// Bind makes s the only source feeding the graph.
func (g *Graph) Bind(s beep.Streamer) { g.input.set(s) }

// Unbind detaches s if it is the bound source.
func (g *Graph) Unbind(s beep.Streamer) { g.input.clear(s) }

// Bound reports whether a source is attached.
func (g *Graph) Bound() bool { return g.input.get() != nil }

// SetBandGain sets the target gain of band i in dB.
func (g *Graph) SetBandGain(i int, db float64) error {
	if i < 0 || i >= BandCount {
		return fmt.Errorf("band %d: %w", i, ErrBandIndex)
	}
	g.bands[i].SetGain(ClampGain(db))
	return nil
}

// SetQFactor sets the shared target Q of every band.
func (g *Graph) SetQFactor(q float64) {
	q = ClampQ(q)
	for _, b := range g.bands {
		b.SetQ(q)
	}
}

// EQ returns the target equalizer setting.
func (g *Graph) EQ() EQ {
	var eq EQ
	for i, b := range g.bands {
		eq.Gains[i], eq.Q = b.Target()
	}
	return eq
}

// Band returns band i, or nil when out of range.
func (g *Graph) Band(i int) *Peaking {
	if i < 0 || i >= BandCount {
		return nil
	}
	return g.bands[i]
}

// Compressor returns the compressor stage.
func (g *Graph) Compressor() *Compressor { return g.compressor }

// Spectrum returns per-band magnitudes of the graph output.
func (g *Graph) Spectrum() []float64 { return g.tap.Spectrum() }

// slot is the swappable graph input.
type slot struct {
	mu sync.Mutex
	s  beep.Streamer
}

func (sl *slot) set(s beep.Streamer) {
	sl.mu.Lock()
	sl.s = s
	sl.mu.Unlock()
}

func (sl *slot) clear(s beep.Streamer) {
	sl.mu.Lock()
	if sl.s == s {
		sl.s = nil
	}
	sl.mu.Unlock()
}

func (sl *slot) get() beep.Streamer {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.s
}

func (sl *slot) Stream(samples [][2]float64) (n int, ok bool) {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if sl.s != nil {
		n, ok = sl.s.Stream(samples)
		if !ok {
			sl.s = nil
			n = 0
		}
	}
	clear(samples[n:])
	return len(samples), true
}

func (sl *slot) Err() error {
	return nil
}
