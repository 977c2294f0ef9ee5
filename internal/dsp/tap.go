package dsp

import (
	"math"
	"sync"

	"github.com/gopxl/beep/v2"
)

// TapSize is the number of mono samples kept for analysis.
const TapSize = 2048

// Tap passes audio through unchanged and keeps the latest samples for
// spectrum analysis.
type Tap struct {
	Streamer beep.Streamer

	sampleRate float64
	mu         sync.Mutex
	ring       [TapSize]float64
	pos        int
}

// NewTap wraps s.
func NewTap(s beep.Streamer, sampleRate beep.SampleRate) *Tap {
	return &Tap{Streamer: s, sampleRate: float64(sampleRate)}
}

func (t *Tap) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = t.Streamer.Stream(samples)
	t.mu.Lock()
	for i := range samples[:n] {
		t.ring[t.pos] = (samples[i][0] + samples[i][1]) / 2
		t.pos = (t.pos + 1) % TapSize
	}
	t.mu.Unlock()
	return n, ok
}

func (t *Tap) Err() error {
	return t.Streamer.Err()
}

// Spectrum returns the magnitude at each band center, in band order.
// Values are linear amplitudes, roughly in [0, 1].
func (t *Tap) Spectrum() []float64 {
	buf := make([]float64, TapSize)
	t.mu.Lock()
	// Oldest sample first.
	n := copy(buf, t.ring[t.pos:])
	copy(buf[n:], t.ring[:t.pos])
	t.mu.Unlock()

	out := make([]float64, BandCount)
	for i, f := range Frequencies {
		if f >= t.sampleRate/2 {
			f = 0.45 * t.sampleRate
		}
		out[i] = goertzel(buf, f, t.sampleRate)
	}
	return out
}

// goertzel returns the amplitude of freq in buf, windowed with Hann.
func goertzel(buf []float64, freq, sampleRate float64) float64 {
	n := float64(len(buf))
	w := 2 * math.Pi * freq / sampleRate
	coeff := 2 * math.Cos(w)

	var s1, s2 float64
	for i, x := range buf {
		win := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/(n-1))
		s0 := x*win + coeff*s1 - s2
		s2 = s1
		s1 = s0
	}
	power := s1*s1 + s2*s2 - coeff*s1*s2
	// Hann halves the coherent gain.
	return 2 * math.Sqrt(max(power, 0)) / (n * 0.5)
}
