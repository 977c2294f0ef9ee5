package dsp

import (
	"math"

	"github.com/gopxl/beep/v2"
)

// chunk is the sample count between coefficient updates while smoothing.
const chunk = 64

type coefficients struct {
	b0, b1, b2, a1, a2 float64
}

// peakingCoefficients follows the RBJ audio EQ cookbook, normalized by a0.
func peakingCoefficients(sampleRate, freq, gainDB, q float64) coefficients {
	a := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * freq / sampleRate
	cosW0 := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * q)

	a0 := 1 + alpha/a
	return coefficients{
		b0: (1 + alpha*a) / a0,
		b1: -2 * cosW0 / a0,
		b2: (1 - alpha*a) / a0,
		a1: -2 * cosW0 / a0,
		a2: (1 - alpha/a) / a0,
	}
}

// Peaking is one equalizer band.
type Peaking struct {
	Streamer beep.Streamer

	sampleRate float64
	freq       float64

	targetGain *param
	targetQ    *param
	gain       *param // current, written by the audio side
	q          *param

	c     coefficients
	state [2][2]float64 // per channel, transposed direct form II
}

// NewPeaking creates a band centered at freq. A center at or above Nyquist
// is clamped to 0.45 of the sample rate.
func NewPeaking(s beep.Streamer, sampleRate beep.SampleRate, freq, gainDB, q float64) *Peaking {
	sr := float64(sampleRate)
	if freq >= sr/2 {
		freq = 0.45 * sr
	}
	p := &Peaking{
		Streamer:   s,
		sampleRate: sr,
		freq:       freq,
		targetGain: newParam(gainDB),
		targetQ:    newParam(q),
		gain:       newParam(gainDB),
		q:          newParam(q),
	}
	p.c = peakingCoefficients(sr, freq, gainDB, q)
	return p
}

// Freq returns the effective center frequency.
func (p *Peaking) Freq() float64 { return p.freq }

// SetGain sets the target gain in dB.
func (p *Peaking) SetGain(db float64) { p.targetGain.Store(db) }

// SetQ sets the target Q.
func (p *Peaking) SetQ(q float64) { p.targetQ.Store(q) }

// Target returns the target gain and Q.
func (p *Peaking) Target() (gain, q float64) {
	return p.targetGain.Load(), p.targetQ.Load()
}

// Current returns the smoothed gain and Q in effect.
func (p *Peaking) Current() (gain, q float64) {
	return p.gain.Load(), p.q.Load()
}

func (p *Peaking) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = p.Streamer.Stream(samples)
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		p.advance(end - start)
		p.filter(samples[start:end])
	}
	return n, ok
}

func (p *Peaking) Err() error {
	return p.Streamer.Err()
}

// advance moves the current parameters toward their targets.
func (p *Peaking) advance(n int) {
	gain, q := p.Current()
	tg, tq := p.Target()
	if gain == tg && q == tq {
		return
	}

	k := smoothingFactor(n, p.sampleRate, SmoothingTau)
	gain += (tg - gain) * k
	q += (tq - q) * k
	if math.Abs(tg-gain) < 1e-4 {
		gain = tg
	}
	if math.Abs(tq-q) < 1e-6 {
		q = tq
	}

	p.gain.Store(gain)
	p.q.Store(q)
	p.c = peakingCoefficients(p.sampleRate, p.freq, gain, q)
}

func (p *Peaking) filter(samples [][2]float64) {
	c := p.c
	for i := range samples {
		for ch := range 2 {
			x := samples[i][ch]
			z := &p.state[ch]
			y := c.b0*x + z[0]
			z[0] = c.b1*x - c.a1*y + z[1]
			z[1] = c.b2*x - c.a2*y
			samples[i][ch] = y
		}
	}
}
