package dsp

import (
	"math"
	"sync/atomic"
)

// SmoothingTau is the time constant of parameter transitions.
const SmoothingTau = 0.05

// param is a float written by the control side and read by the audio side.
type param struct {
	bits atomic.Uint64
}

func newParam(v float64) *param {
	p := &param{}
	p.Store(v)
	return p
}

func (p *param) Load() float64 {
	return math.Float64frombits(p.bits.Load())
}

func (p *param) Store(v float64) {
	p.bits.Store(math.Float64bits(v))
}

// smoothingFactor returns the fraction of the remaining distance covered
// after n samples of a one-pole approach with time constant tau.
func smoothingFactor(n int, sampleRate, tau float64) float64 {
	if tau <= 0 {
		return 1
	}
	return 1 - math.Exp(-float64(n)/(tau*sampleRate))
}
