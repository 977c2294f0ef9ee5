// Package dsp implements the audio processing graph: a 15-band parametric
// equalizer, a dynamics compressor and a spectrum tap, as beep streamers.
package dsp

import "errors"

// BandCount is the number of equalizer bands.
const BandCount = 15

// Frequencies are the fixed band centers in Hz.
var Frequencies = [BandCount]float64{
	20, 40, 63, 100, 160, 250, 400, 630, 1000, 1600, 2500, 4000, 6300, 10000, 20000,
}

const (
	DefaultQ = 1.0
	MinQ     = 0.1
	MaxQ     = 18.0
	MaxGain  = 24.0
)

// ErrBandIndex is returned for a band index outside [0, BandCount).
var ErrBandIndex = errors.New("equalizer band index out of range")

// EQ is the persisted equalizer setting.
type EQ struct {
	Gains [BandCount]float64 `json:"gains"`
	Q     float64            `json:"q"`
}

// DefaultEQ returns a flat equalizer.
func DefaultEQ() EQ {
	return EQ{Q: DefaultQ}
}

// Clamped returns e with gains and Q forced into their valid ranges.
func (e EQ) Clamped() EQ {
	for i := range e.Gains {
		e.Gains[i] = ClampGain(e.Gains[i])
	}
	e.Q = ClampQ(e.Q)
	return e
}

// ClampGain limits a band gain to ±MaxGain dB.
func ClampGain(db float64) float64 {
	return max(-MaxGain, min(MaxGain, db))
}

// ClampQ limits Q to [MinQ, MaxQ]; zero means DefaultQ.
func ClampQ(q float64) float64 {
	if q == 0 {
		return DefaultQ
	}
	return max(MinQ, min(MaxQ, q))
}
