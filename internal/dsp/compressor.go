package dsp

import (
	"math"

	"github.com/gopxl/beep/v2"
)

// Fixed compressor settings.
const (
	CompressorThreshold = -24.0 // dB
	CompressorKnee      = 30.0  // dB
	CompressorRatio     = 12.0
	CompressorAttack    = 0.003 // s
	CompressorRelease   = 0.25  // s
)

const silenceDB = -120.0

// Compressor is a stereo-linked feed-forward compressor with a soft knee.
type Compressor struct {
	Streamer beep.Streamer

	attackCoef  float64
	releaseCoef float64
	reduction   float64 // current gain change in dB, <= 0
	metered     *param
}

// NewCompressor wraps s with the fixed compressor settings.
func NewCompressor(s beep.Streamer, sampleRate beep.SampleRate) *Compressor {
	sr := float64(sampleRate)
	return &Compressor{
		Streamer:    s,
		attackCoef:  math.Exp(-1 / (CompressorAttack * sr)),
		releaseCoef: math.Exp(-1 / (CompressorRelease * sr)),
		metered:     newParam(0),
	}
}

// Reduction returns the current gain reduction in dB (zero or negative).
func (c *Compressor) Reduction() float64 {
	return c.metered.Load()
}

func (c *Compressor) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = c.Streamer.Stream(samples)
	for i := range samples[:n] {
		level := max(math.Abs(samples[i][0]), math.Abs(samples[i][1]))
		in := silenceDB
		if level > 0 {
			in = max(silenceDB, 20*math.Log10(level))
		}
		target := staticCurve(in) - in

		coef := c.releaseCoef
		if target < c.reduction {
			coef = c.attackCoef
		}
		c.reduction = coef*c.reduction + (1-coef)*target

		g := math.Pow(10, c.reduction/20)
		samples[i][0] *= g
		samples[i][1] *= g
	}
	c.metered.Store(c.reduction)
	return n, ok
}

func (c *Compressor) Err() error {
	return c.Streamer.Err()
}

// staticCurve maps an input level to an output level, both in dB.
func staticCurve(in float64) float64 {
	over := in - CompressorThreshold
	switch {
	case 2*over < -CompressorKnee:
		return in
	case 2*math.Abs(over) <= CompressorKnee:
		k := over + CompressorKnee/2
		return in + (1/CompressorRatio-1)*k*k/(2*CompressorKnee)
	default:
		return CompressorThreshold + over/CompressorRatio
	}
}
