package playback

import (
	"fmt"

	"github.com/llehouerou/ripple/internal/dsp"
)

// SetBandGain sets the gain of one equalizer band in dB, clamped.
func (e *Engine) SetBandGain(index int, db float64) error {
	if index < 0 || index >= dsp.BandCount {
		return fmt.Errorf("band %d: %w", index, dsp.ErrBandIndex)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.eq.Gains[index] = dsp.ClampGain(db)
	if e.graph != nil {
		if err := e.graph.SetBandGain(index, e.eq.Gains[index]); err != nil {
			return err
		}
	}
	e.saveEQLocked()
	return nil
}

// SetQFactor sets the Q of every band, clamped.
func (e *Engine) SetQFactor(q float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.eq.Q = dsp.ClampQ(q)
	if e.graph != nil {
		e.graph.SetQFactor(e.eq.Q)
	}
	e.saveEQLocked()
}

// EQ returns the equalizer setting. It is kept even without a graph.
func (e *Engine) EQ() dsp.EQ {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.eq
}

// Spectrum returns per-band magnitudes, or nil without a graph.
func (e *Engine) Spectrum() []float64 {
	e.mu.Lock()
	g := e.graph
	e.mu.Unlock()
	if g == nil {
		return nil
	}
	return g.Spectrum()
}

// SetDSP replaces the processing settings. Turning smart crossfade off
// cancels a running crossfade.
func (e *Engine) SetDSP(s DSPSettings) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dsp = s.Normalized()
	e.output.SetQuality(e.dsp.Quality())
	if !e.dsp.SmartCrossfade {
		e.cancelCrossfadeLocked()
	}
	e.emitStateLocked()
}

// DSP returns the processing settings.
func (e *Engine) DSP() DSPSettings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dsp
}

// graphActive reports whether audio runs through the graph.
func (e *Engine) graphActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph != nil
}

func (e *Engine) saveEQLocked() {
	if e.settings != nil {
		e.settings.SaveEQ(e.eq)
	}
}
