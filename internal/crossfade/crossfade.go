// Package crossfade ramps volume between the outgoing and incoming source
// near the end of a track.
package crossfade

import "time"

// Steps is the number of volume updates in one ramp.
const Steps = 20

// Phase is the fader state.
type Phase int

const (
	Idle Phase = iota
	Scheduled
	Ramping
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "Idle"
	case Scheduled:
		return "Scheduled"
	case Ramping:
		return "Ramping"
	default:
		return "Unknown"
	}
}

// Volumer is anything whose volume the fader drives.
type Volumer interface {
	SetVolume(level float64)
}

// Secondary is the incoming source. The fader closes it when the ramp ends.
type Secondary interface {
	Volumer
	Close() error
}

// Conditions are the inputs of the entry guard.
type Conditions struct {
	Smart       bool
	Repeat      bool
	HasNext     bool
	Crossfading bool
	Duration    time.Duration
	Position    time.Duration
	Window      time.Duration
}

// Eligible reports whether a crossfade may start now.
func Eligible(c Conditions) bool {
	if !c.Smart || c.Repeat || !c.HasNext || c.Crossfading {
		return false
	}
	if c.Duration <= 0 || c.Window <= 0 {
		return false
	}
	return c.Duration-c.Position <= c.Window
}

// Ticker delivers ramp steps. Stop must prevent further ticks.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates a ticker with the given interval.
type TickerFunc func(d time.Duration) Ticker

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop() { t.t.Stop() }

// NewTimeTicker is the production TickerFunc.
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// Fader is the crossfade state machine.
//
// Fader is not safe for concurrent use: its owner serializes Begin, Advance,
// Finish, Cancel and SetNominal under its own lock. Ticks reach the owner
// through the step callback, which carries a run token so ticks from a
// cancelled ramp are ignored.
type Fader struct {
	newTicker TickerFunc
	onStep    func(run uint64)

	phase     Phase
	step      int
	start     float64
	nominal   float64
	primary   Volumer
	secondary Secondary
	run       uint64
	stop      chan struct{}
}

// New creates an idle fader. onStep is called from the ticker goroutine with
// the run token of the ramp that ticked.
func New(newTicker TickerFunc, onStep func(run uint64)) *Fader {
	if newTicker == nil {
		newTicker = NewTimeTicker
	}
	return &Fader{newTicker: newTicker, onStep: onStep, nominal: 1}
}

// Phase returns the current phase.
func (f *Fader) Phase() Phase { return f.phase }

// Active reports whether a ramp is scheduled or running.
func (f *Fader) Active() bool { return f.phase != Idle }

// Step returns the last applied step.
func (f *Fader) Step() int { return f.step }

// Nominal returns the user volume.
func (f *Fader) Nominal() float64 { return f.nominal }

// SetPrimary changes the source that user volume writes through to.
func (f *Fader) SetPrimary(p Volumer) { f.primary = p }

// SetNominal records the user volume. It reaches the primary immediately
// only when idle; during a ramp it is applied at completion and the ramp
// keeps the level it started from.
func (f *Fader) SetNominal(v float64) {
	f.nominal = v
	if f.phase == Idle && f.primary != nil {
		f.primary.SetVolume(v)
	}
}

// Begin schedules a ramp from primary to secondary over d. secondary may be
// nil, in which case only the primary fades. Begin does nothing unless idle.
func (f *Fader) Begin(primary Volumer, secondary Secondary, volume float64, d time.Duration) bool {
	if f.phase != Idle {
		return false
	}
	f.primary = primary
	f.secondary = secondary
	f.start = volume
	f.nominal = volume
	f.step = 0
	f.phase = Scheduled
	f.run++
	f.stop = make(chan struct{})

	if f.secondary != nil {
		f.secondary.SetVolume(0)
	}

	interval := max(d/Steps, time.Millisecond)
	t := f.newTicker(interval)
	run, stop := f.run, f.stop
	go func() {
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C():
				if f.onStep != nil {
					f.onStep(run)
				}
			}
		}
	}()
	return true
}

// Advance applies one ramp step for run and reports whether the ramp is
// complete. Stale runs are ignored.
func (f *Fader) Advance(run uint64) (done bool) {
	if f.phase == Idle || run != f.run {
		return false
	}
	f.phase = Ramping
	f.step++
	k := float64(f.step) / Steps
	if f.primary != nil {
		f.primary.SetVolume(f.start * (1 - k))
	}
	if f.secondary != nil {
		f.secondary.SetVolume(f.start * k)
	}
	return f.step >= Steps
}

// Secondary returns the incoming source of the active ramp.
func (f *Fader) Secondary() Secondary { return f.secondary }

// Finish completes a ramp: the ticker stops, the primary gets the nominal
// volume back and the secondary is closed.
func (f *Fader) Finish() {
	f.reset()
}

// Cancel aborts a ramp with the same cleanup as Finish.
func (f *Fader) Cancel() {
	f.reset()
}

func (f *Fader) reset() {
	if f.phase == Idle {
		return
	}
	close(f.stop)
	f.run++
	if f.secondary != nil {
		_ = f.secondary.Close()
		f.secondary = nil
	}
	if f.primary != nil {
		f.primary.SetVolume(f.nominal)
	}
	f.phase = Idle
	f.step = 0
}
