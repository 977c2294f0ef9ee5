package state

import "github.com/llehouerou/ripple/internal/dsp"

// Interface defines the state manager contract for dependency injection and testing.
type Interface interface {
	LastPlayedID() (float64, bool, error)
	SaveLastPlayedID(id float64) error
	EQ() (*dsp.EQ, error)
	SaveEQ(eq dsp.EQ)
	Close() error
}

// Verify Manager implements Interface at compile time.
var _ Interface = (*Manager)(nil)
