package player

import "math"

// clampLevel keeps a volume level within [0, 1].
func clampLevel(level float64) float64 {
	return max(0, min(1, level))
}

// levelToVolume converts a 0.0-1.0 level to beep's Volume value.
// beep's effects.Volume with Base 2 treats Volume as a power of two:
// 1.0 -> 0, 0.5 -> -1, 0.25 -> -2, 0 -> -10 (and Silent).
func levelToVolume(level float64) float64 {
	if level <= 0 {
		return -10
	}
	if level >= 1 {
		return 0
	}
	return math.Log2(level)
}
