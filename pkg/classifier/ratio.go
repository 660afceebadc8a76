package classifier

import "math"

// Feature bounds. Ratios outside these ranges come from bad landmarks, not
// from real bodies, so they are clamped before any tier sees them.
const (
	MinWaistToShoulder = 0.6
	MaxWaistToShoulder = 1.0
	MinHipToShoulder   = 0.7
	MaxHipToShoulder   = 1.3
)

// RatioPair holds the two features every tier consumes
type RatioPair struct {
	WaistToShoulder float64 `json:"r1"`
	HipToShoulder   float64 `json:"r2"`
}

// NewRatioPair builds a clamped pair
func NewRatioPair(r1, r2 float64) RatioPair {
	return RatioPair{
		WaistToShoulder: clamp(r1, MinWaistToShoulder, MaxWaistToShoulder),
		HipToShoulder:   clamp(r2, MinHipToShoulder, MaxHipToShoulder),
	}
}

// Features returns the pair in model feature order
func (p RatioPair) Features() []float64 {
	return []float64{p.WaistToShoulder, p.HipToShoulder}
}

// clamp bounds v to [lo,hi]; NaN maps to lo
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
