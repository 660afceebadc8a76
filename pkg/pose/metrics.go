package pose

import (
	"errors"
	"fmt"
	"math"

	"github.com/menta2k/body-analyzer/pkg/types"
)

// waistFactor approximates waist span from shoulder span when the model
// reports no waist landmarks.
const waistFactor = 0.8

// Metrics holds the body spans in pixels and the derived ratios
type Metrics struct {
	ShoulderSpan    float64 `json:"shoulderSpan"`
	WaistSpan       float64 `json:"waistSpan"`
	HipSpan         float64 `json:"hipSpan"`
	R1WaistShoulder float64 `json:"r1WaistShoulder"`
	R2HipShoulder   float64 `json:"r2HipShoulder"`
	WaistEstimated  bool    `json:"waistEstimated"`
}

// ComputeMetrics derives spans and ratios from keypoints. Ratios are not
// clamped here; the classifier does that.
func ComputeMetrics(keypoints []types.Keypoint) (Metrics, error) {
	span := func(left, right string) (float64, bool) {
		l, okL := Find(keypoints, left)
		r, okR := Find(keypoints, right)
		if !okL || !okR {
			return 0, false
		}
		return math.Abs(r.X - l.X), true
	}

	shoulder, okS := span(LeftShoulder, RightShoulder)
	hip, okH := span(LeftHip, RightHip)
	if !okS || !okH {
		return Metrics{}, ErrLandmarksNotFound
	}
	if shoulder == 0 {
		return Metrics{}, errors.New("shoulder span is zero")
	}

	m := Metrics{ShoulderSpan: shoulder, HipSpan: hip}
	if waist, ok := span(LeftWaist, RightWaist); ok && waist > 0 {
		m.WaistSpan = waist
	} else {
		m.WaistSpan = shoulder * waistFactor
		m.WaistEstimated = true
	}

	m.R1WaistShoulder = m.WaistSpan / shoulder
	m.R2HipShoulder = hip / shoulder
	return m, nil
}

func (m Metrics) String() string {
	return fmt.Sprintf("shoulder=%.1fpx waist=%.1fpx hip=%.1fpx r1=%.3f r2=%.3f",
		m.ShoulderSpan, m.WaistSpan, m.HipSpan, m.R1WaistShoulder, m.R2HipShoulder)
}
