package pose

import (
	"errors"

	"github.com/menta2k/body-analyzer/pkg/types"
)

// Landmark names used by the analyzer
const (
	LeftShoulder  = "left_shoulder"
	RightShoulder = "right_shoulder"
	LeftWaist     = "left_waist"
	RightWaist    = "right_waist"
	LeftHip       = "left_hip"
	RightHip      = "right_hip"
)

// RequiredLandmarks must all be present for metrics to be computed
var RequiredLandmarks = []string{LeftShoulder, RightShoulder, LeftHip, RightHip}

// ErrLandmarksNotFound is returned when a required landmark is missing or
// not visible enough.
var ErrLandmarksNotFound = errors.New("required body keypoints not detected")

// Find returns the first keypoint with the given name
func Find(keypoints []types.Keypoint, name string) (types.Keypoint, bool) {
	for _, kp := range keypoints {
		if kp.Name == name {
			return kp, true
		}
	}
	return types.Keypoint{}, false
}

// HasRequired reports whether every required landmark is present with at
// least minVisibility.
func HasRequired(keypoints []types.Keypoint, minVisibility float64) bool {
	for _, name := range RequiredLandmarks {
		kp, ok := Find(keypoints, name)
		if !ok || kp.Visibility < minVisibility {
			return false
		}
	}
	return true
}

// Fallback estimates landmarks for a front-facing person centred in the
// frame. It is a rough guess used when the vision model finds nothing.
func Fallback(width, height int) []types.Keypoint {
	w, h := float64(width), float64(height)
	centerX := w / 2
	shoulderY := h * 0.25
	hipY := h * 0.6
	shoulderWidth := w * 0.25
	hipWidth := w * 0.22

	return []types.Keypoint{
		{Name: LeftShoulder, X: centerX - shoulderWidth/2, Y: shoulderY, Visibility: 0.9},
		{Name: RightShoulder, X: centerX + shoulderWidth/2, Y: shoulderY, Visibility: 0.9},
		{Name: LeftHip, X: centerX - hipWidth/2, Y: hipY, Visibility: 0.9},
		{Name: RightHip, X: centerX + hipWidth/2, Y: hipY, Visibility: 0.9},
	}
}
