package types

// Landmark is a named body point as reported by the vision model.
// Coordinates are normalized to the [0,1] range.
type Landmark struct {
	Name       string  `json:"name"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Visibility float64 `json:"visibility"`
}

// LandmarkResult contains the parsed landmark response from the vision model
type LandmarkResult struct {
	Landmarks   []Landmark `json:"landmarks"`
	Description string     `json:"description"`
}

// Keypoint is a landmark projected into pixel space
type Keypoint struct {
	Name       string  `json:"name"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// ModelImageOptions controls how an image is encoded before it is sent to a vision model
type ModelImageOptions struct {
	Format  string
	MaxDim  int
	Quality int
}
