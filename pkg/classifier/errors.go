package classifier

import (
	"errors"
	"fmt"
)

// ErrUnknownBodyType is returned when a label does not name a known body type
var ErrUnknownBodyType = errors.New("unknown body type")

// ModelLoadError reports a tier whose model asset is missing or malformed.
// The tier is skipped.
type ModelLoadError struct {
	Tier  string
	Asset string
	Err   error
}

func (e *ModelLoadError) Error() string {
	if e.Asset == "" {
		return fmt.Sprintf("%s tier: load failed: %v", e.Tier, e.Err)
	}
	return fmt.Sprintf("%s tier: load %s: %v", e.Tier, e.Asset, e.Err)
}

func (e *ModelLoadError) Unwrap() error { return e.Err }

// InferenceError reports a prediction that could not be produced from a
// loaded model, e.g. a shape mismatch. The tier is skipped.
type InferenceError struct {
	Tier string
	Err  error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("%s tier: inference failed: %v", e.Tier, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }
