package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// DefaultCoefficientsAsset is the asset name of the linear model
const DefaultCoefficientsAsset = "coefficients.json"

// numFeatures is the width of every model input: [r1, r2]
const numFeatures = 2

// LinearModel is a multinomial logistic regression exported by the
// training script.
type LinearModel struct {
	ModelType    string      `json:"model_type"`
	Labels       []string    `json:"labels"`
	Coefficients [][]float64 `json:"coefficients"`
	Intercept    []float64   `json:"intercept"`
	FeatureNames []string    `json:"feature_names"`
	Accuracy     float64     `json:"accuracy"`

	bodyTypes []BodyType
}

// ParseLinearModel decodes and validates coefficient data
func ParseLinearModel(data []byte) (*LinearModel, error) {
	var m LinearModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse coefficients: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks rows == len(intercept) == len(labels) and that each row
// has one coefficient per feature. It also resolves the labels.
func (m *LinearModel) Validate() error {
	n := len(m.Labels)
	if n == 0 {
		return errors.New("coefficients: no labels")
	}
	if len(m.Coefficients) != n {
		return fmt.Errorf("coefficients: %d rows for %d labels", len(m.Coefficients), n)
	}
	if len(m.Intercept) != n {
		return fmt.Errorf("coefficients: %d intercepts for %d labels", len(m.Intercept), n)
	}
	for i, row := range m.Coefficients {
		if len(row) != numFeatures {
			return fmt.Errorf("coefficients: row %d has %d columns, want %d", i, len(row), numFeatures)
		}
	}

	bodyTypes := make([]BodyType, n)
	for i, label := range m.Labels {
		bt, err := ParseBodyType(label)
		if err != nil {
			return fmt.Errorf("coefficients: label %d: %w", i, err)
		}
		bodyTypes[i] = bt
	}
	m.bodyTypes = bodyTypes
	return nil
}

// Probabilities returns softmax(intercept + coefficients·x) per class
func (m *LinearModel) Probabilities(p RatioPair) []float64 {
	features := p.Features()
	scores := make([]float64, len(m.Coefficients))
	for c, row := range m.Coefficients {
		score := m.Intercept[c]
		for f, coeff := range row {
			score += coeff * features[f]
		}
		scores[c] = score
	}
	return softmax(scores)
}

// Predict implements Predictor
func (m *LinearModel) Predict(p RatioPair) (Result, error) {
	if m.bodyTypes == nil {
		if err := m.Validate(); err != nil {
			return Result{}, err
		}
	}

	probs := m.Probabilities(p)
	idx := argmax(probs)
	if idx < 0 || math.IsNaN(probs[idx]) {
		return Result{}, errors.New("no finite class probability")
	}

	return Result{
		BodyType:   m.bodyTypes[idx],
		Confidence: probs[idx],
		Tier:       TierLinear,
	}, nil
}

// LinearTier loads coefficients from an asset source
type LinearTier struct {
	Source AssetSource
	Asset  string
}

func (t *LinearTier) Name() string { return TierLinear }

func (t *LinearTier) Load(ctx context.Context) (Predictor, error) {
	asset := t.Asset
	if asset == "" {
		asset = DefaultCoefficientsAsset
	}

	data, err := t.Source.Fetch(ctx, asset)
	if err != nil {
		return nil, &ModelLoadError{Tier: TierLinear, Asset: asset, Err: err}
	}

	m, err := ParseLinearModel(data)
	if err != nil {
		return nil, &ModelLoadError{Tier: TierLinear, Asset: asset, Err: err}
	}
	return m, nil
}

// softmax is the numerically stable form: exp(s - max) / Σ exp(s - max)
func softmax(scores []float64) []float64 {
	if len(scores) == 0 {
		return nil
	}
	maxScore := math.Inf(-1)
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}

	out := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		out[i] = math.Exp(s - maxScore)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// argmax returns the index of the first maximum, -1 for an empty slice
func argmax(values []float64) int {
	idx := -1
	for i, v := range values {
		if idx < 0 || v > values[idx] {
			idx = i
		}
	}
	return idx
}
