// Package classifier maps the two body proportion ratios onto a body type.
//
// Classification walks an ordered list of tiers: a neural network, a linear
// model and a rule table. The first tier whose model loads and predicts
// wins; the rule table needs no assets, so Classify always returns a result.
// Each tier's model is loaded at most once per Classifier and kept for its
// lifetime. Failed loads are not remembered, so a later call tries again.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Tier names
const (
	TierNeural = "neural"
	TierLinear = "linear"
	TierRules  = "rules"
)

// Result is a classification outcome
type Result struct {
	BodyType   BodyType `json:"bodyType"`
	Confidence float64  `json:"confidence"`
	Tier       string   `json:"tier"`
}

// Predictor is a loaded model
type Predictor interface {
	Predict(p RatioPair) (Result, error)
}

// Tier is one classification strategy in the fallback chain
type Tier interface {
	Name() string
	Load(ctx context.Context) (Predictor, error)
}

type tierSlot struct {
	tier Tier

	mu    sync.Mutex
	model Predictor
}

// load returns the cached model or loads it. The mutex keeps the cache
// single-writer when the classifier is shared between goroutines.
func (s *tierSlot) load(ctx context.Context) (Predictor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.model != nil {
		return s.model, nil
	}
	m, err := s.tier.Load(ctx)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, &ModelLoadError{Tier: s.tier.Name(), Err: fmt.Errorf("tier returned no model")}
	}
	s.model = m
	return m, nil
}

func (s *tierSlot) loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model != nil
}

// Classifier holds the tier chain and the models loaded so far
type Classifier struct {
	slots  []*tierSlot
	logger *zap.Logger
}

// Option customizes a Classifier
type Option func(*Classifier)

// WithLogger sets the logger used to report skipped tiers
func WithLogger(logger *zap.Logger) Option {
	return func(c *Classifier) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a classifier over tiers in priority order. A RuleTier is
// appended when the chain does not already end with one.
func New(tiers []Tier, opts ...Option) *Classifier {
	c := &Classifier{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}

	for _, t := range tiers {
		c.slots = append(c.slots, &tierSlot{tier: t})
	}
	if len(tiers) == 0 || tiers[len(tiers)-1].Name() != TierRules {
		c.slots = append(c.slots, &tierSlot{tier: RuleTier{}})
	}
	return c
}

// Assets names the model files inside an AssetSource
type Assets struct {
	Coefficients   string
	NeuralModel    string
	NeuralMetadata string
}

// DefaultAssets returns the standard asset layout
func DefaultAssets() Assets {
	return Assets{
		Coefficients:   DefaultCoefficientsAsset,
		NeuralModel:    DefaultNeuralModelAsset,
		NeuralMetadata: DefaultNeuralMetadataAsset,
	}
}

// DefaultTiers returns neural, linear and rule tiers reading from src
func DefaultTiers(src AssetSource, assets Assets) []Tier {
	return []Tier{
		&NeuralTier{Source: src, ModelAsset: assets.NeuralModel, MetadataAsset: assets.NeuralMetadata},
		&LinearTier{Source: src, Asset: assets.Coefficients},
		RuleTier{},
	}
}

// Classify clamps the ratios and returns the first tier's prediction.
// It never fails: tier errors are logged and the rule table terminates
// the chain.
func (c *Classifier) Classify(ctx context.Context, r1, r2 float64) Result {
	pair := NewRatioPair(r1, r2)
	c.logger.Debug("classifying body type",
		zap.Float64("r1", pair.WaistToShoulder),
		zap.Float64("r2", pair.HipToShoulder))

	for _, slot := range c.slots {
		name := slot.tier.Name()
		res, err := c.try(ctx, slot, pair)
		if err != nil {
			c.logger.Warn("classifier tier unavailable", zap.String("tier", name), zap.Error(err))
			continue
		}
		if name == TierRules {
			c.logger.Warn("using fallback rule-based classification")
		}
		c.logger.Info("body type predicted",
			zap.String("tier", res.Tier),
			zap.String("body_type", res.BodyType.String()),
			zap.Float64("confidence", res.Confidence))
		return res
	}

	// Only reachable when a custom chain ends with a failing rules tier
	return ClassifyWithRules(pair)
}

// ClassifyPair classifies an already built pair
func (c *Classifier) ClassifyPair(ctx context.Context, p RatioPair) Result {
	return c.Classify(ctx, p.WaistToShoulder, p.HipToShoulder)
}

// loadSafe loads a slot's model. Load errors and panics both come back as
// a ModelLoadError.
func (c *Classifier) loadSafe(ctx context.Context, slot *tierSlot) (model Predictor, err error) {
	name := slot.tier.Name()
	defer func() {
		if r := recover(); r != nil {
			model, err = nil, &ModelLoadError{Tier: name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	model, err = slot.load(ctx)
	if err != nil {
		var loadErr *ModelLoadError
		if !errors.As(err, &loadErr) {
			err = &ModelLoadError{Tier: name, Err: err}
		}
		return nil, err
	}
	return model, nil
}

func (c *Classifier) try(ctx context.Context, slot *tierSlot, pair RatioPair) (res Result, err error) {
	name := slot.tier.Name()
	model, err := c.loadSafe(ctx, slot)
	if err != nil {
		return Result{}, err
	}

	defer func() {
		if r := recover(); r != nil {
			res, err = Result{}, &InferenceError{Tier: name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	res, err = model.Predict(pair)
	if err != nil {
		return Result{}, &InferenceError{Tier: name, Err: err}
	}
	if res.Tier == "" {
		res.Tier = name
	}
	return res, nil
}

// Tiers returns the names of the tiers in evaluation order
func (c *Classifier) Tiers() []string {
	names := make([]string, len(c.slots))
	for i, s := range c.slots {
		names[i] = s.tier.Name()
	}
	return names
}

// Loaded returns the names of tiers whose models are cached
func (c *Classifier) Loaded() []string {
	var names []string
	for _, s := range c.slots {
		if s.loaded() {
			names = append(names, s.tier.Name())
		}
	}
	return names
}

// Warm loads every tier once so the first request does not pay for asset
// fetches. Load failures are logged and otherwise ignored.
func (c *Classifier) Warm(ctx context.Context) {
	for _, s := range c.slots {
		if _, err := c.loadSafe(ctx, s); err != nil {
			c.logger.Info("tier not available at startup", zap.String("tier", s.tier.Name()), zap.Error(err))
		}
	}
}
