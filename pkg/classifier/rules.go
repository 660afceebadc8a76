package classifier

import (
	"context"
	"math"
)

// RuleTier is the deterministic last resort. It never needs I/O and always
// produces a result.
type RuleTier struct{}

func (RuleTier) Name() string { return TierRules }

func (RuleTier) Load(context.Context) (Predictor, error) {
	return ruleTable{}, nil
}

type ruleTable struct{}

func (ruleTable) Predict(p RatioPair) (Result, error) {
	return ClassifyWithRules(p), nil
}

// ClassifyWithRules applies the rule table. Rules overlap, so evaluation
// order is significant: the first matching predicate wins.
func ClassifyWithRules(p RatioPair) Result {
	r1, r2 := p.WaistToShoulder, p.HipToShoulder

	switch {
	case r1 < 0.75 && math.Abs(r2-1.0) < 0.1:
		// small waist, hips in line with shoulders
		return Result{BodyType: Hourglass, Confidence: 0.8, Tier: TierRules}
	case r2 > 1.1:
		return Result{BodyType: Pear, Confidence: 0.75, Tier: TierRules}
	case r1 > 0.85 && r2 < 0.95:
		return Result{BodyType: Apple, Confidence: 0.7, Tier: TierRules}
	case r2 < 0.85:
		return Result{BodyType: InvertedTriangle, Confidence: 0.75, Tier: TierRules}
	default:
		return Result{BodyType: Rectangle, Confidence: 0.7, Tier: TierRules}
	}
}
