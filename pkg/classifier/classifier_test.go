package classifier

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingSource records how often each asset is fetched
type countingSource struct {
	inner AssetSource
	calls atomic.Int32
}

func (s *countingSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	s.calls.Add(1)
	return s.inner.Fetch(ctx, name)
}

func rulesOnly() *Classifier {
	return New(nil)
}

func writeAsset(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, data, 0o644))
}

func TestRuleTable(t *testing.T) {
	tests := []struct {
		name       string
		r1, r2     float64
		want       BodyType
		confidence float64
	}{
		{"hourglass", 0.7, 1.0, Hourglass, 0.8},
		{"pear before rectangle", 0.6, 1.2, Pear, 0.75},
		{"apple", 0.9, 0.9, Apple, 0.7},
		{"inverted triangle after apple and hourglass fail", 0.8, 0.8, InvertedTriangle, 0.75},
		{"rectangle when nothing matches", 0.8, 1.0, Rectangle, 0.7},
		{"pear wins over apple near both boundaries", 0.9, 1.15, Pear, 0.75},
	}

	c := rulesOnly()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(context.Background(), tt.r1, tt.r2)
			assert.Equal(t, tt.want, got.BodyType)
			assert.Equal(t, tt.confidence, got.Confidence)
			assert.Equal(t, TierRules, got.Tier)
		})
	}
}

func TestClampingMatchesBounds(t *testing.T) {
	c := rulesOnly()
	ctx := context.Background()

	assert.Equal(t, c.Classify(ctx, 0.6, 1.3), c.Classify(ctx, -5, 50))
	assert.Equal(t, RatioPair{WaistToShoulder: 0.6, HipToShoulder: 1.3}, NewRatioPair(-5, 50))
	assert.Equal(t, RatioPair{WaistToShoulder: 1.0, HipToShoulder: 0.7}, NewRatioPair(3, -1))
}

func TestClassifyNeverFails(t *testing.T) {
	c := New(DefaultTiers(NewDirSource(t.TempDir()), DefaultAssets()))
	inputs := []float64{-1e9, -1, 0, 0.5, 0.75, 1, 1.1, 2, 1e9, math.Inf(1), math.Inf(-1), math.NaN()}

	for _, r1 := range inputs {
		for _, r2 := range inputs {
			res := c.Classify(context.Background(), r1, r2)
			assert.Contains(t, BodyTypes(), res.BodyType)
			assert.GreaterOrEqual(t, res.Confidence, 0.0)
			assert.LessOrEqual(t, res.Confidence, 1.0)
		}
	}
}

func TestLinearSoftmaxSymmetry(t *testing.T) {
	m := &LinearModel{
		Labels:       []string{"hourglass", "pear"},
		Coefficients: [][]float64{{1, 0}, {0, 1}},
		Intercept:    []float64{0, 0},
	}
	require.NoError(t, m.Validate())

	res, err := m.Predict(RatioPair{WaistToShoulder: 1, HipToShoulder: 0})
	require.NoError(t, err)
	assert.Equal(t, Hourglass, res.BodyType)
	assert.Greater(t, res.Confidence, 0.5)
	assert.Equal(t, TierLinear, res.Tier)

	probs := m.Probabilities(RatioPair{WaistToShoulder: 1, HipToShoulder: 0})
	assert.InDelta(t, 1.0, probs[0]+probs[1], 1e-12)
	assert.InDelta(t, 1/(1+math.Exp(-1)), probs[0], 1e-12)
}

func TestLinearModelValidate(t *testing.T) {
	tests := []struct {
		name  string
		model LinearModel
	}{
		{"no labels", LinearModel{}},
		{"row count", LinearModel{Labels: []string{"pear"}, Intercept: []float64{0}}},
		{"intercept count", LinearModel{Labels: []string{"pear"}, Coefficients: [][]float64{{1, 1}}}},
		{"column count", LinearModel{Labels: []string{"pear"}, Coefficients: [][]float64{{1, 1, 1}}, Intercept: []float64{0}}},
		{"unknown label", LinearModel{Labels: []string{"banana"}, Coefficients: [][]float64{{1, 1}}, Intercept: []float64{0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.model.Validate())
		})
	}
}

func TestLinearTierFromDirectory(t *testing.T) {
	dir := t.TempDir()
	writeAsset(t, dir, DefaultCoefficientsAsset, []byte(`{
		"model_type": "logistic_regression",
		"labels": ["hourglass", "pear"],
		"coefficients": [[1, 0], [0, 1]],
		"intercept": [0, 0],
		"feature_names": ["r1_waist_shoulder", "r2_hip_shoulder"],
		"accuracy": 0.91
	}`))

	src := &countingSource{inner: NewDirSource(dir)}
	c := New(DefaultTiers(src, DefaultAssets()))

	// r2 is clamped to 0.7, so class 0 scores 1.0 against 0.7
	res := c.Classify(context.Background(), 1, 0)
	assert.Equal(t, Hourglass, res.BodyType)
	assert.Greater(t, res.Confidence, 0.5)
	assert.Equal(t, TierLinear, res.Tier)
	assert.Equal(t, []string{TierLinear}, c.Loaded())

	// neural fetch (fails) + coefficients fetch
	require.Equal(t, int32(2), src.calls.Load())
	c.Classify(context.Background(), 0.8, 1.0)
	// Only the missing neural model is fetched again
	assert.Equal(t, int32(3), src.calls.Load())
}

func TestMalformedCoefficientsFallThrough(t *testing.T) {
	dir := t.TempDir()
	writeAsset(t, dir, DefaultCoefficientsAsset, []byte(`{"labels": ["pear"], "coefficients": [[1]], "intercept": [0]}`))

	c := New(DefaultTiers(NewDirSource(dir), DefaultAssets()))
	res := c.Classify(context.Background(), 0.7, 1.0)

	assert.Equal(t, Result{BodyType: Hourglass, Confidence: 0.8, Tier: TierRules}, res)
}

type failingPredictor struct{}

func (failingPredictor) Predict(RatioPair) (Result, error) {
	return Result{}, errors.New("shape mismatch")
}

type staticTier struct {
	name  string
	model Predictor
	err   error
}

func (s staticTier) Name() string { return s.name }

func (s staticTier) Load(context.Context) (Predictor, error) { return s.model, s.err }

type panickingPredictor struct{}

func (panickingPredictor) Predict(RatioPair) (Result, error) { panic("index out of range") }

func TestInferenceErrorsFallThrough(t *testing.T) {
	c := New([]Tier{
		staticTier{name: "broken", model: failingPredictor{}},
		staticTier{name: "panicky", model: panickingPredictor{}},
		staticTier{name: "missing", err: errors.New("not found")},
	})

	res := c.Classify(context.Background(), 0.9, 0.9)
	assert.Equal(t, Apple, res.BodyType)
	assert.Equal(t, TierRules, res.Tier)
	assert.Equal(t, []string{"broken", "panicky", "missing", TierRules}, c.Tiers())
}

func TestRuleTierNotDuplicated(t *testing.T) {
	c := New([]Tier{RuleTier{}})
	assert.Equal(t, []string{TierRules}, c.Tiers())
}

func TestHTTPSourceRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/model/coefficients.json", r.URL.Path)
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"labels":["apple","pear"],"coefficients":[[0,0],[0,0]],"intercept":[1,0]}`))
	}))
	defer srv.Close()

	src, err := NewHTTPSource(srv.URL+"/model", WithRetries(2, time.Millisecond))
	require.NoError(t, err)

	c := New([]Tier{&LinearTier{Source: src}})
	res := c.Classify(context.Background(), 0.8, 1.0)

	assert.Equal(t, Apple, res.BodyType)
	assert.Equal(t, TierLinear, res.Tier)
	assert.Equal(t, int32(2), hits.Load())
}

func TestHTTPSourceDoesNotRetryNotFound(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	src, err := NewHTTPSource(srv.URL+"/model/", WithRetries(3, time.Millisecond))
	require.NoError(t, err)

	_, err = (&LinearTier{Source: src}).Load(context.Background())
	var loadErr *ModelLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, TierLinear, loadErr.Tier)
	assert.Contains(t, err.Error(), "HTTP 404")
	assert.Equal(t, int32(1), hits.Load())
}

func TestNewHTTPSourceRejectsScheme(t *testing.T) {
	_, err := NewHTTPSource("ftp://example.com/model")
	assert.Error(t, err)
}

func TestDirSourceStaysInRoot(t *testing.T) {
	dir := t.TempDir()
	writeAsset(t, dir, "a.json", []byte("{}"))

	src := NewDirSource(filepath.Join(dir, "sub"))
	_, err := src.Fetch(context.Background(), "../a.json")
	assert.Error(t, err)
}

func float32Bytes(values ...float32) []byte {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

const testModelJSON = `{
	"format": "layers-model",
	"generatedBy": "keras v2.15.0",
	"modelTopology": {
		"keras_version": "2.15.0",
		"backend": "tensorflow",
		"model_config": {
			"class_name": "Sequential",
			"config": {
				"name": "sequential",
				"layers": [
					{"class_name": "InputLayer", "config": {"batch_input_shape": [null, 2], "name": "input_1"}},
					{"class_name": "Dense", "config": {"name": "dense", "units": 3, "activation": "relu", "use_bias": true}},
					{"class_name": "Dropout", "config": {"name": "dropout", "rate": 0.2}},
					{"class_name": "Dense", "config": {"name": "dense_1", "units": 2, "activation": "softmax", "use_bias": true}}
				]
			}
		}
	},
	"weightsManifest": [{
		"paths": ["group1-shard1of2.bin", "group1-shard2of2.bin"],
		"weights": [
			{"name": "dense/kernel", "shape": [2, 3], "dtype": "float32"},
			{"name": "dense/bias", "shape": [3], "dtype": "float32"},
			{"name": "sequential/dense_1/kernel", "shape": [3, 2], "dtype": "float32"},
			{"name": "sequential/dense_1/bias", "shape": [2], "dtype": "float32"}
		]
	}]
}`

func writeNeuralModel(t *testing.T, dir string, labels string) {
	t.Helper()
	weights := float32Bytes(
		1, 0, -1, 0, 1, -1, // dense/kernel
		0, 0, 0, // dense/bias
		2, 0, 0, 2, 5, 5, // dense_1/kernel
		0, 0, // dense_1/bias
	)
	writeAsset(t, dir, DefaultNeuralModelAsset, []byte(testModelJSON))
	writeAsset(t, dir, "tfjs_model/group1-shard1of2.bin", weights[:20])
	writeAsset(t, dir, "tfjs_model/group1-shard2of2.bin", weights[20:])
	writeAsset(t, dir, DefaultNeuralMetadataAsset, []byte(labels))
}

func TestNeuralTier(t *testing.T) {
	dir := t.TempDir()
	writeNeuralModel(t, dir, `{"labels": ["hourglass", "pear"]}`)

	c := New(DefaultTiers(NewDirSource(dir), DefaultAssets()))

	// hidden = relu([0.7, 1.0, -1.7]) = [0.7, 1.0, 0]; logits = [1.4, 2.0]
	res := c.Classify(context.Background(), 0.7, 1.0)
	assert.Equal(t, Pear, res.BodyType)
	assert.Equal(t, TierNeural, res.Tier)
	assert.InDelta(t, 1/(1+math.Exp(-0.6)), res.Confidence, 1e-6)
	assert.Equal(t, []string{TierNeural}, c.Loaded())
}

func TestNeuralTierLabelMismatchFallsThrough(t *testing.T) {
	dir := t.TempDir()
	writeNeuralModel(t, dir, `{"labels": ["hourglass", "pear", "apple"]}`)

	_, err := (&NeuralTier{Source: NewDirSource(dir)}).Load(context.Background())
	var loadErr *ModelLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, TierNeural, loadErr.Tier)

	res := New(DefaultTiers(NewDirSource(dir), DefaultAssets())).Classify(context.Background(), 0.7, 1.0)
	assert.Equal(t, TierRules, res.Tier)
}

func TestNeuralTierTruncatedWeights(t *testing.T) {
	dir := t.TempDir()
	writeNeuralModel(t, dir, `{"labels": ["hourglass", "pear"]}`)
	writeAsset(t, dir, "tfjs_model/group1-shard2of2.bin", []byte{0, 0})

	_, err := (&NeuralTier{Source: NewDirSource(dir)}).Load(context.Background())
	assert.ErrorContains(t, err, "shards hold")
}

type panickingTier struct{}

func (panickingTier) Name() string { return "exploding" }

func (panickingTier) Load(context.Context) (Predictor, error) { panic("makeslice: len out of range") }

func TestWarmSurvivesMalformedNeuralModel(t *testing.T) {
	dir := t.TempDir()
	writeNeuralModel(t, dir, `{"labels": ["hourglass", "pear"]}`)
	broken := strings.Replace(testModelJSON, `"units": 3`, `"units": -3`, 1)
	broken = strings.Replace(broken, `"shape": [2, 3]`, `"shape": [-2, -3]`, 1)
	writeAsset(t, dir, DefaultNeuralModelAsset, []byte(broken))

	c := New(DefaultTiers(NewDirSource(dir), DefaultAssets()))
	assert.NotPanics(t, func() { c.Warm(context.Background()) })
	assert.NotContains(t, c.Loaded(), TierNeural)

	res := c.Classify(context.Background(), 0.7, 1.0)
	assert.Equal(t, TierRules, res.Tier)
	assert.Equal(t, Hourglass, res.BodyType)
}

func TestWarmRecoversPanickingTier(t *testing.T) {
	c := New([]Tier{panickingTier{}})
	assert.NotPanics(t, func() { c.Warm(context.Background()) })
	assert.Equal(t, []string{TierRules}, c.Loaded())

	res := c.Classify(context.Background(), 0.9, 0.9)
	assert.Equal(t, TierRules, res.Tier)
}

func TestNeuralTierRejectsNonPositiveSizes(t *testing.T) {
	cases := map[string][2]string{
		"units": {`"units": 3`, `"units": -3`},
		"shape": {`"shape": [3, 2]`, `"shape": [-3, -2]`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			writeNeuralModel(t, dir, `{"labels": ["hourglass", "pear"]}`)
			writeAsset(t, dir, DefaultNeuralModelAsset, []byte(strings.Replace(testModelJSON, tc[0], tc[1], 1)))

			_, err := (&NeuralTier{Source: NewDirSource(dir)}).Load(context.Background())
			var loadErr *ModelLoadError
			require.ErrorAs(t, err, &loadErr)
			assert.Equal(t, TierNeural, loadErr.Tier)
		})
	}
}

func TestNeuralPredictRejectsNonProbabilities(t *testing.T) {
	m := &NeuralModel{
		Layers: []DenseLayer{{
			Name: "out", Units: 2, Activation: "linear",
			Kernel: [][]float64{{10, 0}, {0, 10}},
		}},
		Labels: []string{"apple", "pear"},
	}
	require.NoError(t, m.Validate())

	_, err := m.Predict(NewRatioPair(0.8, 1.0))
	assert.Error(t, err)
}

func TestParseBodyType(t *testing.T) {
	for _, s := range []string{"inverted_triangle", "Inverted Triangle", "inverted-triangle", "INVERTEDTRIANGLE"} {
		bt, err := ParseBodyType(s)
		require.NoError(t, err, s)
		assert.Equal(t, InvertedTriangle, bt)
	}

	_, err := ParseBodyType("banana")
	assert.ErrorIs(t, err, ErrUnknownBodyType)
}

func TestDescriptionAndTips(t *testing.T) {
	assert.Equal(t, "Hips are wider than shoulders, with a smaller upper body", Description("pear"))
	assert.Equal(t, "Unknown body type", Description("banana"))
	assert.Len(t, StyleTips("rectangle"), 4)
	assert.Equal(t, []string{"Consult with a stylist for personalized advice"}, StyleTips(""))

	tips := StyleTips("apple")
	tips[0] = "changed"
	assert.NotEqual(t, "changed", StyleTips("apple")[0])
}
