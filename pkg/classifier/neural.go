package classifier

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path"
	"strings"
)

// Default asset names of the TF.js layers model
const (
	DefaultNeuralModelAsset    = "tfjs_model/model.json"
	DefaultNeuralMetadataAsset = "tfjs_metadata.json"
)

// DenseLayer is a fully connected layer: out = act(in·Kernel + Bias)
type DenseLayer struct {
	Name       string
	Units      int
	Activation string
	Kernel     [][]float64 // [in][out]
	Bias       []float64   // [out], nil when the layer has no bias
}

// NeuralModel is a feed-forward stack of dense layers
type NeuralModel struct {
	Layers []DenseLayer
	Labels []string

	bodyTypes []BodyType
}

// Validate checks the layer chain is shape-consistent, starts at the two
// ratio features and ends with one output per label.
func (m *NeuralModel) Validate() error {
	if len(m.Layers) == 0 {
		return errors.New("model has no dense layers")
	}
	if len(m.Labels) == 0 {
		return errors.New("model metadata has no labels")
	}

	width := numFeatures
	for i, l := range m.Layers {
		if len(l.Kernel) != width {
			return fmt.Errorf("layer %d (%s): kernel has %d input rows, want %d", i, l.Name, len(l.Kernel), width)
		}
		for r, row := range l.Kernel {
			if len(row) != l.Units {
				return fmt.Errorf("layer %d (%s): kernel row %d has %d columns, want %d", i, l.Name, r, len(row), l.Units)
			}
		}
		if l.Bias != nil && len(l.Bias) != l.Units {
			return fmt.Errorf("layer %d (%s): bias has %d values, want %d", i, l.Name, len(l.Bias), l.Units)
		}
		if _, ok := activations[l.Activation]; !ok {
			return fmt.Errorf("layer %d (%s): unsupported activation %q", i, l.Name, l.Activation)
		}
		width = l.Units
	}
	if width != len(m.Labels) {
		return fmt.Errorf("model outputs %d values for %d labels", width, len(m.Labels))
	}

	bodyTypes := make([]BodyType, len(m.Labels))
	for i, label := range m.Labels {
		bt, err := ParseBodyType(label)
		if err != nil {
			return fmt.Errorf("metadata label %d: %w", i, err)
		}
		bodyTypes[i] = bt
	}
	m.bodyTypes = bodyTypes
	return nil
}

// Forward runs the network on one input row
func (m *NeuralModel) Forward(input []float64) ([]float64, error) {
	x := input
	for i, l := range m.Layers {
		if len(x) != len(l.Kernel) {
			return nil, fmt.Errorf("layer %d (%s): input width %d, want %d", i, l.Name, len(x), len(l.Kernel))
		}
		out := make([]float64, l.Units)
		if l.Bias != nil {
			copy(out, l.Bias)
		}
		for in, v := range x {
			row := l.Kernel[in]
			for o := range out {
				out[o] += v * row[o]
			}
		}
		activations[l.Activation](out)
		x = out
	}
	return x, nil
}

// Predict implements Predictor. The output layer is expected to be
// normalized already (softmax), so values are used as confidences as-is.
func (m *NeuralModel) Predict(p RatioPair) (Result, error) {
	if m.bodyTypes == nil {
		if err := m.Validate(); err != nil {
			return Result{}, err
		}
	}

	probs, err := m.Forward(p.Features())
	if err != nil {
		return Result{}, err
	}
	if len(probs) != len(m.bodyTypes) {
		return Result{}, fmt.Errorf("model returned %d values for %d labels", len(probs), len(m.bodyTypes))
	}

	idx := argmax(probs)
	conf := probs[idx]
	if math.IsNaN(conf) || conf < 0 || conf > 1 {
		return Result{}, fmt.Errorf("model output %v is not a probability", conf)
	}

	return Result{
		BodyType:   m.bodyTypes[idx],
		Confidence: conf,
		Tier:       TierNeural,
	}, nil
}

var activations = map[string]func([]float64){
	"":       func([]float64) {},
	"linear": func([]float64) {},
	"relu": func(v []float64) {
		for i := range v {
			if v[i] < 0 {
				v[i] = 0
			}
		}
	},
	"sigmoid": func(v []float64) {
		for i := range v {
			v[i] = 1 / (1 + math.Exp(-v[i]))
		}
	},
	"tanh": func(v []float64) {
		for i := range v {
			v[i] = math.Tanh(v[i])
		}
	},
	"softmax": func(v []float64) {
		copy(v, softmax(v))
	},
}

// NeuralTier loads a TF.js layers model plus its label metadata
type NeuralTier struct {
	Source        AssetSource
	ModelAsset    string
	MetadataAsset string
}

func (t *NeuralTier) Name() string { return TierNeural }

func (t *NeuralTier) Load(ctx context.Context) (Predictor, error) {
	modelAsset := t.ModelAsset
	if modelAsset == "" {
		modelAsset = DefaultNeuralModelAsset
	}
	metadataAsset := t.MetadataAsset
	if metadataAsset == "" {
		metadataAsset = DefaultNeuralMetadataAsset
	}

	loadErr := func(asset string, err error) error {
		return &ModelLoadError{Tier: TierNeural, Asset: asset, Err: err}
	}

	raw, err := t.Source.Fetch(ctx, modelAsset)
	if err != nil {
		return nil, loadErr(modelAsset, err)
	}
	var doc tfjsModel
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, loadErr(modelAsset, fmt.Errorf("failed to parse model: %w", err))
	}

	specs, err := doc.denseLayers()
	if err != nil {
		return nil, loadErr(modelAsset, err)
	}

	weights, err := t.loadWeights(ctx, path.Dir(modelAsset), doc.WeightsManifest)
	if err != nil {
		return nil, loadErr(modelAsset, err)
	}

	layers, err := bindWeights(specs, weights)
	if err != nil {
		return nil, loadErr(modelAsset, err)
	}

	metaRaw, err := t.Source.Fetch(ctx, metadataAsset)
	if err != nil {
		return nil, loadErr(metadataAsset, err)
	}
	var meta struct {
		Labels []string `json:"labels"`
	}
	if err := json.Unmarshal(metaRaw, &meta); err != nil {
		return nil, loadErr(metadataAsset, fmt.Errorf("failed to parse metadata: %w", err))
	}

	m := &NeuralModel{Layers: layers, Labels: meta.Labels}
	if err := m.Validate(); err != nil {
		return nil, loadErr(modelAsset, err)
	}
	return m, nil
}

// tfjsModel is the subset of the TF.js layers-model format we understand
type tfjsModel struct {
	Format          string          `json:"format"`
	ModelTopology   json.RawMessage `json:"modelTopology"`
	WeightsManifest []weightsGroup  `json:"weightsManifest"`
}

type weightsGroup struct {
	Paths   []string     `json:"paths"`
	Weights []weightSpec `json:"weights"`
}

type weightSpec struct {
	Name  string `json:"name"`
	Shape []int  `json:"shape"`
	Dtype string `json:"dtype"`
}

type kerasNode struct {
	ClassName string          `json:"class_name"`
	Config    json.RawMessage `json:"config"`
}

type layerConfig struct {
	Name       string `json:"name"`
	Units      int    `json:"units"`
	Activation string `json:"activation"`
	UseBias    *bool  `json:"use_bias"`
}

type denseSpec struct {
	name       string
	units      int
	activation string
	useBias    bool
}

// denseLayers walks the Keras topology in declaration order. Only
// sequential stacks are supported; Dropout and InputLayer are no-ops at
// inference and an Activation layer rewrites the previous dense activation.
func (d *tfjsModel) denseLayers() ([]denseSpec, error) {
	if len(d.ModelTopology) == 0 {
		return nil, errors.New("model.json has no modelTopology")
	}

	// Keras exports wrap the model in "model_config"; tfjs exports do not.
	var wrapper struct {
		ModelConfig *kerasNode `json:"model_config"`
	}
	var root kerasNode
	if err := json.Unmarshal(d.ModelTopology, &wrapper); err == nil && wrapper.ModelConfig != nil {
		root = *wrapper.ModelConfig
	} else if err := json.Unmarshal(d.ModelTopology, &root); err != nil {
		return nil, fmt.Errorf("invalid modelTopology: %w", err)
	}

	var layers []kerasNode
	var cfg struct {
		Layers []kerasNode `json:"layers"`
	}
	if err := json.Unmarshal(root.Config, &cfg); err == nil && cfg.Layers != nil {
		layers = cfg.Layers
	} else if err := json.Unmarshal(root.Config, &layers); err != nil {
		return nil, fmt.Errorf("unsupported %s topology: %w", root.ClassName, err)
	}

	var specs []denseSpec
	for _, node := range layers {
		var lc layerConfig
		if err := json.Unmarshal(node.Config, &lc); err != nil {
			return nil, fmt.Errorf("layer %s: %w", node.ClassName, err)
		}
		switch node.ClassName {
		case "InputLayer", "Dropout":
		case "Dense":
			if lc.Units <= 0 {
				return nil, fmt.Errorf("dense layer %s: units must be positive, got %d", lc.Name, lc.Units)
			}
			useBias := lc.UseBias == nil || *lc.UseBias
			specs = append(specs, denseSpec{
				name:       lc.Name,
				units:      lc.Units,
				activation: strings.ToLower(lc.Activation),
				useBias:    useBias,
			})
		case "Activation":
			if len(specs) == 0 || (specs[len(specs)-1].activation != "" && specs[len(specs)-1].activation != "linear") {
				return nil, fmt.Errorf("activation layer %s must follow a linear dense layer", lc.Name)
			}
			specs[len(specs)-1].activation = strings.ToLower(lc.Activation)
		default:
			return nil, fmt.Errorf("unsupported layer type %s", node.ClassName)
		}
	}
	if len(specs) == 0 {
		return nil, errors.New("model has no dense layers")
	}
	return specs, nil
}

type tensor struct {
	shape  []int
	values []float64
}

// loadWeights reads every shard group and slices it into named tensors.
// Shards in a group are concatenated in order; weights follow each other
// without padding.
func (t *NeuralTier) loadWeights(ctx context.Context, dir string, manifest []weightsGroup) (map[string]tensor, error) {
	weights := make(map[string]tensor)
	for _, group := range manifest {
		var buf []byte
		for _, p := range group.Paths {
			shard, err := t.Source.Fetch(ctx, path.Join(dir, p))
			if err != nil {
				return nil, fmt.Errorf("weight shard %s: %w", p, err)
			}
			buf = append(buf, shard...)
		}

		offset := 0
		for _, w := range group.Weights {
			if w.Dtype != "" && w.Dtype != "float32" {
				return nil, fmt.Errorf("weight %s: unsupported dtype %s", w.Name, w.Dtype)
			}
			n := 1
			for _, dim := range w.Shape {
				if dim <= 0 {
					return nil, fmt.Errorf("weight %s: invalid shape %v", w.Name, w.Shape)
				}
				n *= dim
			}
			end := offset + 4*n
			if n < 0 || end > len(buf) {
				return nil, fmt.Errorf("weight %s: shards hold %d bytes, need %d", w.Name, len(buf), end)
			}
			values := make([]float64, n)
			for i := range values {
				bits := binary.LittleEndian.Uint32(buf[offset+4*i:])
				values[i] = float64(math.Float32frombits(bits))
			}
			weights[w.Name] = tensor{shape: w.Shape, values: values}
			offset = end
		}
	}
	return weights, nil
}

// bindWeights attaches "<layer>/kernel" and "<layer>/bias" tensors. Weight
// names may carry a model scope prefix such as "sequential/dense/kernel".
func bindWeights(specs []denseSpec, weights map[string]tensor) ([]DenseLayer, error) {
	find := func(name string) (tensor, bool) {
		if w, ok := weights[name]; ok {
			return w, true
		}
		for k, w := range weights {
			if strings.HasSuffix(k, "/"+name) {
				return w, true
			}
		}
		return tensor{}, false
	}

	layers := make([]DenseLayer, 0, len(specs))
	for _, s := range specs {
		k, ok := find(s.name + "/kernel")
		if !ok {
			return nil, fmt.Errorf("layer %s: kernel weights missing", s.name)
		}
		if len(k.shape) != 2 || k.shape[1] != s.units {
			return nil, fmt.Errorf("layer %s: kernel shape %v does not match %d units", s.name, k.shape, s.units)
		}

		kernel := make([][]float64, k.shape[0])
		for r := range kernel {
			kernel[r] = k.values[r*s.units : (r+1)*s.units]
		}

		layer := DenseLayer{
			Name:       s.name,
			Units:      s.units,
			Activation: s.activation,
			Kernel:     kernel,
		}
		if s.useBias {
			b, ok := find(s.name + "/bias")
			if !ok {
				return nil, fmt.Errorf("layer %s: bias weights missing", s.name)
			}
			if len(b.values) != s.units {
				return nil, fmt.Errorf("layer %s: bias has %d values, want %d", s.name, len(b.values), s.units)
			}
			layer.Bias = b.values
		}
		layers = append(layers, layer)
	}
	return layers, nil
}
