// Package pose locates body landmarks in a photo and turns them into the
// shoulder, waist and hip measurements the classifier consumes.
package pose

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/menta2k/body-analyzer/pkg/cache"
	"github.com/menta2k/body-analyzer/pkg/client"
	"github.com/menta2k/body-analyzer/pkg/types"
)

// DefaultPrompt asks the vision model for the landmarks in RequiredLandmarks
// plus the optional waist points.
const DefaultPrompt = `You are a body landmark locator for a fashion fitting tool.

Return JSON only:
{
  "landmarks": [
    {"name": "left_shoulder", "x": 0.0, "y": 0.0, "visibility": 0.0},
    {"name": "right_shoulder", "x": 0.0, "y": 0.0, "visibility": 0.0},
    {"name": "left_waist", "x": 0.0, "y": 0.0, "visibility": 0.0},
    {"name": "right_waist", "x": 0.0, "y": 0.0, "visibility": 0.0},
    {"name": "left_hip", "x": 0.0, "y": 0.0, "visibility": 0.0},
    {"name": "right_hip", "x": 0.0, "y": 0.0, "visibility": 0.0}
  ],
  "description": "short neutral sentence (≤ 20 words)"
}

HARD RULES
- Coordinates are normalized to [0,1] (NOT pixels). x grows to the right, y grows downward.
- "left" and "right" are from the viewer's perspective.
- Waist points mark the narrowest part of the torso outline, hip points the widest part below it.
- visibility is your confidence in [0,1] that the point is actually visible.
- Omit a landmark you cannot see at all. Do not guess real identities.
- If no person is found, return {"landmarks": [], "description": "no person"}.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// DescribePrompt asks for a free-text description of the subject's outline
const DescribePrompt = `Describe the person in this photo for a dress fitting assistant.
Mention posture, how much of the body is visible and how the clothing sits on the shoulders, waist and hips.
Two or three neutral sentences. Do not guess identity, age or weight.`

// DefaultMinVisibility is the lowest visibility a required landmark may have
const DefaultMinVisibility = 0.5

// Detection is the result of a landmark query projected to pixels
type Detection struct {
	Keypoints   []types.Keypoint `json:"keypoints"`
	Description string           `json:"description"`
	Cached      bool             `json:"cached"`
}

// Detector queries a vision model for body landmarks
type Detector struct {
	client        client.VisionClient
	model         string
	prompt        string
	minVisibility float64
	store         cache.Store
	logger        *zap.Logger
}

// Option configures a Detector
type Option func(*Detector)

// WithPrompt overrides DefaultPrompt
func WithPrompt(prompt string) Option {
	return func(d *Detector) { d.prompt = prompt }
}

// WithMinVisibility sets the visibility threshold for required landmarks
func WithMinVisibility(v float64) Option {
	return func(d *Detector) { d.minVisibility = v }
}

// WithCache stores model responses keyed by model, prompt and image
func WithCache(store cache.Store) Option {
	return func(d *Detector) { d.store = store }
}

func WithLogger(logger *zap.Logger) Option {
	return func(d *Detector) { d.logger = logger }
}

// NewDetector creates a detector that asks model through c
func NewDetector(c client.VisionClient, model string, opts ...Option) *Detector {
	d := &Detector{
		client:        c,
		model:         model,
		prompt:        DefaultPrompt,
		minVisibility: DefaultMinVisibility,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Describe asks the model for a plain-text description of a base64 image.
// Responses are not cached.
func (d *Detector) Describe(ctx context.Context, imgB64 string) (string, error) {
	text, err := d.client.SimpleQuery(ctx, d.model, DescribePrompt, imgB64)
	if err != nil {
		return "", fmt.Errorf("describe query failed: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// Detect locates landmarks in a base64 image of width x height pixels.
// It returns ErrLandmarksNotFound when a required landmark is missing.
func (d *Detector) Detect(ctx context.Context, imgB64 string, width, height int) (*Detection, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", width, height)
	}

	result, cached, err := d.locate(ctx, imgB64)
	if err != nil {
		return nil, err
	}

	det := &Detection{
		Keypoints:   ToPixels(result.Landmarks, width, height),
		Description: result.Description,
		Cached:      cached,
	}
	if !HasRequired(det.Keypoints, d.minVisibility) {
		d.logger.Debug("landmarks incomplete",
			zap.Int("found", len(det.Keypoints)),
			zap.Float64("min_visibility", d.minVisibility))
		return det, ErrLandmarksNotFound
	}
	return det, nil
}

func (d *Detector) locate(ctx context.Context, imgB64 string) (*types.LandmarkResult, bool, error) {
	key := d.cacheKey(imgB64)
	if d.store != nil {
		if raw, ok := d.store.Get(ctx, key); ok {
			var res types.LandmarkResult
			if err := json.Unmarshal(raw, &res); err == nil {
				d.logger.Debug("landmark cache hit", zap.String("key", key[:12]))
				return &res, true, nil
			}
		}
	}

	res, err := d.client.LocateLandmarks(ctx, d.model, d.prompt, imgB64)
	if err != nil {
		return nil, false, fmt.Errorf("landmark query failed: %w", err)
	}

	if d.store != nil && len(res.Landmarks) > 0 {
		if raw, err := json.Marshal(res); err == nil {
			if err := d.store.Set(ctx, key, raw); err != nil {
				d.logger.Warn("failed to cache landmarks", zap.Error(err))
			}
		}
	}
	return res, false, nil
}

func (d *Detector) cacheKey(imgB64 string) string {
	h := sha256.New()
	h.Write([]byte(d.model))
	h.Write([]byte{0})
	h.Write([]byte(d.prompt))
	h.Write([]byte{0})
	h.Write([]byte(imgB64))
	return hex.EncodeToString(h.Sum(nil))
}

// ToPixels converts normalized landmarks to pixel keypoints. Coordinates
// outside [0,1] are clamped to the frame.
func ToPixels(landmarks []types.Landmark, width, height int) []types.Keypoint {
	out := make([]types.Keypoint, 0, len(landmarks))
	for _, lm := range landmarks {
		out = append(out, types.Keypoint{
			Name:       lm.Name,
			X:          clampUnit(lm.X) * float64(width),
			Y:          clampUnit(lm.Y) * float64(height),
			Visibility: clampUnit(lm.Visibility),
		})
	}
	return out
}

func clampUnit(v float64) float64 {
	if v < 0 || v != v {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
