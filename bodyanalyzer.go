// Package bodyanalyzer estimates a person's body type from a photo and
// suggests dress styles for it.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//
//		bodyanalyzer "github.com/menta2k/body-analyzer"
//		"github.com/menta2k/body-analyzer/pkg/classifier"
//		"github.com/menta2k/body-analyzer/pkg/ollama"
//		"github.com/menta2k/body-analyzer/pkg/pose"
//	)
//
//	func main() {
//		src := classifier.NewDirSource("./model")
//		cls := classifier.New(classifier.DefaultTiers(src, classifier.DefaultAssets()))
//		vision, err := ollama.NewClient("http://localhost:11434")
//		if err != nil {
//			log.Fatal(err)
//		}
//		det := pose.NewDetector(vision, "qwen2.5vl:7b")
//
//		a := bodyanalyzer.New(cls, det, bodyanalyzer.DefaultOptions())
//		res, err := a.AnalyzeFile(context.Background(), "photo.jpg")
//		if err != nil {
//			log.Fatal(err)
//		}
//		fmt.Printf("%s (%.0f%%, %s tier)\n", res.Classification.BodyType.Label(),
//			res.Classification.Confidence*100, res.Classification.Tier)
//	}
//
// The pipeline has four stages:
//
// 1. Pose (pkg/pose): asks a vision model for shoulder, waist and hip landmarks
// 2. Metrics (pkg/pose): turns landmarks into the waist/shoulder and hip/shoulder ratios
// 3. Classifier (pkg/classifier): neural, linear and rule tiers with fallback
// 4. Recommend (pkg/recommend): dress suggestions and styling advice
//
// When the vision model cannot find a person the analyzer can fall back to a
// fixed geometric estimate, so a result is still produced. Such results are
// marked with LandmarkSource "fallback" and should be treated as a guess.
package bodyanalyzer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/menta2k/body-analyzer/pkg/classifier"
	"github.com/menta2k/body-analyzer/pkg/pose"
	"github.com/menta2k/body-analyzer/pkg/processing"
	"github.com/menta2k/body-analyzer/pkg/recommend"
	"github.com/menta2k/body-analyzer/pkg/types"
)

// Version of the body analyzer library
const Version = "1.0.0"

// Landmark sources
const (
	SourceModel    = "model"
	SourceFallback = "fallback"
)

// Options configures an Analyzer
type Options struct {
	Image        types.ModelImageOptions
	Fallback     bool
	MinImageSize int
	Logger       *zap.Logger
}

// DefaultOptions returns options matching the default configuration
func DefaultOptions() Options {
	return Options{
		Image:        types.ModelImageOptions{Format: "jpg", MaxDim: 1024, Quality: 90},
		Fallback:     true,
		MinImageSize: processing.DefaultMinImageSize,
	}
}

// Analyzer runs the photo to recommendation pipeline
type Analyzer struct {
	processor  *processing.Processor
	detector   *pose.Detector
	classifier *classifier.Classifier
	opts       Options
	logger     *zap.Logger
}

// AnalysisResult contains everything derived from one photo
type AnalysisResult struct {
	ID                  string                          `json:"id"`
	Source              string                          `json:"source,omitempty"`
	CreatedAt           time.Time                       `json:"createdAt"`
	Width               int                             `json:"width"`
	Height              int                             `json:"height"`
	LandmarkSource      string                          `json:"landmarkSource"`
	Description         string                          `json:"description,omitempty"`
	Keypoints           []types.Keypoint                `json:"keypoints"`
	Metrics             pose.Metrics                    `json:"metrics"`
	Classification      classifier.Result               `json:"classification"`
	BodyTypeDescription string                          `json:"bodyTypeDescription"`
	StyleTips           []string                        `json:"styleTips"`
	Recommendations     []recommend.DressRecommendation `json:"recommendations"`
	Advice              recommend.StyleAdvice           `json:"advice"`
	Colors              recommend.ColorAdvice           `json:"colors"`
}

// New creates an Analyzer. detector may be nil, in which case every photo
// uses the fallback estimate and Options.Fallback must be set.
func New(c *classifier.Classifier, detector *pose.Detector, opts Options) *Analyzer {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.MinImageSize <= 0 {
		opts.MinImageSize = processing.DefaultMinImageSize
	}
	return &Analyzer{
		processor:  processing.NewProcessor().WithMinImageSize(opts.MinImageSize),
		detector:   detector,
		classifier: c,
		opts:       opts,
		logger:     opts.Logger,
	}
}

// Processor exposes the image processor used by the analyzer
func (a *Analyzer) Processor() *processing.Processor {
	return a.processor
}

// Classifier exposes the underlying classifier
func (a *Analyzer) Classifier() *classifier.Classifier {
	return a.classifier
}

// AnalyzeFile loads a photo from a path or URL and analyzes it
func (a *Analyzer) AnalyzeFile(ctx context.Context, source string) (*AnalysisResult, error) {
	img, err := a.processor.LoadImageSmart(source)
	if err != nil {
		return nil, fmt.Errorf("failed to load image: %w", err)
	}
	res, err := a.Analyze(ctx, img)
	if err != nil {
		return nil, err
	}
	res.Source = source
	return res, nil
}

// Describe loads a photo from a path or URL and asks the vision backend for
// a short description of it.
func (a *Analyzer) Describe(ctx context.Context, source string) (string, error) {
	if a.detector == nil {
		return "", errNoDetector
	}
	img, err := a.processor.LoadImageSmart(source)
	if err != nil {
		return "", fmt.Errorf("failed to load image: %w", err)
	}
	if err := a.processor.ValidateImage(img); err != nil {
		return "", err
	}
	b64, _, err := a.processor.PrepareImageForModel(img, a.opts.Image)
	if err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	return a.detector.Describe(ctx, b64)
}

// Analyze locates landmarks in img, classifies the body type and attaches
// recommendations.
func (a *Analyzer) Analyze(ctx context.Context, img image.Image) (*AnalysisResult, error) {
	if err := a.processor.ValidateImage(img); err != nil {
		return nil, err
	}
	b := img.Bounds()
	res := &AnalysisResult{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Width:     b.Dx(),
		Height:    b.Dy(),
	}

	keypoints, desc, err := a.landmarks(ctx, img)
	switch {
	case err == nil:
		res.LandmarkSource = SourceModel
		res.Description = desc
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case a.opts.Fallback:
		a.logger.Warn("landmark detection failed, using geometric estimate",
			zap.String("id", res.ID), zap.Error(err))
		keypoints = pose.Fallback(res.Width, res.Height)
		res.LandmarkSource = SourceFallback
	default:
		return nil, fmt.Errorf("landmark detection failed: %w", err)
	}

	metrics, err := pose.ComputeMetrics(keypoints)
	if err != nil && res.LandmarkSource == SourceModel && a.opts.Fallback {
		a.logger.Warn("model landmarks unusable, using geometric estimate",
			zap.String("id", res.ID), zap.Error(err))
		keypoints = pose.Fallback(res.Width, res.Height)
		res.LandmarkSource = SourceFallback
		res.Description = ""
		metrics, err = pose.ComputeMetrics(keypoints)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to compute body metrics: %w", err)
	}
	res.Keypoints = keypoints
	res.Metrics = metrics

	res.Classification = a.classifier.Classify(ctx, metrics.R1WaistShoulder, metrics.R2HipShoulder)
	bodyType := res.Classification.BodyType.String()
	res.BodyTypeDescription = classifier.Description(bodyType)
	res.StyleTips = classifier.StyleTips(bodyType)
	res.Recommendations = recommend.Recommend(bodyType)
	res.Advice = recommend.Advice(bodyType)
	res.Colors = recommend.Colors(bodyType)

	a.logger.Info("analysis complete",
		zap.String("id", res.ID),
		zap.String("body_type", bodyType),
		zap.String("tier", res.Classification.Tier),
		zap.String("landmarks", res.LandmarkSource),
		zap.Stringer("metrics", metrics))
	return res, nil
}

var errNoDetector = errors.New("no vision backend configured")

// landmarks returns keypoints in the pixel space of img
func (a *Analyzer) landmarks(ctx context.Context, img image.Image) ([]types.Keypoint, string, error) {
	if a.detector == nil {
		return nil, "", errNoDetector
	}
	b64, size, err := a.processor.PrepareImageForModel(img, a.opts.Image)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode image: %w", err)
	}
	det, err := a.detector.Detect(ctx, b64, size.X, size.Y)
	if err != nil {
		return nil, "", err
	}

	// the model saw a resized copy
	b := img.Bounds()
	sx := float64(b.Dx()) / float64(size.X)
	sy := float64(b.Dy()) / float64(size.Y)
	out := make([]types.Keypoint, len(det.Keypoints))
	for i, kp := range det.Keypoints {
		kp.X *= sx
		kp.Y *= sy
		out[i] = kp
	}
	return out, det.Description, nil
}

// Classify classifies a ratio pair directly, bypassing the photo stages
func (a *Analyzer) Classify(ctx context.Context, r1, r2 float64) classifier.Result {
	return a.classifier.Classify(ctx, r1, r2)
}

// DebugOverlay draws the result's landmarks on img
func (a *Analyzer) DebugOverlay(img image.Image, res *AnalysisResult) image.Image {
	return a.processor.CreateLandmarkOverlay(img, res.Keypoints)
}
