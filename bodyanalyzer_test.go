package bodyanalyzer

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/menta2k/body-analyzer/pkg/classifier"
	"github.com/menta2k/body-analyzer/pkg/pose"
	"github.com/menta2k/body-analyzer/pkg/types"
)

// createTestImage creates a plain test image
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{64, 64, 64, 255})
		}
	}
	return img
}

type stubVision struct {
	landmarks []types.Landmark
	text      string
	err       error
}

func (s *stubVision) SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}

func (s *stubVision) LocateLandmarks(ctx context.Context, model, prompt, imgB64 string) (*types.LandmarkResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &types.LandmarkResult{Landmarks: s.landmarks, Description: "person facing camera"}, nil
}

func hourglassLandmarks() []types.Landmark {
	return []types.Landmark{
		{Name: pose.LeftShoulder, X: 0.3, Y: 0.25, Visibility: 0.9},
		{Name: pose.RightShoulder, X: 0.7, Y: 0.25, Visibility: 0.9},
		{Name: pose.LeftWaist, X: 0.36, Y: 0.45, Visibility: 0.9},
		{Name: pose.RightWaist, X: 0.64, Y: 0.45, Visibility: 0.9},
		{Name: pose.LeftHip, X: 0.3, Y: 0.6, Visibility: 0.9},
		{Name: pose.RightHip, X: 0.7, Y: 0.6, Visibility: 0.9},
	}
}

func newTestAnalyzer(v *stubVision, fallback bool) *Analyzer {
	opts := DefaultOptions()
	opts.Fallback = fallback
	var det *pose.Detector
	if v != nil {
		det = pose.NewDetector(v, "test")
	}
	return New(classifier.New(nil), det, opts)
}

func TestAnalyzeWithModelLandmarks(t *testing.T) {
	a := newTestAnalyzer(&stubVision{landmarks: hourglassLandmarks()}, false)

	res, err := a.Analyze(context.Background(), createTestImage(400, 800))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if res.ID == "" {
		t.Error("result has no id")
	}
	if res.LandmarkSource != SourceModel {
		t.Errorf("LandmarkSource = %s, want %s", res.LandmarkSource, SourceModel)
	}
	if res.Classification.BodyType != classifier.Hourglass {
		t.Errorf("BodyType = %s, want hourglass (metrics %s)", res.Classification.BodyType, res.Metrics)
	}
	if res.Classification.Tier != classifier.TierRules {
		t.Errorf("Tier = %s, want rules", res.Classification.Tier)
	}
	if len(res.Recommendations) != 3 {
		t.Errorf("got %d recommendations, want 3", len(res.Recommendations))
	}
	if len(res.StyleTips) == 0 || res.BodyTypeDescription == "" {
		t.Error("missing description or style tips")
	}
	if res.Description != "person facing camera" {
		t.Errorf("Description = %q", res.Description)
	}
}

func TestAnalyzeScalesKeypointsToOriginal(t *testing.T) {
	a := newTestAnalyzer(&stubVision{landmarks: hourglassLandmarks()}, false)
	a.opts.Image.MaxDim = 200

	res, err := a.Analyze(context.Background(), createTestImage(400, 800))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	ls, ok := pose.Find(res.Keypoints, pose.LeftShoulder)
	if !ok {
		t.Fatal("left shoulder missing")
	}
	if ls.X < 119 || ls.X > 121 || ls.Y < 199 || ls.Y > 201 {
		t.Errorf("left shoulder at (%.1f, %.1f), want (120, 200)", ls.X, ls.Y)
	}
}

func TestAnalyzeFallsBack(t *testing.T) {
	a := newTestAnalyzer(&stubVision{err: errors.New("backend down")}, true)

	res, err := a.Analyze(context.Background(), createTestImage(400, 800))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if res.LandmarkSource != SourceFallback {
		t.Errorf("LandmarkSource = %s, want %s", res.LandmarkSource, SourceFallback)
	}
	if res.Classification.BodyType != classifier.Rectangle {
		t.Errorf("BodyType = %s, want rectangle", res.Classification.BodyType)
	}
}

func TestAnalyzeFallsBackOnDegenerateLandmarks(t *testing.T) {
	landmarks := hourglassLandmarks()
	landmarks[0].X, landmarks[1].X = 0.5, 0.5

	a := newTestAnalyzer(&stubVision{landmarks: landmarks}, true)
	res, err := a.Analyze(context.Background(), createTestImage(400, 800))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if res.LandmarkSource != SourceFallback {
		t.Errorf("LandmarkSource = %s, want %s", res.LandmarkSource, SourceFallback)
	}
	if res.Classification.BodyType != classifier.Rectangle {
		t.Errorf("BodyType = %s, want rectangle", res.Classification.BodyType)
	}
	if res.Description != "" {
		t.Errorf("Description = %q, want empty for estimated landmarks", res.Description)
	}

	a = newTestAnalyzer(&stubVision{landmarks: landmarks}, false)
	if _, err := a.Analyze(context.Background(), createTestImage(400, 800)); err == nil {
		t.Error("expected metrics error without fallback")
	}
}

func TestAnalyzeWithoutDetector(t *testing.T) {
	res, err := newTestAnalyzer(nil, true).Analyze(context.Background(), createTestImage(300, 300))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if res.LandmarkSource != SourceFallback {
		t.Errorf("LandmarkSource = %s, want %s", res.LandmarkSource, SourceFallback)
	}

	if _, err := newTestAnalyzer(nil, false).Analyze(context.Background(), createTestImage(300, 300)); err == nil {
		t.Error("expected error without detector or fallback")
	}
}

func TestAnalyzeMissingLandmarksNoFallback(t *testing.T) {
	a := newTestAnalyzer(&stubVision{landmarks: hourglassLandmarks()[:2]}, false)

	_, err := a.Analyze(context.Background(), createTestImage(400, 800))
	if !errors.Is(err, pose.ErrLandmarksNotFound) {
		t.Errorf("error = %v, want ErrLandmarksNotFound", err)
	}
}

func TestAnalyzeRejectsSmallImage(t *testing.T) {
	_, err := newTestAnalyzer(nil, true).Analyze(context.Background(), createTestImage(50, 50))
	if err == nil {
		t.Error("expected error for small image")
	}
}

func TestAnalyzeCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := newTestAnalyzer(&stubVision{err: context.Canceled}, true)
	if _, err := a.Analyze(ctx, createTestImage(400, 800)); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestDescribe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, createTestImage(300, 500)); err != nil {
		t.Fatal(err)
	}
	f.Close()

	a := newTestAnalyzer(&stubVision{text: "a person in a fitted dress"}, false)
	text, err := a.Describe(context.Background(), path)
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if text != "a person in a fitted dress" {
		t.Errorf("Describe() = %q", text)
	}

	if _, err := newTestAnalyzer(nil, true).Describe(context.Background(), path); err == nil {
		t.Error("expected error without a vision backend")
	}
	if _, err := a.Describe(context.Background(), filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestClassifyPassthrough(t *testing.T) {
	res := newTestAnalyzer(nil, true).Classify(context.Background(), 0.7, 1.0)
	if res.BodyType != classifier.Hourglass {
		t.Errorf("BodyType = %s, want hourglass", res.BodyType)
	}
}

func TestDebugOverlay(t *testing.T) {
	a := newTestAnalyzer(nil, true)
	img := createTestImage(300, 300)
	res, err := a.Analyze(context.Background(), img)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	out := a.DebugOverlay(img, res)
	if out.Bounds() != img.Bounds() {
		t.Errorf("overlay bounds = %v, want %v", out.Bounds(), img.Bounds())
	}
}

func TestVersion(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
}
