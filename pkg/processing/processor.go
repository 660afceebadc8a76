package processing

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/body-analyzer/pkg/pose"
	"github.com/menta2k/body-analyzer/pkg/types"
)

// DefaultMinImageSize is the shortest side accepted for analysis
const DefaultMinImageSize = 100

const maxDownloadSize = 32 << 20

var (
	// ErrImageTooSmall is returned by ValidateImage
	ErrImageTooSmall = errors.New("image too small")
	// ErrUnsupportedFormat is returned when no decoder accepts the data
	ErrUnsupportedFormat = errors.New("image: unknown or unsupported format")
)

// Processor handles image processing operations
type Processor struct {
	minImageSize int
	httpClient   *http.Client
}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return &Processor{
		minImageSize: DefaultMinImageSize,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// WithMinImageSize returns a copy of p that rejects images with a side
// shorter than n pixels.
func (p *Processor) WithMinImageSize(n int) *Processor {
	cp := *p
	cp.minImageSize = n
	return &cp
}

// LoadImageFromURL downloads and loads an image from a URL
func (p *Processor) LoadImageFromURL(imageURL string) (image.Image, error) {
	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %s (only http and https are supported)", parsedURL.Scheme)
	}

	req, err := http.NewRequest(http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("User-Agent", "Body-Analyzer/1.0")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("URL does not point to an image (Content-Type: %s)", contentType)
	}

	return p.LoadImageFromReader(io.LimitReader(resp.Body, maxDownloadSize))
}

// LoadImage loads an image from a file path with WebP support
func (p *Processor) LoadImage(path string) (image.Image, error) {
	if img, err := imaging.Open(path); err == nil {
		return img, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := p.decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w for %s", err, path)
	}
	return img, nil
}

// LoadImageFromReader decodes an image from r
func (p *Processor) LoadImageFromReader(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %v", err)
	}
	return p.decode(data)
}

// LoadImageSmart loads an image from either a file path or URL
func (p *Processor) LoadImageSmart(source string) (image.Image, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return p.LoadImageFromURL(source)
	}
	return p.LoadImage(source)
}

func (p *Processor) decode(data []byte) (image.Image, error) {
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	return nil, ErrUnsupportedFormat
}

// ValidateImage rejects images too small to locate landmarks in
func (p *Processor) ValidateImage(img image.Image) error {
	if img == nil {
		return fmt.Errorf("image is nil")
	}
	b := img.Bounds()
	if b.Dx() < p.minImageSize || b.Dy() < p.minImageSize {
		return fmt.Errorf("%w: %dx%d (minimum: %dx%d)",
			ErrImageTooSmall, b.Dx(), b.Dy(), p.minImageSize, p.minImageSize)
	}
	return nil
}

// PrepareImageForModel resizes img to fit opts.MaxDim and returns it base64
// encoded along with the size that was actually encoded.
func (p *Processor) PrepareImageForModel(img image.Image, opts types.ModelImageOptions) (string, image.Point, error) {
	if opts.MaxDim > 0 {
		b := img.Bounds()
		w, h := b.Dx(), b.Dy()
		if w > opts.MaxDim || h > opts.MaxDim {
			if w >= h {
				img = imaging.Resize(img, opts.MaxDim, 0, imaging.Lanczos)
			} else {
				img = imaging.Resize(img, 0, opts.MaxDim, imaging.Lanczos)
			}
		}
	}
	quality := opts.Quality
	if quality <= 0 {
		quality = 90
	}

	var buf bytes.Buffer
	switch strings.ToLower(opts.Format) {
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return "", image.Point{}, err
		}
	default: // jpg
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return "", image.Point{}, err
		}
	}
	size := image.Pt(img.Bounds().Dx(), img.Bounds().Dy())
	return base64.StdEncoding.EncodeToString(buf.Bytes()), size, nil
}

// SaveImage saves an image to a file with the specified format and quality
func (p *Processor) SaveImage(img image.Image, path, format string, quality int, lossless bool) error {
	switch strings.ToLower(format) {
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		opts := &webp.Options{Lossless: lossless, Quality: float32(quality)}
		return webp.Encode(f, img, opts)
	case "png":
		return imaging.Save(img, path)
	default: // jpg/jpeg
		return imaging.Save(img, path, imaging.JPEGQuality(quality))
	}
}

// skeleton lists the landmark pairs joined in the debug overlay
var skeleton = [][2]string{
	{pose.LeftShoulder, pose.RightShoulder},
	{pose.LeftWaist, pose.RightWaist},
	{pose.LeftHip, pose.RightHip},
	{pose.LeftShoulder, pose.LeftWaist},
	{pose.LeftWaist, pose.LeftHip},
	{pose.RightShoulder, pose.RightWaist},
	{pose.RightWaist, pose.RightHip},
}

// CreateLandmarkOverlay draws the skeleton and a marker per keypoint.
// Keypoints are in the pixel space of img.
func (p *Processor) CreateLandmarkOverlay(img image.Image, keypoints []types.Keypoint) image.Image {
	nrgba := imaging.Clone(img)
	w := nrgba.Bounds().Dx()
	h := nrgba.Bounds().Dy()

	green := color.NRGBA{0, 255, 0, 255}                    // skeleton
	red := color.NRGBA{255, 0, 0, 255}                      // keypoint
	blue := color.NRGBA{0, 170, 255, 255}                   // image center
	stroke := int(math.Max(2, 0.004*float64(minInt(w, h)))) // ~0.4% of min side
	cross := int(math.Max(4, 0.01*float64(minInt(w, h))))   // ~1% of min side

	for _, bone := range skeleton {
		a, okA := pose.Find(keypoints, bone[0])
		b, okB := pose.Find(keypoints, bone[1])
		if !okA || !okB {
			continue
		}
		drawLine(nrgba, round(a.X), round(a.Y), round(b.X), round(b.Y), green, stroke)
	}

	for _, kp := range keypoints {
		px, py := round(kp.X), round(kp.Y)
		for s := -stroke / 2; s <= stroke/2; s++ {
			drawHLine(nrgba, py+s, px-cross, px+cross, red)
			drawVLine(nrgba, px+s, py-cross, py+cross, red)
		}
	}

	ix, iy := w/2, h/2
	drawHLine(nrgba, iy, ix-6, ix+6, blue)
	drawVLine(nrgba, ix, iy-6, iy+6, blue)

	return nrgba
}

func round(v float64) int {
	return int(math.Round(v))
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// drawLine rasterises a segment with Bresenham's algorithm, thickened by
// stamping a stroke-sized square at every step.
func drawLine(img *image.NRGBA, x0, y0, x1, y1 int, c color.NRGBA, stroke int) {
	dx := absInt(x1 - x0)
	dy := -absInt(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	half := stroke / 2
	e := dx + dy
	for {
		for s := -half; s <= half; s++ {
			drawHLine(img, y0+s, x0-half, x0+half+1, c)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	if y < 0 || y >= img.Bounds().Dy() {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if x1 <= 0 || x0 >= img.Bounds().Dx() {
		return
	}
	if x0 < 0 {
		x0 = 0
	}
	if x1 > img.Bounds().Dx() {
		x1 = img.Bounds().Dx()
	}
	i := y*img.Stride + x0*4
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	if x < 0 || x >= img.Bounds().Dx() {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if y1 <= 0 || y0 >= img.Bounds().Dy() {
		return
	}
	if y0 < 0 {
		y0 = 0
	}
	if y1 > img.Bounds().Dy() {
		y1 = img.Bounds().Dy()
	}
	i := y0*img.Stride + x*4
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}
