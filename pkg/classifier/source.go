package classifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// AssetSource fetches model assets by slash-separated relative name,
// e.g. "tfjs_model/model.json".
type AssetSource interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// maxAssetSize bounds a single asset download
const maxAssetSize = 64 << 20

// HTTPSource fetches assets relative to a base URL
type HTTPSource struct {
	base       *url.URL
	httpClient *http.Client
	retries    uint64
	backoff    time.Duration
}

// HTTPOption customizes an HTTPSource
type HTTPOption func(*HTTPSource)

// WithHTTPClient replaces the default client
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPSource) { s.httpClient = c }
}

// WithRetries sets how many times a transient failure is retried
func WithRetries(n uint64, backoff time.Duration) HTTPOption {
	return func(s *HTTPSource) {
		s.retries = n
		s.backoff = backoff
	}
}

// NewHTTPSource creates a source rooted at baseURL, e.g. http://localhost:5173/model/
func NewHTTPSource(baseURL string, opts ...HTTPOption) (*HTTPSource, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid model base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %s (only http and https are supported)", u.Scheme)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	s := &HTTPSource{
		base:       u,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retries:    2,
		backoff:    200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Fetch downloads an asset. Network errors and 5xx responses are retried;
// any other non-200 status fails immediately.
func (s *HTTPSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	target := s.base.ResolveReference(&url.URL{Path: strings.TrimPrefix(name, "/")})

	var data []byte
	b := retry.WithMaxRetries(s.retries, retry.NewConstant(s.backoff))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", "Body-Analyzer/1.0")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("failed to fetch %s: %w", target, err))
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			statusErr := fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
			if resp.StatusCode >= 500 {
				return retry.RetryableError(statusErr)
			}
			return statusErr
		}

		data, err = io.ReadAll(io.LimitReader(resp.Body, maxAssetSize))
		if err != nil {
			return retry.RetryableError(fmt.Errorf("failed to read %s: %w", target, err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// DirSource reads assets from a local directory
type DirSource struct {
	root string
}

// NewDirSource creates a source rooted at dir
func NewDirSource(dir string) *DirSource {
	return &DirSource{root: dir}
}

// Fetch reads an asset; names may not escape the root directory
func (s *DirSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clean := path.Clean("/" + name)
	if clean == "/" {
		return nil, errors.New("empty asset name")
	}

	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(clean)))
	if err != nil {
		return nil, fmt.Errorf("failed to read asset: %w", err)
	}
	return data, nil
}
