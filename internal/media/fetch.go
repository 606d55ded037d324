package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"tg_reels_bot/internal/logging"
)

// Typed fetch failures the bot maps to user-facing text.
var (
	// ErrPrivateContent marks content the fetcher is not allowed to read.
	ErrPrivateContent = errors.New("content is private")
	// ErrNotFound marks a shortcode with no content behind it.
	ErrNotFound = errors.New("content not found")
)

// DefaultBaseURL is where reels are fetched from unless overridden.
const DefaultBaseURL = "https://www.instagram.com"

const fetchTimeout = 60 * time.Second

// Reel is a downloaded video on local disk. The caller owns the file and
// removes it after use.
type Reel struct {
	Path string
	Size int64
}

// Fetcher turns a shortcode into a local video file or a typed failure.
type Fetcher interface {
	FetchReel(ctx context.Context, shortcode string) (Reel, error)
}

// HTTPFetcher downloads reels over HTTP.
type HTTPFetcher struct {
	baseURL string
	client  *http.Client
	logger  *logrus.Entry
}

// NewHTTPFetcher constructs an HTTPFetcher. An empty baseURL selects
// DefaultBaseURL.
func NewHTTPFetcher(baseURL string, logger *logrus.Entry) *HTTPFetcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = logging.Logger()
	}

	return &HTTPFetcher{
		baseURL: baseURL,
		client:  &http.Client{Timeout: fetchTimeout},
		logger:  logger,
	}
}

// FetchReel downloads the video for shortcode into a temporary file.
func (f *HTTPFetcher) FetchReel(ctx context.Context, shortcode string) (Reel, error) {
	if f == nil || f.client == nil {
		return Reel{}, errors.New("fetcher is not initialized")
	}
	if ctx == nil {
		return Reel{}, errors.New("context is required")
	}
	if shortcode == "" {
		return Reel{}, errors.New("shortcode is required")
	}

	url := fmt.Sprintf("%s/reel/%s/", f.baseURL, shortcode)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Reel{}, fmt.Errorf("build fetch request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return Reel{}, fmt.Errorf("fetch reel %s: %w", shortcode, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return Reel{}, fmt.Errorf("fetch reel %s: %w", shortcode, ErrPrivateContent)
	case http.StatusNotFound, http.StatusGone:
		return Reel{}, fmt.Errorf("fetch reel %s: %w", shortcode, ErrNotFound)
	default:
		return Reel{}, fmt.Errorf("fetch reel %s: unexpected status %d", shortcode, resp.StatusCode)
	}

	file, err := os.CreateTemp("", "reel-*.mp4")
	if err != nil {
		return Reel{}, fmt.Errorf("create temp file: %w", err)
	}

	size, err := io.Copy(file, resp.Body)
	closeErr := file.Close()
	if err != nil {
		_ = os.Remove(file.Name())
		return Reel{}, fmt.Errorf("download reel %s: %w", shortcode, err)
	}
	if closeErr != nil {
		_ = os.Remove(file.Name())
		return Reel{}, fmt.Errorf("close temp file: %w", closeErr)
	}

	f.logger.WithFields(logging.Fields{
		"event":     "reel_downloaded",
		"shortcode": shortcode,
		"bytes":     size,
	}).Info("downloaded reel")

	return Reel{Path: file.Name(), Size: size}, nil
}
