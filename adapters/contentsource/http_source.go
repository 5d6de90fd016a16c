package contentsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/khoahotran/profile-portal/pkg/apperror"
	"github.com/khoahotran/profile-portal/pkg/logger"
)

const (
	DefaultTimeout = 10 * time.Second
	maxBodyBytes   = 16 << 20
)

type HTTPSource struct {
	name       string
	url        string
	cacheBust  bool
	timeout    time.Duration
	httpClient *http.Client
	logger     logger.Logger
}

type Option func(*HTTPSource)

func WithHTTPClient(c *http.Client) Option {
	return func(s *HTTPSource) {
		if c != nil {
			s.httpClient = c
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(s *HTTPSource) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewTracedHTTPClient returns a client whose transport emits spans.
func NewTracedHTTPClient() *http.Client {
	return &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
}

// NewAPISource reads the live content endpoint.
func NewAPISource(contentURL string, log logger.Logger, opts ...Option) *HTTPSource {
	return newHTTPSource("api", contentURL, false, log, opts...)
}

// NewHTTPSnapshotSource reads a published snapshot over HTTP, bypassing
// intermediate caches.
func NewHTTPSnapshotSource(snapshotURL string, log logger.Logger, opts ...Option) *HTTPSource {
	return newHTTPSource("snapshot", snapshotURL, true, log, opts...)
}

func newHTTPSource(name, rawURL string, cacheBust bool, log logger.Logger, opts ...Option) *HTTPSource {
	s := &HTTPSource{
		name:       name,
		url:        rawURL,
		cacheBust:  cacheBust,
		timeout:    DefaultTimeout,
		httpClient: http.DefaultClient,
		logger:     log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *HTTPSource) Name() string {
	return s.name
}

func (s *HTTPSource) URL() string {
	return s.url
}

func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	target, err := s.requestURL()
	if err != nil {
		return nil, apperror.NewInvalidInput("invalid content URL "+s.url, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, apperror.NewInvalidInput("cannot build content request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")
	if s.cacheBust {
		req.Header.Set("Cache-Control", "no-cache")
		req.Header.Set("Pragma", "no-cache")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, apperror.NewCancelled(err)
		}
		return nil, apperror.NewNetwork(s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.logger.Warn("Content request returned non-OK status",
			zap.String("source", s.name), zap.String("url", s.url), zap.Int("status_code", resp.StatusCode))
		return nil, apperror.NewHTTPStatus(s.url, resp.StatusCode)
	}

	if !isJSONContentType(resp.Header.Get("Content-Type")) {
		return nil, apperror.NewFormat(fmt.Sprintf("%s returned Content-Type %q", s.url, resp.Header.Get("Content-Type")), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, apperror.NewCancelled(err)
		}
		return nil, apperror.NewNetwork(s.url, err)
	}
	if !json.Valid(body) {
		return nil, apperror.NewFormat(s.url+" returned malformed JSON", nil)
	}
	return body, nil
}

func (s *HTTPSource) requestURL() (string, error) {
	u, err := url.Parse(s.url)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("content URL %q must be absolute", s.url)
	}
	if s.cacheBust {
		q := u.Query()
		q.Set("_ts", strconv.FormatInt(time.Now().UnixMilli(), 10))
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func isJSONContentType(value string) bool {
	mediaType, _, err := mime.ParseMediaType(value)
	if err != nil {
		return false
	}
	return mediaType == "application/json"
}
