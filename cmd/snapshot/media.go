package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/khoahotran/profile-portal/pkg/logger"
)

const publishedMediaPrefix = "/published-media/"

// mediaExporter copies media referenced by a payload next to the snapshot
// and rewrites the references to /published-media/... so the snapshot is
// usable without the API.
type mediaExporter struct {
	origin     *url.URL
	prefix     string
	dir        string
	httpClient *http.Client
	logger     logger.Logger

	copied  map[string]bool
	missing int
}

func newMediaExporter(apiBase, prefix, dir string, httpClient *http.Client, log logger.Logger) (*mediaExporter, error) {
	origin, err := url.Parse(apiBase)
	if err != nil || origin.Scheme == "" || origin.Host == "" {
		return nil, fmt.Errorf("invalid API base %q", apiBase)
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &mediaExporter{
		origin:     origin,
		prefix:     prefix,
		dir:        dir,
		httpClient: httpClient,
		logger:     log,
		copied:     make(map[string]bool),
	}, nil
}

// walk rewrites every media string in v, returning the rewritten value.
func (m *mediaExporter) walk(ctx context.Context, v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = m.walk(ctx, item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = m.walk(ctx, item)
		}
		return t
	case string:
		return m.remap(ctx, t)
	}
	return v
}

func (m *mediaExporter) remap(ctx context.Context, value string) string {
	if value == "" {
		return value
	}
	u, err := url.Parse(value)
	if err != nil {
		return value
	}
	if u.Host != "" && !strings.EqualFold(u.Host, m.origin.Host) {
		return value
	}
	if !strings.HasPrefix(u.Path, m.prefix) {
		return value
	}

	relative := strings.TrimPrefix(u.Path, m.prefix)
	cleaned := path.Clean("/" + relative)[1:]
	if cleaned == "" || cleaned != relative {
		return value
	}

	if !m.copied[cleaned] {
		m.copied[cleaned] = true
		if err := m.download(ctx, u.Path, cleaned); err != nil {
			m.missing++
			m.logger.Warn("Missing media file", zap.String("path", u.Path), zap.Error(err))
		}
	}
	return publishedMediaPrefix + cleaned
}

func (m *mediaExporter) download(ctx context.Context, mediaPath, relative string) error {
	src := m.origin.ResolveReference(&url.URL{Path: mediaPath})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download media: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("media request failed with status: %d", resp.StatusCode)
	}

	dst := filepath.Join(m.dir, filepath.FromSlash(relative))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create media dir: %w", err)
	}
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create media file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return fmt.Errorf("write media file: %w", err)
	}
	return f.Close()
}
