package contentsource

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/khoahotran/profile-portal/internal/application/service"
	"github.com/khoahotran/profile-portal/pkg/apperror"
	"github.com/khoahotran/profile-portal/pkg/logger"
)

// FileSource reads a snapshot shipped next to the binary.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Name() string {
	return "snapshot"
}

func (s *FileSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperror.NewCancelled(err)
	}

	body, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperror.NewUnavailable("Content snapshot not found", s.path)
		}
		return nil, apperror.NewNetwork(s.path, err)
	}
	if !json.Valid(body) {
		return nil, apperror.NewFormat(s.path+" is not valid JSON", nil)
	}
	return body, nil
}

// NewSnapshotSource picks an HTTP source for http(s) locations and a file
// source for everything else.
func NewSnapshotSource(location string, timeout time.Duration, log logger.Logger, opts ...Option) service.ContentSource {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return NewHTTPSnapshotSource(location, log, append(opts, WithTimeout(timeout))...)
	}
	return NewFileSource(location)
}
