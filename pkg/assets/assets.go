// Package assets releases uploaded files once nothing references them.
package assets

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/jwalitptl/practice-api/pkg/metrics"
)

// Releaser deletes the stored object behind a public file URL.
type Releaser interface {
	Release(ctx context.Context, fileURL string) error
}

type Config struct {
	Driver string // s3, local or none
	// PublicBaseURL is the prefix files are served under; the rest is the key.
	PublicBaseURL string
	LocalRoot     string
	S3            S3Config
}

// New builds the releaser selected by cfg.Driver.
func New(ctx context.Context, cfg Config) (Releaser, error) {
	switch cfg.Driver {
	case "s3":
		return NewS3Releaser(ctx, cfg.S3, cfg.PublicBaseURL)
	case "local":
		return NewLocalReleaser(cfg.LocalRoot, cfg.PublicBaseURL), nil
	case "", "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown asset driver %q", cfg.Driver)
	}
}

// objectKey strips the public prefix (or the URL scheme and host) from a
// file URL and returns the storage key.
func objectKey(fileURL, publicBaseURL string) (string, error) {
	if publicBaseURL != "" && strings.HasPrefix(fileURL, publicBaseURL) {
		key := strings.TrimPrefix(strings.TrimPrefix(fileURL, publicBaseURL), "/")
		if key == "" {
			return "", fmt.Errorf("empty object key in %q", fileURL)
		}
		return key, nil
	}
	u, err := url.Parse(fileURL)
	if err != nil {
		return "", fmt.Errorf("invalid file url %q: %w", fileURL, err)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", fmt.Errorf("empty object key in %q", fileURL)
	}
	return key, nil
}

// LocalReleaser removes files kept on local disk under root.
type LocalReleaser struct {
	root          string
	publicBaseURL string
}

func NewLocalReleaser(root, publicBaseURL string) *LocalReleaser {
	return &LocalReleaser{root: root, publicBaseURL: publicBaseURL}
}

func (r *LocalReleaser) Release(ctx context.Context, fileURL string) error {
	key, err := objectKey(fileURL, r.publicBaseURL)
	if err != nil {
		return err
	}
	path := filepath.Join(r.root, filepath.FromSlash(key))
	rel, err := filepath.Rel(r.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("file %q escapes the asset root", fileURL)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

type instrumented struct {
	next    Releaser
	metrics *metrics.Metrics
}

// WithMetrics counts release outcomes on m.AssetReleases.
func WithMetrics(next Releaser, m *metrics.Metrics) Releaser {
	if next == nil || m == nil {
		return next
	}
	return &instrumented{next: next, metrics: m}
}

func (i *instrumented) Release(ctx context.Context, fileURL string) error {
	err := i.next.Release(ctx, fileURL)
	status := "success"
	if err != nil {
		status = "error"
	}
	i.metrics.AssetReleases.WithLabelValues(status).Inc()
	return err
}
