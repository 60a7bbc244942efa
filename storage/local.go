// Package storage keeps uploaded photos and con-note images.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type ObjectStore interface {
	// Put stores r under a generated key below prefix and returns its public URL.
	Put(ctx context.Context, prefix, filename string, r io.Reader) (string, error)
}

// Local writes objects below a directory that the HTTP server exposes as
// static files.
type Local struct {
	dir     string
	baseURL string
}

func NewLocal(dir, baseURL string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Local{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

var allowedExt = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".heic": true, ".pdf": true,
}

func (l *Local) Put(ctx context.Context, prefix, filename string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExt[ext] {
		return "", fmt.Errorf("file type %q is not accepted", ext)
	}

	key := path.Join(cleanPrefix(prefix), uuid.NewString()+ext)
	full := filepath.Join(l.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}

	f, err := os.OpenFile(full, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(full)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	return l.baseURL + "/" + key, nil
}

func cleanPrefix(prefix string) string {
	var parts []string
	for _, p := range strings.Split(prefix, "/") {
		if p == "" || p == "." || p == ".." {
			continue
		}
		parts = append(parts, p)
	}
	return path.Join(parts...)
}
