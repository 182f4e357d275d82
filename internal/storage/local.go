package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage writes objects below Dir. The HTTP layer serves Dir under /static/.
type LocalStorage struct {
	Dir     string
	BaseURL string
}

func (l *LocalStorage) Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	clean := filepath.Clean("/" + key)
	path := filepath.Join(l.Dir, clean)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return strings.TrimRight(l.BaseURL, "/") + "/static" + filepath.ToSlash(clean), nil
}
