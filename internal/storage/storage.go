// Package storage uploads user images and returns the URL they are served from.
package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// ErrUnsupportedFormat is returned for anything other than jpeg or png.
var ErrUnsupportedFormat = errors.New("unsupported image format, expected jpg, jpeg or png")

// RootFolder prefixes every object key.
const RootFolder = "FitTogether"

// Storage persists an object under key and returns its public URL.
type Storage interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

var allowedTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
}

// SniffImage peeks at the start of r and returns the detected content type and
// file extension together with a reader that still yields the full body.
func SniffImage(r io.Reader) (contentType, ext string, body io.Reader, err error) {
	br := bufio.NewReaderSize(r, 512)
	head, err := br.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return "", "", nil, fmt.Errorf("read image: %w", err)
	}
	contentType = http.DetectContentType(head)
	ext, ok := allowedTypes[contentType]
	if !ok {
		return "", "", nil, ErrUnsupportedFormat
	}
	return contentType, ext, br, nil
}

// NewKey builds a unique object key such as FitTogether/posts/2026/10/<uuid>.jpg.
func NewKey(kind, ext string) string {
	d := time.Now().UTC()
	return fmt.Sprintf("%s/%s/%d/%02d/%v.%s", RootFolder, kind, d.Year(), d.Month(), uuid.New(), ext)
}
