// Package storage keeps uploaded receipt images on local disk.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/abdulbosit19980204/journal/internal/domain"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

var allowedTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// LocalReceiptStore writes files under dir/<user id>/<ulid><ext>. The
// returned reference is the path relative to dir.
type LocalReceiptStore struct {
	dir      string
	maxBytes int64
	log      *zerolog.Logger
}

func NewLocalReceiptStore(dir string, maxBytes int64, logger *zerolog.Logger) (*LocalReceiptStore, error) {
	if dir == "" {
		return nil, errors.New("storage: receipt dir is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("storage: create %s: %w", dir, err)
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &LocalReceiptStore{dir: dir, maxBytes: maxBytes, log: logger}, nil
}

// Save sniffs the content type from the first bytes; the client's header is
// not trusted. Oversized and unsupported files are ErrInvalidArgument.
func (s *LocalReceiptStore) Save(ctx context.Context, userID string, r io.Reader) (string, error) {
	if userID == "" || strings.ContainsAny(userID, `/\.`) {
		return "", domain.ErrInvalidArgument
	}
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("%w: empty file", domain.ErrInvalidArgument)
		}
		return "", err
	}
	head = head[:n]
	ext, ok := allowedTypes[http.DetectContentType(head)]
	if !ok {
		return "", fmt.Errorf("%w: unsupported file type", domain.ErrInvalidArgument)
	}

	userDir := filepath.Join(s.dir, userID)
	if err := os.MkdirAll(userDir, 0o750); err != nil {
		return "", err
	}
	name := ulid.Make().String() + ext
	path := filepath.Join(userDir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return "", err
	}

	src := io.MultiReader(bytes.NewReader(head), r)
	if s.maxBytes > 0 {
		src = io.LimitReader(src, s.maxBytes+1)
	}
	written, copyErr := io.Copy(f, src)
	closeErr := f.Close()
	switch {
	case copyErr == nil && closeErr == nil && (s.maxBytes <= 0 || written <= s.maxBytes):
	default:
		_ = os.Remove(path)
		if copyErr != nil {
			return "", copyErr
		}
		if closeErr != nil {
			return "", closeErr
		}
		return "", fmt.Errorf("%w: file exceeds %d bytes", domain.ErrInvalidArgument, s.maxBytes)
	}

	ref := filepath.ToSlash(filepath.Join(userID, name))
	s.log.Debug().Str("ref", ref).Int64("bytes", written).Msg("receipt stored")
	return ref, nil
}

// Open returns the stored file for ref.
func (s *LocalReceiptStore) Open(ref string) (*os.File, error) {
	clean := filepath.Clean(filepath.FromSlash(ref))
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return nil, domain.ErrNotFound
	}
	f, err := os.Open(filepath.Join(s.dir, clean))
	if errors.Is(err, os.ErrNotExist) {
		return nil, domain.ErrNotFound
	}
	return f, err
}
