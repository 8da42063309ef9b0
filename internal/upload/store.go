// Package upload relocates accepted uploads from temporary storage into
// the public uploads directory and derives their public reference paths.
package upload

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"syscall"
	"time"

	"github.com/pns-society/membership-api/internal/ingest"
)

// maxBaseLen is the rune cap applied to the sanitized client filename when
// building a destination name.
const maxBaseLen = 40

// Relocator is the filesystem capability the store needs. Tests substitute
// implementations scoped to a temp directory or failing on purpose.
type Relocator interface {
	// EnsureDir creates dir if missing. Must be idempotent and safe under
	// concurrent creators.
	EnsureDir(dir string) error

	// Relocate moves src to dst, atomically when both live on the same
	// volume.
	Relocate(src, dst string) error
}

// DiskRelocator relocates files on the local filesystem.
//
// Relocate prefers an atomic rename. When source and destination sit on
// different volumes the rename fails with EXDEV and a copy-then-delete
// fallback runs instead; a crash mid-copy can leave a partial destination
// file, which is why the fallback is logged.
type DiskRelocator struct{}

func (DiskRelocator) EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

func (DiskRelocator) Relocate(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return err
	}

	slog.Warn("cross-device rename, falling back to copy+delete",
		"src", src,
		"dst", dst,
	)
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

// copyFile copies src to dst and syncs the destination before returning.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

// Store materializes uploaded files into a public directory.
type Store struct {
	dir    string
	prefix string
	rel    Relocator
}

// NewStore returns a Store writing to dir and issuing references under
// prefix (e.g. "/uploads").
func NewStore(dir, prefix string) *Store {
	return NewStoreWithRelocator(dir, prefix, DiskRelocator{})
}

// NewStoreWithRelocator is NewStore with an explicit Relocator, for tests.
func NewStoreWithRelocator(dir, prefix string, rel Relocator) *Store {
	return &Store{dir: dir, prefix: prefix, rel: rel}
}

// Dir returns the destination directory files are stored under.
func (s *Store) Dir() string { return s.dir }

// Materialize relocates the first handle of a file slot into the uploads
// directory and returns its public reference path.
//
// A nil/empty slot returns (nil, nil): no file attached is not an error.
// A handle without a temporary path is treated the same way, as a guard
// against malformed handles. Any relocation failure is fatal for the
// caller's request.
func (s *Store) Materialize(handles []*ingest.FileHandle, field string) (*string, error) {
	h := pickHandle(handles)
	if h == nil || h.TempPath == "" {
		return nil, nil
	}

	if err := s.rel.EnsureDir(s.dir); err != nil {
		return nil, fmt.Errorf("ensure uploads dir: %w", err)
	}

	name := destName(field, h.Filename, time.Now().UnixMilli())
	if err := s.rel.Relocate(h.TempPath, filepath.Join(s.dir, name)); err != nil {
		return nil, fmt.Errorf("relocate %s upload: %w", field, err)
	}

	ref := s.prefix + "/" + name
	return &ref, nil
}

// pickHandle resolves a zero-one-or-many slot to at most one handle.
func pickHandle(handles []*ingest.FileHandle) *ingest.FileHandle {
	if len(handles) == 0 {
		return nil
	}
	return handles[0]
}

var whitespaceRuns = regexp.MustCompile(`\s+`)

// destName builds the destination file name:
//
//	{unixMillis}-{field}-{sanitizedBase}{ext}
//
// The base is the client filename with whitespace runs collapsed to single
// underscores and truncated to 40 runes, or "file" when the client sent no
// name. Uniqueness rests on the millisecond timestamp plus field name; two
// uploads to the same field in the same millisecond would collide.
func destName(field, original string, unixMillis int64) string {
	ext := filepath.Ext(original)

	base := original
	if base == "" {
		base = "file"
	}
	base = whitespaceRuns.ReplaceAllString(base, "_")
	if runes := []rune(base); len(runes) > maxBaseLen {
		base = string(runes[:maxBaseLen])
	}

	return fmt.Sprintf("%d-%s-%s%s", unixMillis, field, base, ext)
}
