// Package ingest parses multipart registration submissions.
//
// Each file part is buffered to its own temporary file before any
// downstream processing starts, so a parse failure never leaves the caller
// holding a half-read form. The caller decides what to do with the
// temporary files; accepted ones are relocated to permanent storage and
// the rest are left for the OS temp cleaner.
package ingest

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
)

// maxFieldBytes caps a single text field value. Registration fields are
// short strings; anything larger is a malformed or hostile submission.
const maxFieldBytes = 1 << 20

// ErrFileTooLarge is returned when an uploaded file exceeds the configured
// per-file size ceiling. The whole request fails; nothing is truncated.
var ErrFileTooLarge = errors.New("uploaded file exceeds size limit")

// FileHandle describes one uploaded file buffered in temporary storage.
// Filename is the client-supplied name and must be treated as untrusted.
type FileHandle struct {
	Filename string
	TempPath string
	Size     int64
}

// Form holds the parsed fields and files of one multipart submission.
// A field or file name can map to multiple values (multi-file inputs).
type Form struct {
	Fields map[string][]string
	Files  map[string][]*FileHandle
}

// Value returns the first value for a field, or "" if absent.
func (f *Form) Value(name string) string {
	if vs := f.Fields[name]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// Options controls parsing behavior.
type Options struct {
	// TempDir is where file parts are buffered. Empty means os.TempDir().
	TempDir string

	// MaxFileSize is the per-file ceiling in bytes. A file over the limit
	// fails the whole parse with ErrFileTooLarge.
	MaxFileSize int64
}

// Parse reads the request's multipart body into a Form. It fully consumes
// the body (or fails) before returning; callers never see partial fields.
// On failure, temp files created so far are removed and a single wrapped
// error carries the underlying cause.
func Parse(r *http.Request, opts Options) (*Form, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("open multipart reader: %w", err)
	}

	form := &Form{
		Fields: make(map[string][]string),
		Files:  make(map[string][]*FileHandle),
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			form.discard()
			return nil, fmt.Errorf("read multipart part: %w", err)
		}

		name := part.FormName()
		if name == "" {
			part.Close()
			continue
		}

		if part.FileName() == "" {
			value, err := readFieldValue(part)
			part.Close()
			if err != nil {
				form.discard()
				return nil, fmt.Errorf("read field %q: %w", name, err)
			}
			form.Fields[name] = append(form.Fields[name], value)
			continue
		}

		handle, err := bufferFilePart(part, opts)
		part.Close()
		if err != nil {
			form.discard()
			return nil, fmt.Errorf("buffer file %q: %w", name, err)
		}
		form.Files[name] = append(form.Files[name], handle)
	}

	return form, nil
}

// readFieldValue reads a text field part with a defensive size cap.
func readFieldValue(part *multipart.Part) (string, error) {
	var sb strings.Builder
	n, err := io.Copy(&sb, io.LimitReader(part, maxFieldBytes+1))
	if err != nil {
		return "", err
	}
	if n > maxFieldBytes {
		return "", fmt.Errorf("field value exceeds %d bytes", maxFieldBytes)
	}
	return sb.String(), nil
}

// bufferFilePart streams a file part to a fresh temp file, enforcing the
// per-file size ceiling. The temp file is removed on any failure.
func bufferFilePart(part *multipart.Part, opts Options) (*FileHandle, error) {
	tmp, err := os.CreateTemp(opts.TempDir, "ingest-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	limit := opts.MaxFileSize
	size, err := io.Copy(tmp, io.LimitReader(part, limit+1))
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if size > limit {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("%w (limit %d bytes)", ErrFileTooLarge, limit)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	return &FileHandle{
		Filename: part.FileName(),
		TempPath: tmp.Name(),
		Size:     size,
	}, nil
}

// discard removes every temp file buffered so far. Used when a parse
// fails partway; a failed request must not accumulate temp files.
func (f *Form) discard() {
	for _, handles := range f.Files {
		for _, h := range handles {
			os.Remove(h.TempPath)
		}
	}
}
