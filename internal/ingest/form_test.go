package ingest

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

type filePart struct {
	field   string
	name    string
	content []byte
}

func multipartRequest(t *testing.T, fields map[string]string, files []filePart) (*bytes.Buffer, string) {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			t.Fatalf("WriteField(%q) error = %v", name, err)
		}
	}
	for _, fp := range files {
		fw, err := w.CreateFormFile(fp.field, fp.name)
		if err != nil {
			t.Fatalf("CreateFormFile(%q) error = %v", fp.field, err)
		}
		if _, err := fw.Write(fp.content); err != nil {
			t.Fatalf("write file part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &body, w.FormDataContentType()
}

func TestParse_FieldsAndFiles(t *testing.T) {
	body, contentType := multipartRequest(t,
		map[string]string{
			"email":        "Member@Example.COM",
			"sectorNumber": "7",
		},
		[]filePart{
			{field: "ownerPhoto", name: "me.png", content: []byte("png-bytes")},
		},
	)

	req := httptest.NewRequest("POST", "/api/register", body)
	req.Header.Set("Content-Type", contentType)

	form, err := Parse(req, Options{TempDir: t.TempDir(), MaxFileSize: 10 << 20})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if got := form.Value("email"); got != "Member@Example.COM" {
		t.Errorf("Value(email) = %q, want raw value untouched", got)
	}
	if got := form.Value("sectorNumber"); got != "7" {
		t.Errorf("Value(sectorNumber) = %q, want %q", got, "7")
	}
	if got := form.Value("missing"); got != "" {
		t.Errorf("Value(missing) = %q, want empty", got)
	}

	handles := form.Files["ownerPhoto"]
	if len(handles) != 1 {
		t.Fatalf("Files[ownerPhoto] has %d handles, want 1", len(handles))
	}
	h := handles[0]
	if h.Filename != "me.png" {
		t.Errorf("Filename = %q, want %q", h.Filename, "me.png")
	}
	if h.Size != int64(len("png-bytes")) {
		t.Errorf("Size = %d, want %d", h.Size, len("png-bytes"))
	}
	data, err := os.ReadFile(h.TempPath)
	if err != nil {
		t.Fatalf("read temp file: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Errorf("temp file content = %q, want %q", data, "png-bytes")
	}
}

func TestParse_MultipleFilesPerField(t *testing.T) {
	body, contentType := multipartRequest(t, nil, []filePart{
		{field: "paymentReceipt", name: "first.pdf", content: []byte("one")},
		{field: "paymentReceipt", name: "second.pdf", content: []byte("two")},
	})

	req := httptest.NewRequest("POST", "/api/register", body)
	req.Header.Set("Content-Type", contentType)

	form, err := Parse(req, Options{TempDir: t.TempDir(), MaxFileSize: 10 << 20})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	handles := form.Files["paymentReceipt"]
	if len(handles) != 2 {
		t.Fatalf("Files[paymentReceipt] has %d handles, want 2", len(handles))
	}
	if handles[0].Filename != "first.pdf" {
		t.Errorf("first handle = %q, want first.pdf (order must be preserved)", handles[0].Filename)
	}
}

func TestParse_FileTooLarge(t *testing.T) {
	big := bytes.Repeat([]byte("x"), 2048)
	body, contentType := multipartRequest(t, nil, []filePart{
		{field: "ownerPhoto", name: "big.bin", content: big},
	})

	req := httptest.NewRequest("POST", "/api/register", body)
	req.Header.Set("Content-Type", contentType)

	tempDir := t.TempDir()
	_, err := Parse(req, Options{TempDir: tempDir, MaxFileSize: 1024})
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("Parse() error = %v, want ErrFileTooLarge", err)
	}

	// Oversized parse must not leave temp files behind.
	entries, readErr := os.ReadDir(tempDir)
	if readErr != nil {
		t.Fatalf("read temp dir: %v", readErr)
	}
	if len(entries) != 0 {
		t.Errorf("temp dir has %d leftover files, want 0", len(entries))
	}
}

func TestParse_LimitBoundary(t *testing.T) {
	exact := bytes.Repeat([]byte("y"), 1024)
	body, contentType := multipartRequest(t, nil, []filePart{
		{field: "ownerPhoto", name: "exact.bin", content: exact},
	})

	req := httptest.NewRequest("POST", "/api/register", body)
	req.Header.Set("Content-Type", contentType)

	form, err := Parse(req, Options{TempDir: t.TempDir(), MaxFileSize: 1024})
	if err != nil {
		t.Fatalf("Parse() error = %v, file at exactly the limit must pass", err)
	}
	if form.Files["ownerPhoto"][0].Size != 1024 {
		t.Errorf("Size = %d, want 1024", form.Files["ownerPhoto"][0].Size)
	}
}

func TestParse_NotMultipart(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/register", strings.NewReader("email=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if _, err := Parse(req, Options{MaxFileSize: 10 << 20}); err == nil {
		t.Fatal("Parse() = nil error for non-multipart body, want error")
	}
}

func TestParse_MalformedBody(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/register", strings.NewReader("--broken\r\ngarbage"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=broken")

	if _, err := Parse(req, Options{TempDir: t.TempDir(), MaxFileSize: 10 << 20}); err == nil {
		t.Fatal("Parse() = nil error for malformed multipart framing, want error")
	}
}

func TestParse_EmptyFileField(t *testing.T) {
	// A file input submitted with no selection arrives as an empty part.
	body, contentType := multipartRequest(t, nil, []filePart{
		{field: "ownerPhoto", name: "empty.png", content: nil},
	})

	req := httptest.NewRequest("POST", "/api/register", body)
	req.Header.Set("Content-Type", contentType)

	form, err := Parse(req, Options{TempDir: t.TempDir(), MaxFileSize: 10 << 20})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	h := form.Files["ownerPhoto"][0]
	if h.Size != 0 {
		t.Errorf("Size = %d, want 0", h.Size)
	}
	if _, err := os.Stat(h.TempPath); err != nil {
		t.Errorf("temp file missing for empty upload: %v", err)
	}
}
