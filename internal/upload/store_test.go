package upload

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/pns-society/membership-api/internal/ingest"
)

func tempHandle(t *testing.T, name, content string) *ingest.FileHandle {
	t.Helper()
	tmp, err := os.CreateTemp(t.TempDir(), "src-*")
	if err != nil {
		t.Fatalf("create temp: %v", err)
	}
	if _, err := tmp.WriteString(content); err != nil {
		t.Fatalf("write temp: %v", err)
	}
	if err := tmp.Close(); err != nil {
		t.Fatalf("close temp: %v", err)
	}
	return &ingest.FileHandle{Filename: name, TempPath: tmp.Name(), Size: int64(len(content))}
}

func TestMaterialize_MovesFileAndReturnsReference(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, "/uploads")

	h := tempHandle(t, "tax receipt 2025.pdf", "receipt-bytes")
	ref, err := store.Materialize([]*ingest.FileHandle{h}, "ownershipProof")
	if err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}
	if ref == nil {
		t.Fatal("Materialize() reference = nil, want path")
	}

	wantPattern := regexp.MustCompile(`^/uploads/\d+-ownershipProof-tax_receipt_2025\.pdf\.pdf$`)
	if !wantPattern.MatchString(*ref) {
		t.Errorf("reference = %q, want match for %s", *ref, wantPattern)
	}

	// The temp file must be gone and the destination must hold the bytes.
	if _, err := os.Stat(h.TempPath); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("temp file still exists after relocation")
	}
	dest := filepath.Join(dir, strings.TrimPrefix(*ref, "/uploads/"))
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read destination: %v", err)
	}
	if string(data) != "receipt-bytes" {
		t.Errorf("destination content = %q, want %q", data, "receipt-bytes")
	}
}

func TestMaterialize_NoFile(t *testing.T) {
	store := NewStore(t.TempDir(), "/uploads")

	tests := []struct {
		name    string
		handles []*ingest.FileHandle
	}{
		{name: "nil slot", handles: nil},
		{name: "empty slot", handles: []*ingest.FileHandle{}},
		{name: "handle without temp path", handles: []*ingest.FileHandle{{Filename: "x.png"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := store.Materialize(tt.handles, "ownerPhoto")
			if err != nil {
				t.Fatalf("Materialize() error = %v, want nil", err)
			}
			if ref != nil {
				t.Errorf("reference = %q, want nil", *ref)
			}
		})
	}
}

func TestMaterialize_PicksFirstOfMany(t *testing.T) {
	store := NewStore(t.TempDir(), "/uploads")

	first := tempHandle(t, "first.png", "first")
	second := tempHandle(t, "second.png", "second")

	ref, err := store.Materialize([]*ingest.FileHandle{first, second}, "ownerPhoto")
	if err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}
	if !strings.Contains(*ref, "first.png") {
		t.Errorf("reference = %q, want first handle's name", *ref)
	}
	// Second handle stays in temp storage untouched.
	if _, err := os.Stat(second.TempPath); err != nil {
		t.Errorf("second temp file should be untouched: %v", err)
	}
}

func TestMaterialize_CreatesDestinationDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "uploads")
	store := NewStore(dir, "/uploads")

	h := tempHandle(t, "photo.jpg", "jpg")
	if _, err := store.Materialize([]*ingest.FileHandle{h}, "ownerPhoto"); err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("destination dir not created: %v", err)
	}
}

type failingRelocator struct {
	ensureErr   error
	relocateErr error
}

func (f failingRelocator) EnsureDir(string) error     { return f.ensureErr }
func (f failingRelocator) Relocate(_, _ string) error { return f.relocateErr }

func TestMaterialize_RelocationErrorPropagates(t *testing.T) {
	wantErr := fmt.Errorf("disk on fire")
	store := NewStoreWithRelocator(t.TempDir(), "/uploads", failingRelocator{relocateErr: wantErr})

	h := tempHandle(t, "photo.jpg", "jpg")
	_, err := store.Materialize([]*ingest.FileHandle{h}, "ownerPhoto")
	if !errors.Is(err, wantErr) {
		t.Fatalf("Materialize() error = %v, want wrapped %v", err, wantErr)
	}
}

func TestMaterialize_EnsureDirErrorPropagates(t *testing.T) {
	wantErr := fmt.Errorf("permission denied")
	store := NewStoreWithRelocator(t.TempDir(), "/uploads", failingRelocator{ensureErr: wantErr})

	h := tempHandle(t, "photo.jpg", "jpg")
	if _, err := store.Materialize([]*ingest.FileHandle{h}, "ownerPhoto"); !errors.Is(err, wantErr) {
		t.Fatalf("Materialize() error = %v, want wrapped %v", err, wantErr)
	}
}

func TestDestName(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		original string
		want     string
	}{
		{
			name:     "simple name",
			field:    "ownerPhoto",
			original: "me.png",
			want:     "1700000000000-ownerPhoto-me.png.png",
		},
		{
			name:     "whitespace runs collapse to single underscore",
			field:    "ownershipProof",
			original: "tax  receipt\t2025.pdf",
			want:     "1700000000000-ownershipProof-tax_receipt_2025.pdf.pdf",
		},
		{
			name:     "missing filename falls back to file",
			field:    "paymentReceipt",
			original: "",
			want:     "1700000000000-paymentReceipt-file",
		},
		{
			name:     "long name truncated to 40 runes",
			field:    "ownerPhoto",
			original: strings.Repeat("a", 60) + ".jpg",
			want:     "1700000000000-ownerPhoto-" + strings.Repeat("a", 40) + ".jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := destName(tt.field, tt.original, 1700000000000)
			if got != tt.want {
				t.Errorf("destName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDestName_DistinctAcrossTimestamps(t *testing.T) {
	a := destName("ownerPhoto", "me.png", 1700000000000)
	b := destName("ownerPhoto", "me.png", 1700000000001)
	if a == b {
		t.Errorf("names for different milliseconds collided: %q", a)
	}
}

func TestDiskRelocator_Rename(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	if err := os.WriteFile(src, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := (DiskRelocator{}).Relocate(src, dst); err != nil {
		t.Fatalf("Relocate() error = %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read dst: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("dst content = %q, want %q", data, "payload")
	}
}

func TestDiskRelocator_MissingSource(t *testing.T) {
	dir := t.TempDir()
	err := (DiskRelocator{}).Relocate(filepath.Join(dir, "nope"), filepath.Join(dir, "dst"))
	if err == nil {
		t.Fatal("Relocate() = nil for missing source, want error")
	}
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	if err := os.WriteFile(src, []byte("copied"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := copyFile(src, dst); err != nil {
		t.Fatalf("copyFile() error = %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "copied" {
		t.Errorf("dst content = %q, want %q", data, "copied")
	}
	// copyFile leaves the source in place; Relocate owns the delete.
	if _, err := os.Stat(src); err != nil {
		t.Errorf("source removed by copyFile: %v", err)
	}
}
