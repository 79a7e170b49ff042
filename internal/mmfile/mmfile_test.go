package mmfile

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "code.o")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestOpen(t *testing.T) {
	want := []byte{0x7f, 'E', 'L', 'F', 0x02}
	f, err := Open(writeFile(t, want), 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if f.Len() != len(want) {
		t.Fatalf("len mismatch: got %d want %d", f.Len(), len(want))
	}
	for i, b := range want {
		if f.Bytes()[i] != b {
			t.Fatalf("byte %d mismatch: got 0x%x want 0x%x", i, f.Bytes()[i], b)
		}
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if f.Bytes() != nil {
		t.Fatalf("Bytes after Close should be nil")
	}
}

func TestOpenZeroLength(t *testing.T) {
	f, err := Open(writeFile(t, nil), 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if f.Len() != 0 {
		t.Fatalf("expected zero-length mapping, got %d", f.Len())
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestOpenLimits(t *testing.T) {
	path := writeFile(t, make([]byte, 64))
	if _, err := Open(path, 63); err == nil {
		t.Fatalf("expected size limit error")
	}
	f, err := Open(path, 64)
	if err != nil {
		t.Fatalf("Open at limit: %v", err)
	}
	f.Close()

	if _, err := Open(t.TempDir(), 0); err == nil {
		t.Fatalf("expected error for directory")
	}
	if _, err := Open(filepath.Join(t.TempDir(), "missing"), 0); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestNilFile(t *testing.T) {
	var f *File
	if f.Bytes() != nil || f.Len() != 0 {
		t.Fatalf("nil file should be empty")
	}
	if err := f.Close(); err != nil {
		t.Fatalf("nil Close: %v", err)
	}
}
