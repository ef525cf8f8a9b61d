package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile fills path with size bytes of filler. A size <= 0 writes a single
// byte so the file always exists and is non-empty.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()
	WriteFixture(t, path, string(bytes.Repeat([]byte{0x42}, int(max(size, 1)))))
}

// WriteFixture writes content to path, creating parent directories, and
// returns the absolute path for use in stub scripts.
func WriteFixture(t testing.TB, path, content string) string {
	t.Helper()
	abs, err := filepath.Abs(path)
	if err != nil {
		t.Fatalf("abs %s: %v", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", abs, err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", abs, err)
	}
	return abs
}
