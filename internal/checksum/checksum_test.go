package checksum

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "f.bin")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestMD5Sum(t *testing.T) {
	path := writeTemp(t, "hello world")
	v, err := New(MD5)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sum, err := v.Sum(path)
	if err != nil {
		t.Fatalf("Sum: %v", err)
	}
	if sum != "5eb63bbbe01eeed093cb22bb8f5acdc3" {
		t.Fatalf("unexpected md5: %s", sum)
	}
}

func TestSHA1Verify(t *testing.T) {
	path := writeTemp(t, "hello world")
	v, err := New(SHA1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ok, err := v.Verify(path, "2AAE6C35C94FCFB415DBE95F408B9CE91EE846ED")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatalf("expected checksum to match case-insensitively")
	}

	ok, err = v.Verify(path, "deadbeef")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatalf("expected mismatch")
	}
}

func TestVerifyEmptyWantAlwaysPasses(t *testing.T) {
	path := writeTemp(t, "anything")
	v, _ := New(MD5)
	ok, err := v.Verify(path, "")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatalf("expected empty want to verify trivially")
	}
}

func TestNewUnsupportedAlgorithm(t *testing.T) {
	if _, err := New("sha256"); err == nil {
		t.Fatalf("expected error for unsupported algorithm")
	}
}
