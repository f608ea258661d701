package security

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	dir := t.TempDir()

	if err := ValidatePathWithinDirectory(filepath.Join(dir, "out.wav"), dir); err != nil {
		t.Errorf("path inside dir rejected: %v", err)
	}
	if err := ValidatePathWithinDirectory(filepath.Join(dir, "sub", "out.wav"), dir); err != nil {
		t.Errorf("nonexistent path inside dir rejected: %v", err)
	}
	if err := ValidatePathWithinDirectory(filepath.Join(dir, "..", "escape.wav"), dir); err == nil {
		t.Error("dot-dot escape accepted")
	}
	if err := ValidatePathWithinDirectory("/etc/passwd", dir); err == nil {
		t.Error("absolute path outside dir accepted")
	}
}

func TestValidatePathWithinDirectorySymlinkEscape(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()

	link := filepath.Join(dir, "link")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	if err := ValidatePathWithinDirectory(filepath.Join(link, "out.wav"), dir); err == nil {
		t.Error("symlinked escape accepted")
	}
}

func TestValidateWritePath(t *testing.T) {
	if err := ValidateWritePath(filepath.Join(os.TempDir(), "tap.wav")); err != nil {
		t.Errorf("temp-dir path rejected: %v", err)
	}
	if err := ValidateWritePath("tap.wav"); err != nil {
		t.Errorf("working-dir path rejected: %v", err)
	}
	if err := ValidateWritePath("/no/such/root/tap.wav"); err == nil {
		t.Error("path outside allowed roots accepted")
	}
}
