package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFingerprintStableAcrossCopies(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "20260101000000_1_Pikachu.png")
	if err := os.WriteFile(path, []byte("pixels"), 0o644); err != nil {
		t.Fatal(err)
	}

	first, err := FingerprintFile(path)
	if err != nil {
		t.Fatal(err)
	}

	// Rewriting the same content updates mtime but must not change the
	// fingerprint.
	if err := os.WriteFile(path, []byte("pixelz"[:6]), 0o644); err != nil {
		t.Fatal(err)
	}
	second, err := FingerprintFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatalf("fingerprint changed across rewrite: %s vs %s", first, second)
	}
}

func TestFingerprintDiffersBySize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shot.png")
	if err := os.WriteFile(path, []byte("aa"), 0o644); err != nil {
		t.Fatal(err)
	}
	small, err := FingerprintFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("aaaa"), 0o644); err != nil {
		t.Fatal(err)
	}
	large, err := FingerprintFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if small == large {
		t.Fatal("fingerprints of different sizes should differ")
	}
}

func TestCopyFileVerified(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "ledger.db")
	dst := filepath.Join(dir, "ledger.db.bak")

	content := []byte("verified copy content")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CopyFileVerified(src, dst); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q", got)
	}

	// No staging files left next to the destination.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("unexpected leftovers: %v", entries)
	}
}

func TestCopyFileVerifiedMissingSource(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "ledger.db.bak")

	if err := CopyFileVerified(filepath.Join(dir, "absent.db"), dst); err == nil {
		t.Fatal("expected error for missing source")
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Fatalf("destination should not exist, stat err = %v", err)
	}
}
