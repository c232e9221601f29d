package fileutil

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
)

// Fingerprint derives a stable identifier for a screenshot file from its
// base name and size. Modification time is deliberately excluded: exporters
// re-copy screenshot directories wholesale, which rewrites mtimes without
// changing content.
func Fingerprint(path string, info fs.FileInfo) string {
	h := sha256.New()
	h.Write([]byte(filepath.Base(path)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(info.Size(), 10)))
	return hex.EncodeToString(h.Sum(nil))
}

// FingerprintFile stats path and returns its fingerprint.
func FingerprintFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	return Fingerprint(path, info), nil
}

// CopyFileVerified copies src to dst for backups. The copy is staged in a
// temporary file next to dst, its bytes re-read and checked against the
// digest of what was written, then renamed into place. A failed or corrupt
// copy never appears at dst.
func CopyFileVerified(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".partial-*")
	if err != nil {
		return fmt.Errorf("stage copy: %w", err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	wrote := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, wrote), in); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync copy: %w", err)
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind copy: %w", err)
	}
	read := sha256.New()
	if _, err := io.Copy(read, tmp); err != nil {
		return fmt.Errorf("reread copy: %w", err)
	}
	if !bytes.Equal(wrote.Sum(nil), read.Sum(nil)) {
		return fmt.Errorf("verify copy of %s: digest mismatch", src)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close copy: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("finalize copy: %w", err)
	}
	return nil
}
