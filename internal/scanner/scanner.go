// Package scanner walks a screenshot directory and streams the files that
// still need processing: recognized image extensions, minus fingerprints
// the ledger already knows, minus screenshots captured before the era
// cutoff.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cardcounter/internal/fileutil"
	"cardcounter/internal/logging"
)

// ErrDirectoryNotFound indicates the screenshot root does not exist.
var ErrDirectoryNotFound = errors.New("screenshot directory not found")

// progressInterval is how many directory entries pass between progress
// callbacks.
const progressInterval = 500

var imageExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".webp": {},
	".bmp":  {},
	".gif":  {},
}

// timestampPrefixLen is the length of the YYYYMMDDHHMMSS capture timestamp
// that exporter filenames begin with.
const timestampPrefixLen = 14

const timestampLayout = "20060102150405"

// Candidate is one screenshot that needs processing.
type Candidate struct {
	Path        string
	Name        string
	Size        int64
	Fingerprint string
}

// Summary counts the outcome of a directory walk.
type Summary struct {
	Scanned       int
	New           int
	SkippedKnown  int
	SkippedPreEra int
}

// Options controls a scan.
type Options struct {
	// Known fingerprints are skipped without re-reading the file.
	Known map[string]struct{}
	// KnownNames skips files by base name. Snapshot-imported packs are only
	// known by filename, never by content fingerprint.
	KnownNames map[string]struct{}
	// EraCutoff skips screenshots whose timestamped filenames predate it.
	// Zero disables the rule.
	EraCutoff time.Time
	// Progress, when set, receives a running summary every 500 entries.
	Progress func(Summary)
	Logger   *slog.Logger
}

// Scan walks dir and sends new candidates on the returned channel. The
// summary channel receives exactly one value once the candidate channel is
// closed. Scan returns an error only for problems detected up front; a
// cancelled context closes both channels early.
func Scan(ctx context.Context, dir string, opts Options) (<-chan Candidate, <-chan Summary, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, dir)
		}
		return nil, nil, fmt.Errorf("stat screenshot directory: %w", err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("%w: %s is not a directory", ErrDirectoryNotFound, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read screenshot directory: %w", err)
	}

	candidates := make(chan Candidate)
	summaryCh := make(chan Summary, 1)

	go func() {
		defer close(candidates)
		defer close(summaryCh)

		var summary Summary
		for _, entry := range entries {
			if ctx.Err() != nil {
				break
			}
			if entry.IsDir() {
				continue
			}
			name := entry.Name()
			ext := strings.ToLower(filepath.Ext(name))
			if _, ok := imageExtensions[ext]; !ok {
				continue
			}

			summary.Scanned++
			if summary.Scanned%progressInterval == 0 && opts.Progress != nil {
				opts.Progress(summary)
			}

			if skipPreEra(name, opts.EraCutoff) {
				summary.SkippedPreEra++
				continue
			}

			if _, known := opts.KnownNames[name]; known {
				summary.SkippedKnown++
				continue
			}

			fileInfo, err := entry.Info()
			if err != nil {
				logger.Warn("skipping unreadable screenshot",
					logging.String("file", name),
					logging.Error(err))
				continue
			}

			fingerprint := fileutil.Fingerprint(filepath.Join(dir, name), fileInfo)
			if _, known := opts.Known[fingerprint]; known {
				summary.SkippedKnown++
				continue
			}

			summary.New++
			select {
			case candidates <- Candidate{
				Path:        filepath.Join(dir, name),
				Name:        name,
				Size:        fileInfo.Size(),
				Fingerprint: fingerprint,
			}:
			case <-ctx.Done():
				summaryCh <- summary
				return
			}
		}
		if opts.Progress != nil {
			opts.Progress(summary)
		}
		summaryCh <- summary
	}()

	return candidates, summaryCh, nil
}

func skipPreEra(name string, cutoff time.Time) bool {
	if cutoff.IsZero() {
		return false
	}
	captured, ok := CaptureTime(name)
	if !ok {
		return false
	}
	return captured.Before(cutoff)
}

// CaptureTime parses the YYYYMMDDHHMMSS prefix of an exporter filename.
func CaptureTime(name string) (time.Time, bool) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if len(base) < timestampPrefixLen {
		return time.Time{}, false
	}
	prefix := base[:timestampPrefixLen]
	for _, r := range prefix {
		if r < '0' || r > '9' {
			return time.Time{}, false
		}
	}
	captured, err := time.Parse(timestampLayout, prefix)
	if err != nil {
		return time.Time{}, false
	}
	return captured, true
}
