// Package catalog loads the card template catalog from disk. Templates are
// organized one subdirectory per set code, with image files named
// "<set>_<number>[ <card name>][ (<rarity>)].<ext>". Every template is
// normalized to a full-resolution grayscale plus a pre-scaled quick
// thumbnail so the matcher never rescales during a run.
package catalog

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cardcounter/internal/imaging"
	"cardcounter/internal/logging"
	"cardcounter/internal/names"
)

var (
	// ErrDirectoryNotFound indicates the template root does not exist.
	ErrDirectoryNotFound = errors.New("template directory not found")
	// ErrEmptyCatalog indicates no usable templates were found.
	ErrEmptyCatalog = errors.New("template catalog is empty")
)

// Template dimensions. Full resolution drives the detailed pass, the quick
// thumbnail the coarse pass over every set.
const (
	FullWidth  = 367
	FullHeight = 512

	QuickWidth  = 80
	QuickHeight = 113
)

var templateExtensions = map[string]struct{}{
	".webp": {},
	".png":  {},
	".jpg":  {},
	".jpeg": {},
}

// Card identifies one catalog card.
type Card struct {
	Set    string
	Number string
	Name   string
	Rarity string
}

// Code returns the unique card code, e.g. "A1_001".
func (c Card) Code() string {
	return c.Set + "_" + c.Number
}

// Template is one card's reference image in both resolutions.
type Template struct {
	Card  Card
	Full  *image.Gray
	Quick *image.Gray
}

// Catalog holds every loaded template grouped by set.
type Catalog struct {
	sets      map[string][]*Template
	setCodes  []string
	templates int
}

// Load walks the template directory and builds the catalog. Files with
// unrecognized extensions or names are ignored; files that fail to decode
// are logged and skipped. Subdirectory names are set codes.
func Load(dir string, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, dir)
		}
		return nil, fmt.Errorf("stat template directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrDirectoryNotFound, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read template directory: %w", err)
	}

	cat := &Catalog{sets: make(map[string][]*Template)}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		setCode := entry.Name()
		templates, err := loadSet(filepath.Join(dir, setCode), setCode, logger)
		if err != nil {
			return nil, err
		}
		if len(templates) == 0 {
			continue
		}
		cat.sets[setCode] = templates
		cat.templates += len(templates)
	}

	if cat.templates == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyCatalog, dir)
	}

	cat.setCodes = make([]string, 0, len(cat.sets))
	for code := range cat.sets {
		cat.setCodes = append(cat.setCodes, code)
	}
	sort.Strings(cat.setCodes)

	logger.Info("template catalog loaded",
		logging.String("directory", dir),
		logging.Int("sets", len(cat.setCodes)),
		logging.Int("templates", cat.templates))
	return cat, nil
}

func loadSet(dir, setCode string, logger *slog.Logger) ([]*Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read set directory %q: %w", dir, err)
	}

	var templates []*Template
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := templateExtensions[ext]; !ok {
			continue
		}
		card, ok := parseTemplateName(setCode, strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())))
		if !ok {
			logger.Warn("skipping template with unrecognized name",
				logging.String("set", setCode),
				logging.String("file", entry.Name()))
			continue
		}

		path := filepath.Join(dir, entry.Name())
		gray, err := imaging.DecodeGray(path)
		if err != nil {
			logger.Warn("skipping unreadable template",
				logging.String("file", path),
				logging.Error(err))
			continue
		}

		full := imaging.Resize(gray, FullWidth, FullHeight)
		templates = append(templates, &Template{
			Card:  card,
			Full:  full,
			Quick: imaging.Resize(full, QuickWidth, QuickHeight),
		})
	}

	sort.Slice(templates, func(i, j int) bool {
		return templates[i].Card.Number < templates[j].Card.Number
	})
	return templates, nil
}

// parseTemplateName splits a template file stem into its card identity.
// The stem must start with "<set>_<number>"; an optional display name and a
// trailing parenthesized rarity code may follow.
func parseTemplateName(setCode, stem string) (Card, bool) {
	prefix := setCode + "_"
	if !strings.HasPrefix(stem, prefix) {
		return Card{}, false
	}
	rest := strings.TrimPrefix(stem, prefix)
	if rest == "" {
		return Card{}, false
	}

	number := rest
	remainder := ""
	if idx := strings.IndexAny(rest, " _"); idx >= 0 {
		number = rest[:idx]
		remainder = strings.TrimSpace(strings.ReplaceAll(rest[idx+1:], "_", " "))
	}
	if number == "" {
		return Card{}, false
	}

	card := Card{Set: setCode, Number: number}
	if remainder != "" {
		card.Name, card.Rarity = names.SplitRarity(remainder)
	}
	if card.Name == "" {
		card.Name = card.Code()
	}
	return card, true
}

// Sets returns the loaded set codes in sorted order.
func (c *Catalog) Sets() []string {
	return c.setCodes
}

// Set returns the templates for one set, ordered by card number.
func (c *Catalog) Set(code string) []*Template {
	return c.sets[code]
}

// Len returns the total number of templates.
func (c *Catalog) Len() int {
	return c.templates
}

// All iterates every template in set order then number order. Iteration
// order is stable across runs so matching stays deterministic.
func (c *Catalog) All(fn func(*Template) bool) {
	for _, code := range c.setCodes {
		for _, tpl := range c.sets[code] {
			if !fn(tpl) {
				return
			}
		}
	}
}
