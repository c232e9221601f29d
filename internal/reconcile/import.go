package reconcile

import (
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"cardcounter/internal/ledger"
	"cardcounter/internal/logging"
	"cardcounter/internal/names"
)

// importBatchSize is how many snapshot rows are merged per transaction.
const importBatchSize = 100

// unknownAccount labels rows whose account columns are all blank.
const unknownAccount = "Account Unknown"

// ImportSummary is the result of a snapshot import.
type ImportSummary struct {
	RowsRead      int
	PacksImported int
	NewCount      int
}

// ImportSnapshot merges a re-exported account CSV into the ledger. Each row
// is one pack: an account, the pack's cards with their counts, and the
// account's shinedust balance. Rows whose pack filename is already recorded
// are idempotent no-ops (with metadata backfill); an import never decreases
// a quantity.
func (m *Merger) ImportSnapshot(ctx context.Context, path string) (ImportSummary, error) {
	file, err := os.Open(path)
	if err != nil {
		return ImportSummary{}, fmt.Errorf("open snapshot: %w", err)
	}
	defer file.Close()

	var summary ImportSummary
	err = m.withRunLock(func() error {
		summary, err = m.importFrom(ctx, file)
		return err
	})
	return summary, err
}

func (m *Merger) importFrom(ctx context.Context, r io.Reader) (ImportSummary, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return ImportSummary{}, fmt.Errorf("read snapshot header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := columns["originalfilename"]; !ok {
		return ImportSummary{}, fmt.Errorf("snapshot header is missing OriginalFilename: %v", header)
	}

	field := func(row []string, name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var (
		summary ImportSummary
		batch   []ledger.PackImport
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		packs, cards, err := m.store.ImportPacks(ctx, batch)
		if err != nil {
			return err
		}
		summary.PacksImported += packs
		summary.NewCount += cards
		batch = batch[:0]
		return nil
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return ImportSummary{}, fmt.Errorf("read snapshot row: %w", err)
		}
		summary.RowsRead++

		pack, ok := m.parseRow(row, field)
		if !ok {
			continue
		}
		batch = append(batch, pack)
		if len(batch) >= importBatchSize {
			if err := flush(); err != nil {
				return ImportSummary{}, err
			}
		}
	}
	if err := flush(); err != nil {
		return ImportSummary{}, err
	}

	m.logger.Info("snapshot imported",
		logging.Int("rows", summary.RowsRead),
		logging.Int("packs", summary.PacksImported),
		logging.Int("cards", summary.NewCount))
	return summary, nil
}

func (m *Merger) parseRow(row []string, field func([]string, string) string) (ledger.PackImport, bool) {
	filename := field(row, "originalfilename")
	if filename == "" {
		return ledger.PackImport{}, false
	}

	packType := field(row, "packtype")
	pack := ledger.PackImport{
		AccountName: resolveAccount(
			field(row, "cleanfilename"),
			field(row, "deviceaccount"),
			field(row, "account"),
		),
		Screenshot: ledger.Screenshot{
			Fingerprint:      importFingerprint(filename),
			OriginalFilename: filename,
			CleanFilename:    field(row, "cleanfilename"),
			PackType:         packType,
			CreatedAt:        parseTimestamp(field(row, "timestamp")),
		},
	}

	if raw := field(row, "shinedust"); raw != "" {
		if balance, err := strconv.ParseInt(strings.ReplaceAll(raw, ",", ""), 10, 64); err == nil {
			pack.Shinedust = &balance
		}
	}

	setCode := names.SetForPack(packType)
	types := splitList(field(row, "cardtypes"))
	counts := splitList(field(row, "cardcounts"))
	position := 0
	for i, rawName := range types {
		count := 1
		if i < len(counts) {
			if n, err := strconv.Atoi(counts[i]); err == nil && n > 0 {
				count = n
			}
		}
		bare, rarity := names.SplitRarity(rawName)
		if bare == "" {
			continue
		}
		for j := 0; j < count; j++ {
			pack.Cards = append(pack.Cards, ledger.CardObservation{
				Card: ledger.Card{
					SetCode: setCode,
					Number:  bare,
					Name:    bare,
					Rarity:  rarity,
				},
				Position: position,
			})
			position++
		}
	}
	return pack, true
}

// resolveAccount picks the account name the way the exporter populates its
// columns: clean filename first, then device account, then account.
func resolveAccount(candidates ...string) string {
	for _, candidate := range candidates {
		if candidate != "" {
			return candidate
		}
	}
	return unknownAccount
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseTimestamp(value string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "20060102150405"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

// importFingerprint keys a snapshot row on its pack filename. CSV rows have
// no file contents, so the fingerprint domain is kept separate from the
// scanner's.
func importFingerprint(filename string) string {
	sum := sha256.Sum256([]byte("csv\x00" + filename))
	return hex.EncodeToString(sum[:])
}
