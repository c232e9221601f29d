package pipeline

import (
	"context"
	"path/filepath"
	"strings"

	"cardcounter/internal/ledger"
	"cardcounter/internal/logging"
	"cardcounter/internal/names"
	"cardcounter/internal/scanner"
)

// persist records one outcome. Persistence survives cancellation so work
// already done by a worker is never thrown away.
func (p *Pipeline) persist(ctx context.Context, out outcome, summary *Summary) {
	ctx = context.WithoutCancel(ctx)

	if out.err != nil {
		summary.Errors++
		p.logger.Error(out.err.Error(), logging.String("file", out.candidate.Name))
	}

	shot := ledger.Screenshot{
		Fingerprint:      out.candidate.Fingerprint,
		OriginalFilename: out.candidate.Name,
		CleanFilename:    cleanFilename(out.candidate.Name),
		PackType:         packType(out),
		Status:           out.status,
	}

	if account := accountName(out.candidate.Name); account != "" {
		acct, err := p.store.EnsureAccount(ctx, account)
		if err != nil {
			summary.Errors++
			p.logger.Error("cannot resolve account",
				logging.String("account", account),
				logging.Error(err))
		} else {
			shot.AccountID = acct.ID
		}
	}

	if _, err := p.store.RecordScreenshot(ctx, shot, out.cards); err != nil {
		summary.Errors++
		p.logger.Error("cannot record screenshot",
			logging.String("file", out.candidate.Name),
			logging.Error(err))
		return
	}

	if out.status == ledger.StatusMatched {
		summary.Matched++
	}
}

// accountName extracts the device-account name from an exporter filename.
// Exporter accounts are named after their creation timestamp, which is also
// the screenshot filename prefix.
func accountName(filename string) string {
	if _, ok := scanner.CaptureTime(filename); !ok {
		return ""
	}
	return filename[:14]
}

// cleanFilename strips the extension and the timestamp prefix.
func cleanFilename(filename string) string {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	if _, ok := scanner.CaptureTime(filename); ok {
		stem = strings.TrimPrefix(stem[14:], "_")
	}
	return stem
}

// packType labels a screenshot. The majority set of the matched cards wins;
// otherwise a pack name is salvaged from the filename.
func packType(out outcome) string {
	counts := make(map[string]int)
	var majority string
	for _, obs := range out.cards {
		counts[obs.Card.SetCode]++
		if majority == "" || counts[obs.Card.SetCode] > counts[majority] {
			majority = obs.Card.SetCode
		}
	}
	if majority != "" {
		return names.SetName(majority)
	}
	return packNameFromFilename(out.candidate.Name)
}

// packNameFromFilename turns "20251206235802_1_Tradeable_11_packs.png" into
// "Tradeable 11 packs": drop the timestamp and any leading index tokens,
// join the rest with spaces.
func packNameFromFilename(filename string) string {
	stem := cleanFilename(filename)
	if stem == "" {
		return ""
	}
	tokens := strings.Split(stem, "_")
	for len(tokens) > 0 && isDigits(tokens[0]) {
		tokens = tokens[1:]
	}
	return strings.Join(tokens, " ")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
