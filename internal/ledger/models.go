package ledger

import "time"

// ScreenshotStatus tracks how a screenshot reached the ledger.
type ScreenshotStatus string

const (
	// StatusMatched means at least one card was identified in the image.
	StatusMatched ScreenshotStatus = "matched"
	// StatusEmpty means the image was processed but yielded no cards,
	// including blank screenshots too small to contain a pack.
	StatusEmpty ScreenshotStatus = "empty"
	// StatusFailed means processing hit an unrecoverable per-image error.
	// The fingerprint is still recorded so the file is not retried.
	StatusFailed ScreenshotStatus = "failed"
	// StatusImported means the row came from a CSV snapshot rather than
	// the matcher, so per-card confidences are absent.
	StatusImported ScreenshotStatus = "imported"
)

// Account is a device account that owns packs and a shinedust balance.
type Account struct {
	ID        int64
	Name      string
	Shinedust int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Card identifies a catalog card. Rarity may be empty when the template
// filename carried no rarity code.
type Card struct {
	ID      int64
	SetCode string
	Number  string
	Name    string
	Rarity  string
}

// Screenshot records one processed image and its outcome.
type Screenshot struct {
	ID               int64
	Fingerprint      string
	OriginalFilename string
	CleanFilename    string
	AccountID        int64
	AccountName      string
	PackType         string
	Status           ScreenshotStatus
	CardCount        int
	CreatedAt        time.Time
	ProcessedAt      *time.Time
}

// CardObservation is one identified card within a screenshot.
type CardObservation struct {
	Card       Card
	Position   int
	Confidence float64
}

// Holding is a derived quantity: how many live provenance rows an account
// has for one card.
type Holding struct {
	Card  Card
	Count int64
}

// Removal is a shinedust-funded request to remove one instance of a card
// from an account. Processed removals have been applied to provenance.
type Removal struct {
	ID          int64
	AccountID   int64
	AccountName string
	Card        Card
	TierCost    int64
	Forced      bool
	Processed   bool
	CreatedAt   time.Time
	ProcessedAt *time.Time
}
