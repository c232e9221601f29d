// Package match identifies the cards in a pack screenshot by correlating
// fixed layout regions against the template catalog. Matching is two-stage:
// a quick thumbnail pass across every set picks the likely set, then a
// detailed full-resolution pass within that set settles the card.
package match

import (
	"image"
	"log/slog"
	"sort"

	"cardcounter/internal/catalog"
	"cardcounter/internal/imaging"
	"cardcounter/internal/logging"
)

// Thresholds the matcher defaults to when the config leaves them zero.
const (
	DefaultConfidenceFloor = 0.2
	DefaultQuickAccept     = 0.9
	DefaultEpsilon         = 0.005
)

// Observation is the outcome for one layout region.
type Observation struct {
	Region     image.Rectangle
	Card       *catalog.Card
	Confidence float64
	// Ambiguous is set when two distinct cards scored within epsilon and
	// the prior set could not break the tie. The region counts as NoMatch.
	Ambiguous bool
}

// Matched reports whether the region resolved to a card.
func (o Observation) Matched() bool {
	return o.Card != nil
}

// Result is the outcome for one screenshot.
type Result struct {
	Observations []Observation
	// MajoritySet is the set code most of the matched regions agree on;
	// empty when nothing matched.
	MajoritySet string
}

// Cards returns the matched cards in region order.
func (r Result) Cards() []*catalog.Card {
	var cards []*catalog.Card
	for _, obs := range r.Observations {
		if obs.Matched() {
			cards = append(cards, obs.Card)
		}
	}
	return cards
}

// Config tunes the matcher thresholds. Zero values fall back to defaults.
type Config struct {
	ConfidenceFloor float64
	QuickAccept     float64
	Epsilon         float64
}

// Matcher matches screenshot regions against a loaded catalog.
type Matcher struct {
	catalog *catalog.Catalog
	layout  Layout
	floor   float64
	quick   float64
	epsilon float64
	logger  *slog.Logger
}

// New builds a matcher over a catalog. A nil layout uses the standard pack
// layout.
func New(cat *catalog.Catalog, layout Layout, cfg Config, logger *slog.Logger) *Matcher {
	if layout == nil {
		layout = StandardLayout{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	floor := cfg.ConfidenceFloor
	if floor == 0 {
		floor = DefaultConfidenceFloor
	}
	quick := cfg.QuickAccept
	if quick == 0 {
		quick = DefaultQuickAccept
	}
	epsilon := cfg.Epsilon
	if epsilon == 0 {
		epsilon = DefaultEpsilon
	}
	return &Matcher{
		catalog: cat,
		layout:  layout,
		floor:   floor,
		quick:   quick,
		epsilon: epsilon,
		logger:  logger,
	}
}

// Screenshot matches every layout region of img. The prior set carries card
// codes already confirmed in this context; it breaks score ties instead of
// guessing. After the first pass, regions whose set disagrees with the
// majority are re-matched within the majority set.
func (m *Matcher) Screenshot(img *image.Gray, prior map[string]struct{}) Result {
	regions := m.layout.Regions(img)
	result := Result{Observations: make([]Observation, 0, len(regions))}

	for _, region := range regions {
		crop := imaging.Crop(img, region)
		obs := m.matchRegion(crop, prior)
		obs.Region = region
		result.Observations = append(result.Observations, obs)
	}

	result.MajoritySet = majoritySet(result.Observations)
	if result.MajoritySet != "" {
		m.rescanOutliers(img, &result, prior)
	}
	return result
}

func (m *Matcher) rescanOutliers(img *image.Gray, result *Result, prior map[string]struct{}) {
	for i, obs := range result.Observations {
		if !obs.Matched() || obs.Card.Set == result.MajoritySet {
			continue
		}
		crop := imaging.Crop(img, obs.Region)
		replacement := m.detailedPass(crop, result.MajoritySet, prior)
		if replacement.Matched() {
			m.logger.Debug("outlier region re-matched into majority set",
				logging.String("was", obs.Card.Code()),
				logging.String("now", replacement.Card.Code()),
				logging.Float64("confidence", replacement.Confidence))
			replacement.Region = obs.Region
			result.Observations[i] = replacement
		}
	}
}

func (m *Matcher) matchRegion(crop *image.Gray, prior map[string]struct{}) Observation {
	quick := imaging.Resize(crop, catalog.QuickWidth, catalog.QuickHeight)

	var (
		bestTpl   *catalog.Template
		bestScore float64
	)
	m.catalog.All(func(tpl *catalog.Template) bool {
		score := imaging.Correlate(quick, tpl.Quick)
		if score > bestScore {
			bestScore = score
			bestTpl = tpl
		}
		return true
	})
	if bestTpl == nil {
		return Observation{}
	}

	// A confident quick hit skips the detailed pass entirely.
	if bestScore >= m.quick {
		card := bestTpl.Card
		return Observation{Card: &card, Confidence: bestScore}
	}

	return m.detailedPass(crop, bestTpl.Card.Set, prior)
}

// detailedPass matches a region crop at full resolution within one set.
func (m *Matcher) detailedPass(crop *image.Gray, setCode string, prior map[string]struct{}) Observation {
	full := imaging.Resize(crop, catalog.FullWidth, catalog.FullHeight)

	type scored struct {
		tpl   *catalog.Template
		score float64
	}
	var candidates []scored
	for _, tpl := range m.catalog.Set(setCode) {
		candidates = append(candidates, scored{tpl, imaging.Correlate(full, tpl.Full)})
	}
	if len(candidates) == 0 {
		return Observation{}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	best := candidates[0]
	if best.score < m.floor {
		return Observation{Confidence: best.score}
	}

	// Ambiguity check against the nearest distinct card.
	for _, runner := range candidates[1:] {
		if runner.tpl.Card.Code() == best.tpl.Card.Code() {
			continue
		}
		if best.score-runner.score >= m.epsilon {
			break
		}
		if pick, ok := breakTie(best.tpl, runner.tpl, prior); ok {
			card := pick.Card
			return Observation{Card: &card, Confidence: best.score}
		}
		m.logger.Warn("ambiguous card match",
			logging.String("set", setCode),
			logging.String("first", best.tpl.Card.Code()),
			logging.String("second", runner.tpl.Card.Code()),
			logging.Float64("score", best.score))
		return Observation{Confidence: best.score, Ambiguous: true}
	}

	card := best.tpl.Card
	return Observation{Card: &card, Confidence: best.score}
}

// breakTie consults the prior-match set. Exactly one of the two cards being
// previously confirmed picks it; anything else stays ambiguous.
func breakTie(a, b *catalog.Template, prior map[string]struct{}) (*catalog.Template, bool) {
	if len(prior) == 0 {
		return nil, false
	}
	_, hasA := prior[a.Card.Code()]
	_, hasB := prior[b.Card.Code()]
	switch {
	case hasA && !hasB:
		return a, true
	case hasB && !hasA:
		return b, true
	default:
		return nil, false
	}
}

func majoritySet(observations []Observation) string {
	counts := make(map[string]int)
	for _, obs := range observations {
		if obs.Matched() {
			counts[obs.Card.Set]++
		}
	}
	var (
		winner string
		most   int
	)
	for _, obs := range observations {
		if !obs.Matched() {
			continue
		}
		set := obs.Card.Set
		if counts[set] > most {
			most = counts[set]
			winner = set
		}
	}
	return winner
}
