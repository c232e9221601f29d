// Package pipeline runs a full batch over a screenshot directory: scan for
// new files, load the template catalog, match cards with a worker pool, and
// persist results through a single coordinator so the ledger only ever sees
// one writer.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/gofrs/flock"

	"cardcounter/internal/catalog"
	"cardcounter/internal/config"
	"cardcounter/internal/ledger"
	"cardcounter/internal/logging"
	"cardcounter/internal/match"
	"cardcounter/internal/scanner"
)

// Stage identifies where a run currently is.
type Stage string

const (
	StageScanning         Stage = "scanning"
	StageTemplatesLoading Stage = "templates-loading"
	StageMatching         Stage = "matching"
	StageFinalizing       Stage = "finalizing"
)

// Status is the terminal state of a run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Event is one progress update. Total is zero until the scan settles the
// candidate count.
type Event struct {
	Stage     Stage
	Processed int
	Total     int
	Message   string
}

// Summary is the terminal result of a run.
type Summary struct {
	Status                  Status
	Processed               int
	Matched                 int
	SkippedAlreadyProcessed int
	SkippedPreEra           int
	Errors                  int
	Err                     error
}

// progressEvery controls how often a matching progress event is emitted.
const progressEvery = 5

// blankFileSize is the size below which a screenshot is considered blank
// and recorded as processed with zero cards.
const blankFileSize = 1024

// ErrRunInProgress indicates another process holds the run lock.
var ErrRunInProgress = errors.New("another run is already in progress")

// Pipeline coordinates batch processing runs.
type Pipeline struct {
	store  *ledger.Store
	cfg    *config.Config
	logger *slog.Logger
}

// New builds a pipeline over an open ledger store.
func New(store *ledger.Store, cfg *config.Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		store:  store,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Workers returns the worker pool size for this configuration.
func (p *Pipeline) Workers() int {
	if p.cfg.Processing.MaxWorkers > 0 {
		return p.cfg.Processing.MaxWorkers
	}
	workers := runtime.NumCPU() - 1
	if workers < 1 {
		workers = 1
	}
	if workers > 8 {
		workers = 8
	}
	return workers
}

// Run processes every new screenshot under dir. Progress events are sent to
// events when it is non-nil; the channel is not closed by Run. Cancellation
// is cooperative: in-flight images finish, queued ones do not start.
func (p *Pipeline) Run(ctx context.Context, dir string, events chan<- Event) Summary {
	lock := flock.New(p.cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return Summary{Status: StatusFailed, Err: fmt.Errorf("acquire run lock: %w", err)}
	}
	if !locked {
		return Summary{Status: StatusFailed, Err: ErrRunInProgress}
	}
	defer func() { _ = lock.Unlock() }()

	return p.run(ctx, dir, events)
}

// terminal settles a run that stopped before matching. Cancellation is a
// normal terminal state, never a failure, no matter which step noticed it.
func terminal(ctx context.Context, summary Summary, err error) Summary {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		summary.Status = StatusCancelled
		return summary
	}
	summary.Status = StatusFailed
	summary.Err = err
	return summary
}

func (p *Pipeline) run(ctx context.Context, dir string, events chan<- Event) Summary {
	emit := func(ev Event) {
		if events == nil {
			return
		}
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	}

	emit(Event{Stage: StageScanning, Message: "scanning screenshot directory"})

	known, err := p.store.KnownFingerprints(ctx)
	if err != nil {
		return terminal(ctx, Summary{}, err)
	}
	knownNames, err := p.store.KnownFilenames(ctx)
	if err != nil {
		return terminal(ctx, Summary{}, err)
	}

	cutoff, err := p.cfg.EraCutoffTime()
	if err != nil {
		return terminal(ctx, Summary{}, err)
	}

	candidateCh, summaryCh, err := scanner.Scan(ctx, dir, scanner.Options{
		Known:      known,
		KnownNames: knownNames,
		EraCutoff:  cutoff,
		Progress: func(s scanner.Summary) {
			emit(Event{
				Stage:     StageScanning,
				Processed: s.Scanned,
				Message:   fmt.Sprintf("scanned %d files (%d new)", s.Scanned, s.New),
			})
		},
		Logger: p.logger,
	})
	if err != nil {
		return terminal(ctx, Summary{}, err)
	}

	var candidates []scanner.Candidate
	for c := range candidateCh {
		candidates = append(candidates, c)
	}
	scanSummary := <-summaryCh

	summary := Summary{
		SkippedAlreadyProcessed: scanSummary.SkippedKnown,
		SkippedPreEra:           scanSummary.SkippedPreEra,
	}

	if ctx.Err() != nil {
		summary.Status = StatusCancelled
		return summary
	}

	if len(candidates) == 0 {
		p.logger.Info("all images already processed",
			logging.Int("scanned", scanSummary.Scanned),
			logging.Int("skipped_pre_era", scanSummary.SkippedPreEra))
		emit(Event{Stage: StageFinalizing, Message: "all images already processed"})
		summary.Status = StatusCompleted
		return summary
	}

	emit(Event{Stage: StageTemplatesLoading, Total: len(candidates), Message: "loading template catalog"})

	cat, err := catalog.Load(p.cfg.Paths.TemplateDir, p.logger)
	if err != nil {
		return terminal(ctx, summary, err)
	}

	prior, err := p.store.KnownCardCodes(ctx)
	if err != nil {
		return terminal(ctx, summary, err)
	}

	matcher := match.New(cat, match.StandardLayout{}, match.Config{
		ConfidenceFloor: p.cfg.Processing.ConfidenceThreshold,
		QuickAccept:     p.cfg.Processing.QuickAcceptThreshold,
		Epsilon:         p.cfg.Processing.AmbiguityEpsilon,
	}, p.logger)

	p.matchAll(ctx, matcher, candidates, prior, &summary, emit)

	emit(Event{Stage: StageFinalizing, Processed: summary.Processed, Total: len(candidates)})
	if ctx.Err() != nil {
		summary.Status = StatusCancelled
	} else {
		summary.Status = StatusCompleted
	}
	p.logger.Info("batch run finished",
		logging.String("status", string(summary.Status)),
		logging.Int("processed", summary.Processed),
		logging.Int("matched", summary.Matched),
		logging.Int("errors", summary.Errors))
	return summary
}
