package pipeline

import (
	"context"
	"fmt"
	"sync"

	"cardcounter/internal/imaging"
	"cardcounter/internal/ledger"
	"cardcounter/internal/match"
	"cardcounter/internal/scanner"
)

// outcome is one worker's result for a single screenshot, handed to the
// coordinator for persistence.
type outcome struct {
	candidate scanner.Candidate
	status    ledger.ScreenshotStatus
	cards     []ledger.CardObservation
	err       error
}

// matchAll fans candidates out to the worker pool and persists results from
// a single coordinator goroutine. Workers stop picking up new work once ctx
// is cancelled; images already dispatched run to completion.
func (p *Pipeline) matchAll(
	ctx context.Context,
	matcher *match.Matcher,
	candidates []scanner.Candidate,
	prior map[string]struct{},
	summary *Summary,
	emit func(Event),
) {
	work := make(chan scanner.Candidate)
	outcomes := make(chan outcome)

	var wg sync.WaitGroup
	for i := 0; i < p.Workers(); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for candidate := range work {
				outcomes <- p.processOne(matcher, candidate, prior)
			}
		}()
	}

	go func() {
		defer close(work)
		for _, candidate := range candidates {
			select {
			case work <- candidate:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	total := len(candidates)
	for out := range outcomes {
		p.persist(ctx, out, summary)
		summary.Processed++
		if summary.Processed%progressEvery == 0 || summary.Processed == total {
			emit(Event{
				Stage:     StageMatching,
				Processed: summary.Processed,
				Total:     total,
				Message:   fmt.Sprintf("processed %d of %d screenshots", summary.Processed, total),
			})
		}
	}
}

func (p *Pipeline) processOne(matcher *match.Matcher, candidate scanner.Candidate, prior map[string]struct{}) outcome {
	if candidate.Size < blankFileSize {
		return outcome{candidate: candidate, status: ledger.StatusEmpty}
	}

	img, err := imaging.DecodeGray(candidate.Path)
	if err != nil {
		return outcome{
			candidate: candidate,
			status:    ledger.StatusFailed,
			err:       fmt.Errorf("critical error processing %s: %w", candidate.Name, err),
		}
	}

	result := matcher.Screenshot(img, prior)
	var cards []ledger.CardObservation
	for i, obs := range result.Observations {
		if !obs.Matched() {
			continue
		}
		cards = append(cards, ledger.CardObservation{
			Card: ledger.Card{
				SetCode: obs.Card.Set,
				Number:  obs.Card.Number,
				Name:    obs.Card.Name,
				Rarity:  obs.Card.Rarity,
			},
			Position:   i,
			Confidence: obs.Confidence,
		})
	}

	status := ledger.StatusMatched
	if len(cards) == 0 {
		status = ledger.StatusEmpty
	}
	return outcome{candidate: candidate, status: status, cards: cards}
}
