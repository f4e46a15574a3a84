package services

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/ParraLuca/AlertMe/config"
	"github.com/ParraLuca/AlertMe/models"
	"github.com/ParraLuca/AlertMe/notify"
	"github.com/ParraLuca/AlertMe/state"
	"github.com/ParraLuca/AlertMe/storage"
)

// Runner processes a batch of alert definitions strictly sequentially.
// One target per site visit at a time keeps the crawl polite; a
// failing target is reported and the batch moves on.
type Runner struct {
	cfg      config.Config
	client   *http.Client
	store    *state.Store
	notifier notify.Notifier
	archive  *storage.PostgresStore // nil when archiving is disabled
	runID    string
}

func NewRunner(cfg config.Config, store *state.Store, notifier notify.Notifier,
	archive *storage.PostgresStore, runID string) *Runner {
	return &Runner{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.HTTPTimeout},
		store:    store,
		notifier: notifier,
		archive:  archive,
		runID:    runID,
	}
}

// RunAll crawls every definition in order and returns one result per
// definition, in the same order.
func (r *Runner) RunAll(ctx context.Context, defs []models.AlertDefinition) []models.TargetResult {
	results := make([]models.TargetResult, 0, len(defs))
	for i, def := range defs {
		if i > 0 {
			time.Sleep(r.cfg.RandomDelay())
		}
		log.Printf("[%s] ▶ target %d/%d for %s", def.Site, i+1, len(defs), def.Email)

		result := r.crawlTarget(ctx, def)
		result.Index = i
		if result.Err != nil {
			log.Printf("[%s] ✗ %v", def.Site, result.Err)
		} else if result.Seed {
			log.Printf("[%s] ✓ baseline established (%d item(s) observed)", def.Site, result.Observed)
		} else {
			log.Printf("[%s] ✓ %d observed, %d new", def.Site, result.Observed, len(result.NewItems))
		}
		results = append(results, result)

		if ctx.Err() != nil {
			log.Printf("[runner] ⚠ context done, stopping after %d/%d target(s)", i+1, len(defs))
			break
		}
	}
	return results
}
