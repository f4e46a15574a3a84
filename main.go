package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/ParraLuca/AlertMe/config"
	"github.com/ParraLuca/AlertMe/notify"
	"github.com/ParraLuca/AlertMe/services"
	"github.com/ParraLuca/AlertMe/state"
	"github.com/ParraLuca/AlertMe/storage"
	"github.com/ParraLuca/AlertMe/utils"
)

func main() {
	cfg := config.Default()
	if len(os.Args) > 1 {
		cfg.DefinitionsPath = os.Args[1]
	}
	runID := uuid.NewString()
	startedAt := time.Now()

	log.Printf("╔═══════════════════════════════════════════════════╗")
	log.Printf("║        AlertMe — Real-Estate Listing Alerts       ║")
	log.Printf("╚═══════════════════════════════════════════════════╝")
	log.Printf("Run      : %s", runID)
	log.Printf("Alerts   : %s", cfg.DefinitionsPath)
	log.Printf("State    : %s", cfg.StatePath)
	log.Printf("Report   : %s", cfg.ReportPath)
	log.Printf("Email    : %v", cfg.SendEmail)
	log.Printf("Postgres : %v", cfg.DBEnabled)

	defs, err := services.LoadDefinitions(cfg.DefinitionsPath)
	if err != nil {
		log.Fatalf("✗ Failed to load alert definitions: %v", err)
	}
	if len(defs) == 0 {
		log.Printf("⚠ No alert definitions, nothing to do")
		return
	}
	log.Printf("Targets  : %d", len(defs))

	store, err := state.Open(cfg.StatePath)
	if err != nil {
		log.Fatalf("✗ Failed to open alert state: %v", err)
	}

	var archive *storage.PostgresStore
	if cfg.DBEnabled {
		archive, err = storage.NewPostgresStore(cfg)
		if err != nil {
			log.Fatalf("✗ Failed to connect to PostgreSQL: %v", err)
		}
		defer archive.Close()
	}

	rootCtx, cancelRoot := context.WithTimeout(context.Background(), cfg.GlobalTimeout)
	defer cancelRoot()

	runner := services.NewRunner(cfg, store, notify.NewSMTPNotifier(cfg), archive, runID)
	results := runner.RunAll(rootCtx, defs)

	totalNew, err := utils.WriteRunReport(cfg.ReportPath, runID, startedAt, results)
	if err != nil {
		log.Fatalf("✗ Failed to write run report: %v", err)
	}

	stats := utils.BuildSummaryStats(results)
	log.Printf("═══════════════════════════════════════════════════")
	log.Printf("  DONE — %d new listing(s) across %d target(s) → %s", totalNew, stats.TargetsRun, cfg.ReportPath)
	for _, r := range results {
		status := fmt.Sprintf("%d observed, %d new", r.Observed, len(r.NewItems))
		if r.Seed {
			status = fmt.Sprintf("seeded (%d observed)", r.Observed)
		}
		if r.Err != nil {
			status = "ERROR: " + r.Err.Error()
		}
		log.Printf("    %-12s %s", r.Site+":", status)
	}
	log.Printf("  STATS")
	log.Printf("    Targets  : %d run, %d seeded, %d failed", stats.TargetsRun, stats.TargetsSeeded, stats.TargetsFailed)
	log.Printf("    Observed : %d listing(s)", stats.TotalObserved)
	log.Printf("    New      : %d listing(s)", stats.TotalNew)
	if stats.TotalNew > 0 {
		log.Printf("    Prices   : min %d / avg %d / max %d", stats.MinimumPrice, stats.AveragePrice, stats.MaximumPrice)
		log.Printf("    New per site")
		for _, siteStat := range stats.NewPerSite {
			log.Printf("      - %s: %d", siteStat.Site, siteStat.Count)
		}
	}
	log.Printf("═══════════════════════════════════════════════════")
}
