package utils

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/ParraLuca/AlertMe/models"
)

// RunReport is the JSON document written after each batch run.
type RunReport struct {
	RunID      string                `json:"run_id"`
	StartedUTC string                `json:"started_utc"`
	Targets    []models.TargetResult `json:"targets"`
	Errors     []string              `json:"errors,omitempty"`
}

// WriteRunReport writes the batch outcome to filename and returns the
// total number of new listings across targets.
func WriteRunReport(filename, runID string, startedAt time.Time, results []models.TargetResult) (int, error) {
	report := RunReport{
		RunID:      runID,
		StartedUTC: startedAt.UTC().Format(time.RFC3339),
		Targets:    results,
	}
	total := 0
	for _, r := range results {
		if r.Err != nil {
			report.Errors = append(report.Errors, r.Site+": "+r.Err.Error())
			continue
		}
		total += len(r.NewItems)
	}

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, err
		}
	}
	f, err := os.Create(filename)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return 0, err
	}

	return total, nil
}
