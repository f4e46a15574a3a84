package state

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ParraLuca/AlertMe/models"
)

// alertRecord is the persisted shape of one alert. seen_codes is
// written sorted so successive state files diff cleanly.
type alertRecord struct {
	CreatedAtUTC string   `json:"created_at_utc"`
	SeenCodes    []string `json:"seen_codes"`
	LastRunUTC   string   `json:"last_run_utc"`
	Email        string   `json:"email"`
}

type document struct {
	Alerts map[string]alertRecord `json:"alerts"`
}

// Store owns the persisted seen-set of every alert. It implements the
// seed-then-diff protocol: the first observation of a target baselines
// it silently, every later observation reports only what is new. The
// store is the sole writer of its file; callers must serialize access.
type Store struct {
	path string
	doc  document
	now  func() time.Time
}

// Open loads the state file at path. A missing file starts empty. An
// unreadable file is preserved under a .bak suffix and the store
// resets, so one corrupted write never takes the whole batch down.
func Open(path string) (*Store, error) {
	s := &Store{path: path, now: time.Now}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		s.doc.Alerts = map[string]alertRecord{}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}
	if jerr := json.Unmarshal(raw, &s.doc); jerr != nil {
		bak := path + ".bak"
		if rerr := os.Rename(path, bak); rerr != nil {
			return nil, fmt.Errorf("quarantine corrupt state file: %w", rerr)
		}
		log.Printf("[state] ⚠ corrupt state file moved to %s, starting fresh", bak)
		s.doc = document{}
	}
	if s.doc.Alerts == nil {
		s.doc.Alerts = map[string]alertRecord{}
	}
	return s, nil
}

// Diff is the outcome of one observation.
type Diff struct {
	Seed       bool
	New        []models.ListingItem
	Renotified []string // ids reported again because their publication date postdates the alert
}

// RecordOrDiff folds one crawl's observation into the alert keyed by
// identityKey and persists the result.
//
// First observation: the record is created with every incoming id
// already marked seen and nothing is reported. Later observations
// report items whose id is unknown, plus items whose publication date
// is newer than the alert itself even when the id was seen before (a
// best-effort guard against id reuse; such repeats are listed in
// Renotified). The seen-set only ever grows.
func (s *Store) RecordOrDiff(identityKey, email string, items []models.ListingItem) (Diff, error) {
	nowStr := s.now().UTC().Format(time.RFC3339)

	rec, exists := s.doc.Alerts[identityKey]
	if !exists {
		rec = alertRecord{
			CreatedAtUTC: nowStr,
			SeenCodes:    ids(items),
			LastRunUTC:   nowStr,
			Email:        email,
		}
		s.doc.Alerts[identityKey] = rec
		if err := s.save(); err != nil {
			return Diff{}, err
		}
		return Diff{Seed: true}, nil
	}

	createdAt, terr := time.Parse(time.RFC3339, rec.CreatedAtUTC)
	datesUsable := terr == nil

	seen := map[string]bool{}
	for _, id := range rec.SeenCodes {
		seen[id] = true
	}

	var diff Diff
	for _, it := range items {
		if it.ID == "" {
			continue
		}
		switch {
		case !seen[it.ID]:
			diff.New = append(diff.New, it)
		case datesUsable && it.PublicationDate != nil && it.PublicationDate.After(createdAt):
			diff.New = append(diff.New, it)
			diff.Renotified = append(diff.Renotified, it.ID)
		}
		seen[it.ID] = true
	}

	rec.SeenCodes = sortedKeys(seen)
	rec.LastRunUTC = nowStr
	if email != "" && rec.Email != email {
		rec.Email = email
	}
	s.doc.Alerts[identityKey] = rec
	if err := s.save(); err != nil {
		return Diff{}, err
	}
	return diff, nil
}

// SeenCount reports the size of an alert's seen-set, zero when the
// alert does not exist.
func (s *Store) SeenCount(identityKey string) int {
	return len(s.doc.Alerts[identityKey].SeenCodes)
}

// save writes the whole document to a sibling temp file and renames it
// into place, so a crash mid-write leaves the previous file intact.
func (s *Store) save() error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}
	raw, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write state temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

func ids(items []models.ListingItem) []string {
	set := map[string]bool{}
	for _, it := range items {
		if it.ID != "" {
			set[it.ID] = true
		}
	}
	return sortedKeys(set)
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
