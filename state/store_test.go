package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ParraLuca/AlertMe/models"
)

func item(id string) models.ListingItem {
	return models.ListingItem{ID: id, URL: "https://example.test/item/" + id}
}

func openAt(t *testing.T, dir string) *Store {
	t.Helper()
	s, err := Open(filepath.Join(dir, "state.json"))
	require.NoError(t, err)
	return s
}

func TestSeedSuppressesNotification(t *testing.T) {
	s := openAt(t, t.TempDir())

	diff, err := s.RecordOrDiff("kh:abc:def", "sub@example.test", []models.ListingItem{item("A"), item("B")})
	require.NoError(t, err)

	assert.True(t, diff.Seed)
	assert.Empty(t, diff.New)
	assert.Equal(t, 2, s.SeenCount("kh:abc:def"))
}

func TestDiffReportsOnlyUnseen(t *testing.T) {
	dir := t.TempDir()
	s := openAt(t, dir)

	_, err := s.RecordOrDiff("k", "sub@example.test", []models.ListingItem{item("A"), item("B"), item("C")})
	require.NoError(t, err)

	diff, err := s.RecordOrDiff("k", "sub@example.test", []models.ListingItem{item("A"), item("B"), item("C"), item("D")})
	require.NoError(t, err)

	assert.False(t, diff.Seed)
	require.Len(t, diff.New, 1)
	assert.Equal(t, "D", diff.New[0].ID)
	assert.Empty(t, diff.Renotified)
	assert.Equal(t, 4, s.SeenCount("k"))
}

func TestPublicationDateTriggersRenotify(t *testing.T) {
	s := openAt(t, t.TempDir())
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return t0 }

	_, err := s.RecordOrDiff("k", "sub@example.test", []models.ListingItem{item("A"), item("B"), item("C")})
	require.NoError(t, err)

	s.now = func() time.Time { return t0.Add(24 * time.Hour) }
	republished := item("A")
	pub := t0.Add(time.Hour)
	republished.PublicationDate = &pub
	stale := item("B")
	old := t0.Add(-time.Hour)
	stale.PublicationDate = &old

	diff, err := s.RecordOrDiff("k", "sub@example.test",
		[]models.ListingItem{republished, stale, item("C"), item("D")})
	require.NoError(t, err)

	require.Len(t, diff.New, 2)
	assert.Equal(t, "A", diff.New[0].ID, "seen id with newer publication date is reported again")
	assert.Equal(t, "D", diff.New[1].ID)
	assert.Equal(t, []string{"A"}, diff.Renotified)
	assert.Equal(t, 4, s.SeenCount("k"))
}

func TestSeenSetIsMonotonic(t *testing.T) {
	dir := t.TempDir()
	s := openAt(t, dir)

	_, err := s.RecordOrDiff("k", "sub@example.test", []models.ListingItem{item("A"), item("B")})
	require.NoError(t, err)

	// A later run that no longer observes B must not shrink the set.
	_, err = s.RecordOrDiff("k", "sub@example.test", []models.ListingItem{item("A"), item("C")})
	require.NoError(t, err)
	assert.Equal(t, 3, s.SeenCount("k"))

	// Survives reopen.
	s2 := openAt(t, dir)
	assert.Equal(t, 3, s2.SeenCount("k"))
}

func TestPersistedShape(t *testing.T) {
	dir := t.TempDir()
	s := openAt(t, dir)
	s.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

	_, err := s.RecordOrDiff("k", "sub@example.test", []models.ListingItem{item("B"), item("A")})
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, "state.json"))
	require.NoError(t, err)

	var doc struct {
		Alerts map[string]struct {
			CreatedAtUTC string   `json:"created_at_utc"`
			SeenCodes    []string `json:"seen_codes"`
			LastRunUTC   string   `json:"last_run_utc"`
			Email        string   `json:"email"`
		} `json:"alerts"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	rec := doc.Alerts["k"]
	assert.Equal(t, "2024-03-01T12:00:00Z", rec.CreatedAtUTC)
	assert.Equal(t, []string{"A", "B"}, rec.SeenCodes, "seen_codes written sorted")
	assert.Equal(t, "sub@example.test", rec.Email)
}

func TestEmailUpdatedOnLaterRun(t *testing.T) {
	s := openAt(t, t.TempDir())

	_, err := s.RecordOrDiff("k", "old@example.test", []models.ListingItem{item("A")})
	require.NoError(t, err)
	_, err = s.RecordOrDiff("k", "new@example.test", []models.ListingItem{item("A")})
	require.NoError(t, err)

	assert.Equal(t, "new@example.test", s.doc.Alerts["k"].Email)
}

func TestCorruptFileQuarantinedAndReset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"alerts": {bro`), 0o644))

	s, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 0, s.SeenCount("k"))

	bak, err := os.ReadFile(path + ".bak")
	require.NoError(t, err)
	assert.Contains(t, string(bak), "bro", "corrupt content preserved for forensics")

	diff, err := s.RecordOrDiff("k", "sub@example.test", []models.ListingItem{item("A")})
	require.NoError(t, err)
	assert.True(t, diff.Seed, "reset store seeds again")
}

func TestNoHalfWrittenStateVisible(t *testing.T) {
	dir := t.TempDir()
	s := openAt(t, dir)
	_, err := s.RecordOrDiff("k", "sub@example.test", []models.ListingItem{item("A")})
	require.NoError(t, err)

	// The temp file never lingers after a successful save.
	_, err = os.Stat(filepath.Join(dir, "state.json.tmp"))
	assert.True(t, os.IsNotExist(err))
}
