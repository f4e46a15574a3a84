package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ParraLuca/AlertMe/config"
	"github.com/ParraLuca/AlertMe/models"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore archives every observed listing per run. It is a pure
// sink for later analysis; the alert diffing runs entirely off the
// JSON state file and never consults this table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(cfg config.Config) (*PostgresStore, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBName,
		cfg.DBSSLMode,
	)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &PostgresStore{db: db}
	schemaCtx, schemaCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer schemaCancel()
	if err := store.ensureSchema(schemaCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// ArchiveListings upserts one crawl's observed listings, keyed by
// (site, listing_id). first_seen survives re-observation; last_seen
// and the descriptive fields track the latest crawl.
func (s *PostgresStore) ArchiveListings(ctx context.Context, runID, site string, items []models.ListingItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO listings (site, listing_id, url, title, price, location, bedrooms, property_type, publication_date, run_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (site, listing_id) DO UPDATE
		SET
			url = EXCLUDED.url,
			title = EXCLUDED.title,
			price = EXCLUDED.price,
			location = EXCLUDED.location,
			bedrooms = EXCLUDED.bedrooms,
			property_type = EXCLUDED.property_type,
			publication_date = EXCLUDED.publication_date,
			run_id = EXCLUDED.run_id,
			last_seen = NOW()`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert statement: %w", err)
	}
	defer stmt.Close()

	total := 0
	for _, it := range items {
		if it.ID == "" {
			continue
		}
		if _, err = stmt.ExecContext(
			ctx,
			site,
			it.ID,
			it.URL,
			it.Title,
			it.Price,
			it.Location,
			it.Bedrooms,
			it.PropertyType,
			it.PublicationDate,
			runID,
		); err != nil {
			return 0, fmt.Errorf("archive listing %q: %w", it.ID, err)
		}
		total++
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	return total, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS listings (
			id BIGSERIAL PRIMARY KEY,
			site TEXT NOT NULL,
			listing_id TEXT NOT NULL,
			url TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			price INTEGER,
			location TEXT NOT NULL DEFAULT '',
			bedrooms INTEGER,
			property_type TEXT NOT NULL DEFAULT '',
			publication_date TIMESTAMPTZ,
			run_id TEXT NOT NULL DEFAULT '',
			first_seen TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_seen TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (site, listing_id)
		);
		CREATE INDEX IF NOT EXISTS idx_listings_site ON listings(site);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
