package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type Store struct{ DB *sql.DB }

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Store{DB: db}, nil
}

func (s *Store) Ping(ctx context.Context) error { return s.DB.PingContext(ctx) }

func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE TABLE IF NOT EXISTS submit_audits (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            listing_id     BIGINT NOT NULL,
            attempt_id     TEXT NOT NULL,
            payload        JSONB NOT NULL,
            payload_sha256 TEXT NOT NULL,
            outcome        TEXT NOT NULL,
            error_kind     TEXT,
            created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
        );`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_audits_attempt ON submit_audits(attempt_id);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_listing ON submit_audits(listing_id, created_at DESC);`,
		`CREATE TABLE IF NOT EXISTS orphaned_uploads (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            listing_id   BIGINT NOT NULL,
            attempt_id   TEXT NOT NULL,
            url          TEXT NOT NULL,
            label        TEXT,
            created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
        );`,
		`CREATE INDEX IF NOT EXISTS idx_orphans_listing ON orphaned_uploads(listing_id);`,
		`CREATE INDEX IF NOT EXISTS idx_orphans_created ON orphaned_uploads(created_at DESC);`,
	}
	for _, q := range stmts {
		if _, err := s.DB.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// SubmitAudit is one submit attempt, success or failure, with the raw patch
// payload it sent.
type SubmitAudit struct {
	ListingID int64
	AttemptID string
	Payload   []byte
	Outcome   string // "succeeded" | "failed"
	ErrorKind string
}

func (s *Store) RecordSubmit(ctx context.Context, a SubmitAudit) error {
	if s.DB == nil {
		return errors.New("nil db")
	}
	sum := sha256.Sum256(a.Payload)
	sha := hex.EncodeToString(sum[:])
	_, err := s.DB.ExecContext(ctx, `
        INSERT INTO submit_audits (listing_id, attempt_id, payload, payload_sha256, outcome, error_kind)
        VALUES ($1,$2,$3,$4,$5,$6)`,
		a.ListingID, a.AttemptID, string(a.Payload), sha, a.Outcome, nullString(a.ErrorKind))
	return err
}

// OrphanedUpload is binary content committed to the photo store whose patch
// was subsequently rejected. Recorded for manual cleanup, never auto-deleted.
type OrphanedUpload struct {
	ListingID int64
	AttemptID string
	URL       string
	Label     string
	CreatedAt time.Time
}

func (s *Store) RecordOrphans(ctx context.Context, orphans []OrphanedUpload) error {
	if s.DB == nil {
		return errors.New("nil db")
	}
	if len(orphans) == 0 {
		return nil
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for _, o := range orphans {
		if _, err = tx.ExecContext(ctx, `
            INSERT INTO orphaned_uploads (listing_id, attempt_id, url, label)
            VALUES ($1,$2,$3,$4)`,
			o.ListingID, o.AttemptID, o.URL, nullString(o.Label)); err != nil {
			return err
		}
	}
	err = tx.Commit()
	return err
}

func (s *Store) ListOrphans(ctx context.Context, since time.Time) ([]OrphanedUpload, error) {
	if s.DB == nil {
		return nil, errors.New("nil db")
	}
	rows, err := s.DB.QueryContext(ctx, `
        SELECT listing_id, attempt_id, url, COALESCE(label, ''), created_at
        FROM orphaned_uploads
        WHERE created_at >= $1
        ORDER BY created_at DESC`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []OrphanedUpload
	for rows.Next() {
		var o OrphanedUpload
		if err := rows.Scan(&o.ListingID, &o.AttemptID, &o.URL, &o.Label, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
