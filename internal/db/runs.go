package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MaxRecent caps how many runs Recent returns.
const MaxRecent = 100

// RunRepository handles run history operations.
type RunRepository struct {
	q querier
}

// Create inserts a run. A zero ID or CreatedAt is filled in.
func (r *RunRepository) Create(ctx context.Context, run *Run) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO runs (id, emotion, genre, face_count, track_count, catalog_ok, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.q.Exec(ctx, query,
		run.ID,
		run.Emotion,
		run.Genre,
		run.FaceCount,
		run.TrackCount,
		run.CatalogOK,
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

// Get retrieves a run by ID.
func (r *RunRepository) Get(ctx context.Context, id uuid.UUID) (*Run, error) {
	query := `
		SELECT id, emotion, genre, face_count, track_count, catalog_ok, created_at
		FROM runs
		WHERE id = $1
	`
	run, err := scanRun(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}
	return run, nil
}

// Recent returns up to limit runs, newest first. limit is clamped to
// 1..MaxRecent.
func (r *RunRepository) Recent(ctx context.Context, limit int) ([]Run, error) {
	limit = max(1, min(limit, MaxRecent))

	query := `
		SELECT id, emotion, genre, face_count, track_count, catalog_ok, created_at
		FROM runs
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

func scanRun(row pgx.Row) (*Run, error) {
	var run Run
	err := row.Scan(
		&run.ID,
		&run.Emotion,
		&run.Genre,
		&run.FaceCount,
		&run.TrackCount,
		&run.CatalogOK,
		&run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &run, nil
}
