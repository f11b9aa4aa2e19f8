package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/musiq/internal/models"
	"github.com/desertthunder/musiq/internal/shared"
)

// ExportRunRepository persists [models.ExportRun] history.
type ExportRunRepository struct {
	db *sql.DB
}

// NewExportRunRepository creates a new ExportRunRepository with the given database connection
func NewExportRunRepository(db *sql.DB) *ExportRunRepository {
	return &ExportRunRepository{db: db}
}

// Create inserts a run with a generated ID
func (r *ExportRunRepository) Create(run *models.ExportRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	run.ID = shared.GenerateID()

	query := `
		INSERT INTO export_runs (
			id, format, output_dir, total, succeeded, failed,
			manifest_path, started_at, finished_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		run.ID,
		run.Format,
		run.OutputDir,
		run.Total,
		run.Succeeded,
		run.Failed,
		nullString(run.ManifestPath),
		run.StartedAt,
		run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert export run: %w", err)
	}
	return nil
}

// Get retrieves a run by ID
func (r *ExportRunRepository) Get(id string) (*models.ExportRun, error) {
	query := `
		SELECT id, format, output_dir, total, succeeded, failed,
			manifest_path, started_at, finished_at
		FROM export_runs
		WHERE id = ?
	`

	run, err := scanExportRun(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: export run %s", shared.ErrNotFound, id)
	}
	return run, err
}

// Update writes the counts, manifest path and finish time of an existing run
func (r *ExportRunRepository) Update(run *models.ExportRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		UPDATE export_runs
		SET total = ?, succeeded = ?, failed = ?, manifest_path = ?, finished_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		run.Total,
		run.Succeeded,
		run.Failed,
		nullString(run.ManifestPath),
		run.FinishedAt,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update export run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: export run %s", shared.ErrNotFound, run.ID)
	}
	return nil
}

// List returns the most recent runs first. A limit of 0 or less returns all runs.
func (r *ExportRunRepository) List(limit int) ([]*models.ExportRun, error) {
	query := `
		SELECT id, format, output_dir, total, succeeded, failed,
			manifest_path, started_at, finished_at
		FROM export_runs
		ORDER BY started_at DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query export runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.ExportRun
	for rows.Next() {
		run, err := scanExportRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExportRun(row scanner) (*models.ExportRun, error) {
	var (
		run        models.ExportRun
		manifest   sql.NullString
		startedAt  time.Time
		finishedAt sql.NullTime
	)

	err := row.Scan(
		&run.ID, &run.Format, &run.OutputDir, &run.Total, &run.Succeeded, &run.Failed,
		&manifest, &startedAt, &finishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan export run: %w", err)
	}

	run.StartedAt = startedAt
	if manifest.Valid {
		run.ManifestPath = manifest.String
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		run.FinishedAt = &t
	}
	return &run, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
