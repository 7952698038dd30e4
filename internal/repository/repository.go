package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/BerylCAtieno/airline-extractor/internal/models"
)

type Repository interface {
	Create(ctx context.Context, run *models.Extraction) error
	GetByID(ctx context.Context, id string) (*models.Extraction, error)
	List(ctx context.Context, airline string, limit int) ([]*models.Extraction, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const extractionColumns = `id, airline, status, documents, failed_documents, empty_documents,
	total_rows, columns, issues, export_key, export_filename, export_size, duration_ms, created_at`

func (r *repository) Create(ctx context.Context, run *models.Extraction) error {
	query := `
		INSERT INTO extractions (` + extractionColumns + `)
		VALUES (:id, :airline, :status, :documents, :failed_documents, :empty_documents,
		        :total_rows, :columns, :issues, :export_key, :export_filename, :export_size,
		        :duration_ms, :created_at)
	`

	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("failed to insert extraction %s: %w", run.ID, err)
	}
	return nil
}

// GetByID returns nil without error when the run does not exist.
func (r *repository) GetByID(ctx context.Context, id string) (*models.Extraction, error) {
	var run models.Extraction

	query := `SELECT ` + extractionColumns + ` FROM extractions WHERE id = $1`

	err := r.db.GetContext(ctx, &run, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get extraction %s: %w", id, err)
	}
	return &run, nil
}

// List returns the most recent runs first. An empty airline matches all.
func (r *repository) List(ctx context.Context, airline string, limit int) ([]*models.Extraction, error) {
	query := `
		SELECT ` + extractionColumns + `
		FROM extractions
		WHERE ($1 = '' OR airline = $1)
		ORDER BY created_at DESC, id
		LIMIT $2
	`

	runs := []*models.Extraction{}
	if err := r.db.SelectContext(ctx, &runs, query, airline, limit); err != nil {
		return nil, fmt.Errorf("failed to list extractions: %w", err)
	}
	return runs, nil
}
