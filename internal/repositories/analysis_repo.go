package repositories

import (
	"context"
	"errors"

	"lumiscan/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type AnalysisRepository interface {
	Create(ctx context.Context, analysis *models.Analysis) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Analysis, error)
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Analysis, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type analysisRepo struct {
	db Database
}

func NewAnalysisRepo(db Database) AnalysisRepository {
	return &analysisRepo{db: db}
}

func (r *analysisRepo) Create(ctx context.Context, analysis *models.Analysis) error {
	query := `
		INSERT INTO analysis_history (id, user_id, result, score, image_url, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`
	_, err := r.db.Exec(ctx, query, analysis.ID, analysis.UserID, analysis.Result, analysis.Score, analysis.ImageURL)
	return err
}

func (r *analysisRepo) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Analysis, error) {
	analysis := &models.Analysis{}
	query := `
		SELECT id, user_id, result, score, image_url, created_at
		FROM analysis_history
		WHERE user_id = $1 AND id = $2
	`
	err := r.db.QueryRow(ctx, query, userID, id).Scan(&analysis.ID, &analysis.UserID, &analysis.Result, &analysis.Score, &analysis.ImageURL, &analysis.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return analysis, nil
}

func (r *analysisRepo) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Analysis, error) {
	query := `
		SELECT id, user_id, result, score, image_url, created_at
		FROM analysis_history
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var analyses []*models.Analysis
	for rows.Next() {
		analysis := &models.Analysis{}
		if err := rows.Scan(&analysis.ID, &analysis.UserID, &analysis.Result, &analysis.Score, &analysis.ImageURL, &analysis.CreatedAt); err != nil {
			return nil, err
		}
		analyses = append(analyses, analysis)
	}
	return analyses, rows.Err()
}

func (r *analysisRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	query := `DELETE FROM analysis_history WHERE user_id = $1 AND id = $2`
	tag, err := r.db.Exec(ctx, query, userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
