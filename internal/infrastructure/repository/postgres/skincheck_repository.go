package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dermadoc/backend/internal/core/domain"
)

const skinCheckColumns = `id, user_id, relative_path, status, body_part, disease_type, confidence, predictions, enriched_description, enriched_recommendation, failure_reason, created_at, updated_at`

type SkinCheckRepository struct {
	db *sql.DB
}

func NewSkinCheckRepository(db *sql.DB) *SkinCheckRepository {
	return &SkinCheckRepository{db: db}
}

func (r *SkinCheckRepository) Create(ctx context.Context, check *domain.SkinCheck) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO skin_checks (
	id, user_id, relative_path, status, body_part, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7)
`,
		check.ID, check.UserID, check.RelativePath, string(check.Status), check.BodyPart,
		check.CreatedAt, check.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert skin check: %w", err)
	}
	return nil
}

func (r *SkinCheckRepository) GetByID(ctx context.Context, id string) (*domain.SkinCheck, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+skinCheckColumns+` FROM skin_checks WHERE id = $1`, id)
	return scanSkinCheck(row)
}

func (r *SkinCheckRepository) GetByIDForUser(ctx context.Context, id, userID string) (*domain.SkinCheck, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+skinCheckColumns+` FROM skin_checks WHERE id = $1 AND user_id = $2`, id, userID)
	return scanSkinCheck(row)
}

func (r *SkinCheckRepository) ListByUser(ctx context.Context, userID string, status domain.CheckStatus) ([]domain.SkinCheck, error) {
	query := `SELECT ` + skinCheckColumns + ` FROM skin_checks WHERE user_id = $1`
	args := []any{userID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list skin checks: %w", err)
	}
	defer rows.Close()

	var checks []domain.SkinCheck
	for rows.Next() {
		check, err := scanSkinCheck(rows)
		if err != nil {
			return nil, err
		}
		checks = append(checks, *check)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate skin checks: %w", err)
	}
	return checks, nil
}

func (r *SkinCheckRepository) UpdateStatus(ctx context.Context, id string, status domain.CheckStatus, failureReason string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE skin_checks
SET status = $2, failure_reason = NULLIF($3, ''), updated_at = $4
WHERE id = $1
`, id, string(status), failureReason, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update skin check status: %w", err)
	}
	return requireRowAffected(result, "update skin check status", id)
}

func (r *SkinCheckRepository) SaveResult(ctx context.Context, id string, res domain.CheckResult) error {
	predictionsJSON, err := json.Marshal(res.Prediction.Predictions)
	if err != nil {
		return fmt.Errorf("marshal predictions: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
UPDATE skin_checks
SET status = $2,
	disease_type = $3,
	confidence = $4,
	predictions = $5,
	enriched_description = $6,
	enriched_recommendation = $7,
	relative_path = $8,
	failure_reason = NULL,
	updated_at = $9
WHERE id = $1
`,
		id, string(domain.StatusProcessed), res.Prediction.DiseaseType, res.Prediction.Confidence,
		predictionsJSON, res.Description, res.Recommendation, res.RelativePath, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save skin check result: %w", err)
	}
	return requireRowAffected(result, "save skin check result", id)
}

func (r *SkinCheckRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM skin_checks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete skin check: %w", err)
	}
	return requireRowAffected(result, "delete skin check", id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSkinCheck(row rowScanner) (*domain.SkinCheck, error) {
	var (
		check          domain.SkinCheck
		status         string
		bodyPart       sql.NullString
		diseaseType    sql.NullString
		confidence     sql.NullFloat64
		predictionsRaw []byte
		description    sql.NullString
		recommendation sql.NullString
		failureReason  sql.NullString
	)

	err := row.Scan(
		&check.ID, &check.UserID, &check.RelativePath, &status, &bodyPart,
		&diseaseType, &confidence, &predictionsRaw, &description, &recommendation,
		&failureReason, &check.CreatedAt, &check.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get skin check", err)
		}
		return nil, fmt.Errorf("scan skin check: %w", err)
	}

	check.Status = domain.CheckStatus(status)
	check.BodyPart = bodyPart.String
	check.DiseaseType = diseaseType.String
	check.Confidence = confidence.Float64
	check.EnrichedDescription = description.String
	check.EnrichedRecommendation = recommendation.String
	check.FailureReason = failureReason.String

	if len(predictionsRaw) > 0 {
		if err := json.Unmarshal(predictionsRaw, &check.Predictions); err != nil {
			return nil, fmt.Errorf("unmarshal predictions: %w", err)
		}
	}
	return &check, nil
}

func requireRowAffected(result sql.Result, operation, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrNotFound, operation, fmt.Errorf("no skin check with id %s", id))
	}
	return nil
}
