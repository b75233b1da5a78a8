package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dermadoc/backend/internal/core/domain"
)

func newSkinCheckRepoWithMock(t *testing.T) (*SkinCheckRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &SkinCheckRepository{db: db}, mock, func() { _ = db.Close() }
}

func skinCheckRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "relative_path", "status", "body_part",
		"disease_type", "confidence", "predictions", "enriched_description",
		"enriched_recommendation", "failure_reason", "created_at", "updated_at",
	})
}

func TestGetByIDScansNullableResultColumns(t *testing.T) {
	repo, mock, done := newSkinCheckRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, user_id, relative_path").
		WithArgs("c1").
		WillReturnRows(skinCheckRows().AddRow(
			"c1", "u1", "skin_checks/u1/processing/a.jpg", "pending", nil,
			nil, nil, nil, nil, nil, nil, now, now,
		))

	check, err := repo.GetByID(context.Background(), "c1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if check.Status != domain.StatusPending {
		t.Fatalf("unexpected status %q", check.Status)
	}
	if check.DiseaseType != "" || check.Confidence != 0 || check.Predictions != nil {
		t.Fatalf("pending check must have empty result fields: %+v", check)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDDecodesPredictions(t *testing.T) {
	repo, mock, done := newSkinCheckRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, user_id, relative_path").
		WithArgs("c1").
		WillReturnRows(skinCheckRows().AddRow(
			"c1", "u1", "skin_checks/u1/processed/a.jpg", "processed", "arm",
			"MEL", 0.91, []byte(`{"MEL":0.91,"NV":0.09}`), "desc", "rec", nil, now, now,
		))

	check, err := repo.GetByID(context.Background(), "c1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if check.Predictions["MEL"] != 0.91 {
		t.Fatalf("predictions not decoded: %+v", check.Predictions)
	}
	if check.EnrichedDescription != "desc" || check.EnrichedRecommendation != "rec" {
		t.Fatalf("enrichment not scanned: %+v", check)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newSkinCheckRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, user_id, relative_path").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDForUserScopesToOwner(t *testing.T) {
	repo, mock, done := newSkinCheckRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, user_id, relative_path").
		WithArgs("c1", "other-user").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByIDForUser(context.Background(), "c1", "other-user")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListByUserAppliesStatusFilter(t *testing.T) {
	repo, mock, done := newSkinCheckRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, user_id, relative_path.+AND status").
		WithArgs("u1", "processed").
		WillReturnRows(skinCheckRows().AddRow(
			"c1", "u1", "skin_checks/u1/processed/a.jpg", "processed", nil,
			"NV", 0.8, []byte(`{"NV":0.8}`), nil, nil, nil, now, now,
		))

	checks, err := repo.ListByUser(context.Background(), "u1", domain.StatusProcessed)
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(checks) != 1 || checks[0].ID != "c1" {
		t.Fatalf("unexpected result %+v", checks)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateStatusReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newSkinCheckRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE skin_checks").
		WithArgs("missing", "failed", "classify image: boom", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing", domain.StatusFailed, "classify image: boom")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveResultMarksProcessed(t *testing.T) {
	repo, mock, done := newSkinCheckRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE skin_checks").
		WithArgs("c1", "processed", "MEL", 0.91, sqlmock.AnyArg(), "desc", "rec",
			"skin_checks/u1/processed/a.jpg", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SaveResult(context.Background(), "c1", domain.CheckResult{
		Prediction: domain.Prediction{
			DiseaseType: "MEL",
			Confidence:  0.91,
			Predictions: map[string]float64{"MEL": 0.91},
		},
		Description:    "desc",
		Recommendation: "rec",
		RelativePath:   "skin_checks/u1/processed/a.jpg",
	})
	if err != nil {
		t.Fatalf("SaveResult() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDeleteReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newSkinCheckRepoWithMock(t)
	defer done()

	mock.ExpectExec("DELETE FROM skin_checks").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
