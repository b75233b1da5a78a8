package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/dermadoc/backend/internal/core/domain"
	"github.com/dermadoc/backend/internal/core/ports"
)

// CheckQueryUseCase serves the polling/read side of the pipeline plus
// owner-initiated deletion and history export.
type CheckQueryUseCase struct {
	repo  ports.CheckRepository
	store ports.ImageStore
}

func NewCheckQueryUseCase(repo ports.CheckRepository, store ports.ImageStore) *CheckQueryUseCase {
	return &CheckQueryUseCase{repo: repo, store: store}
}

func (uc *CheckQueryUseCase) Get(ctx context.Context, userID, checkID string) (*domain.SkinCheck, error) {
	check, err := uc.repo.GetByIDForUser(ctx, checkID, userID)
	if err != nil {
		return nil, fmt.Errorf("get check: %w", err)
	}
	return check, nil
}

func (uc *CheckQueryUseCase) List(ctx context.Context, userID string, status domain.CheckStatus) ([]domain.SkinCheck, error) {
	checks, err := uc.repo.ListByUser(ctx, userID, status)
	if err != nil {
		return nil, fmt.Errorf("list checks: %w", err)
	}
	return checks, nil
}

// Delete removes the backing file first, then the record. A second delete
// of the same id reports not found rather than an internal error.
func (uc *CheckQueryUseCase) Delete(ctx context.Context, userID, checkID string) error {
	check, err := uc.repo.GetByIDForUser(ctx, checkID, userID)
	if err != nil {
		return fmt.Errorf("get check for delete: %w", err)
	}

	deleted, err := uc.store.Delete(ctx, check.RelativePath)
	if err != nil {
		return fmt.Errorf("delete image file: %w", err)
	}
	if !deleted {
		slog.Warn("check file already absent on delete", "check_id", checkID, "path", check.RelativePath)
	}

	if err := uc.repo.Delete(ctx, checkID); err != nil {
		return fmt.Errorf("delete check record: %w", err)
	}
	return nil
}

// ExportXLSX renders the user's full check history as a spreadsheet, one
// row per check.
func (uc *CheckQueryUseCase) ExportXLSX(ctx context.Context, userID string) ([]byte, error) {
	checks, err := uc.repo.ListByUser(ctx, userID, "")
	if err != nil {
		return nil, fmt.Errorf("list checks for export: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Skin Checks"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("rename export sheet: %w", err)
	}

	header := []any{"ID", "Status", "Disease Type", "Confidence", "Body Part", "Created At", "Updated At"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write export header: %w", err)
	}

	for i, check := range checks {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("export cell name: %w", err)
		}
		row := []any{
			check.ID,
			string(check.Status),
			check.DiseaseType,
			check.Confidence,
			check.BodyPart,
			check.CreatedAt.Format("2006-01-02 15:04:05"),
			check.UpdatedAt.Format("2006-01-02 15:04:05"),
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write export row: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render export workbook: %w", err)
	}
	return buf.Bytes(), nil
}
