package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dermadoc/backend/internal/core/domain"
	"github.com/dermadoc/backend/internal/core/ports"
)

// ProcessCheckUseCase drives one skin check through the classification
// state machine: pending -> processing -> processed | failed.
type ProcessCheckUseCase struct {
	repo       ports.CheckRepository
	store      ports.ImageStore
	classifier ports.LesionClassifier
	enricher   ports.Enricher
}

func NewProcessCheckUseCase(
	repo ports.CheckRepository,
	store ports.ImageStore,
	classifier ports.LesionClassifier,
	enricher ports.Enricher,
) *ProcessCheckUseCase {
	return &ProcessCheckUseCase{
		repo:       repo,
		store:      store,
		classifier: classifier,
		enricher:   enricher,
	}
}

// ProcessByID runs the pipeline for a single check. Steps are strictly
// sequential; a poller never observes a partial result. Classifier and
// file errors are terminal (failed, no retry); enrichment errors degrade
// to the static catalog text.
func (uc *ProcessCheckUseCase) ProcessByID(ctx context.Context, checkID string) error {
	if _, err := uuid.Parse(checkID); err != nil {
		slog.Warn("dropping job with malformed check id", "check_id", checkID)
		return nil
	}

	check, err := uc.repo.GetByID(ctx, checkID)
	if err != nil {
		if domain.IsKind(err, domain.ErrNotFound) {
			slog.Warn("dropping job for unknown check", "check_id", checkID)
			return nil
		}
		return fmt.Errorf("fetch check by id: %w", err)
	}

	if err := uc.repo.UpdateStatus(ctx, checkID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	absPath, err := uc.store.AbsolutePath(ctx, check.RelativePath)
	if err != nil {
		uc.markFailed(ctx, checkID, fmt.Errorf("resolve image file: %w", err))
		return fmt.Errorf("resolve image file: %w", err)
	}

	pred, err := uc.classifier.Predict(ctx, absPath)
	if err != nil {
		uc.markFailed(ctx, checkID, fmt.Errorf("classify image: %w", err))
		return fmt.Errorf("classify image: %w", err)
	}
	slog.Info("classification complete",
		"check_id", checkID,
		"disease_type", pred.DiseaseType,
		"confidence", pred.Confidence,
	)

	info := domain.InfoFor(pred.DiseaseType)

	enrichment, err := uc.enricher.Enrich(ctx, pred, info)
	if err != nil {
		slog.Warn("enrichment failed, falling back to catalog text", "check_id", checkID, "error", err)
		enrichment = domain.Enrichment{
			Description:    info.Description,
			Recommendation: info.Recommendation,
		}
	}

	newRelPath, moved, err := uc.store.MoveToProcessed(ctx, check.RelativePath)
	if err != nil {
		uc.markFailed(ctx, checkID, fmt.Errorf("move image to processed: %w", err))
		return fmt.Errorf("move image to processed: %w", err)
	}
	if !moved {
		slog.Warn("image move was a no-op", "check_id", checkID, "path", check.RelativePath)
	}

	result := domain.CheckResult{
		Prediction:     pred,
		Description:    enrichment.Description,
		Recommendation: enrichment.Recommendation,
		RelativePath:   newRelPath,
	}
	if err := uc.repo.SaveResult(ctx, checkID, result); err != nil {
		uc.markFailed(ctx, checkID, fmt.Errorf("save result: %w", err))
		return fmt.Errorf("save result: %w", err)
	}

	return nil
}

// markFailed is best effort: a failure to record failure is logged and
// never propagated, so the caller's error stays the root cause.
func (uc *ProcessCheckUseCase) markFailed(ctx context.Context, checkID string, cause error) {
	if err := uc.repo.UpdateStatus(ctx, checkID, domain.StatusFailed, cause.Error()); err != nil {
		slog.Error("mark check failed", "check_id", checkID, "cause", cause, "error", err)
	}
}
