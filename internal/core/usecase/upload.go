package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dermadoc/backend/internal/core/domain"
	"github.com/dermadoc/backend/internal/core/ports"
)

type SubmitCheckUseCase struct {
	repo  ports.CheckRepository
	store ports.ImageStore
	queue ports.MessageQueue
}

func NewSubmitCheckUseCase(
	repo ports.CheckRepository,
	store ports.ImageStore,
	queue ports.MessageQueue,
) *SubmitCheckUseCase {
	return &SubmitCheckUseCase{
		repo:  repo,
		store: store,
		queue: queue,
	}
}

// Submit validates and persists the image, creates the pending record and
// schedules classification. The returned record is what the HTTP response
// carries; the job itself is not awaited.
func (uc *SubmitCheckUseCase) Submit(
	ctx context.Context,
	userID, filename, bodyPart string,
	content []byte,
) (*domain.SkinCheck, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	relPath, err := uc.store.SaveSkinCheck(ctx, content, userID, ext)
	if err != nil {
		return nil, fmt.Errorf("save image: %w", err)
	}

	now := time.Now().UTC()
	check := &domain.SkinCheck{
		ID:           uuid.NewString(),
		UserID:       userID,
		RelativePath: relPath,
		Status:       domain.StatusPending,
		BodyPart:     bodyPart,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := uc.repo.Create(ctx, check); err != nil {
		return nil, fmt.Errorf("create check record: %w", err)
	}

	if err := uc.queue.PublishCheckSubmitted(ctx, check.ID); err != nil {
		return nil, fmt.Errorf("publish classification job: %w", err)
	}

	return check, nil
}
