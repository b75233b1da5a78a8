package ports

import (
	"context"

	"github.com/dermadoc/backend/internal/core/domain"
)

// CheckRepository persists and reads skin-check state.
type CheckRepository interface {
	Create(ctx context.Context, check *domain.SkinCheck) error
	// GetByID is unscoped; it serves the background worker.
	GetByID(ctx context.Context, id string) (*domain.SkinCheck, error)
	// GetByIDForUser scopes the read to the owning user.
	GetByIDForUser(ctx context.Context, id, userID string) (*domain.SkinCheck, error)
	// ListByUser returns the user's checks newest first; an empty status
	// means no filter.
	ListByUser(ctx context.Context, userID string, status domain.CheckStatus) ([]domain.SkinCheck, error)
	UpdateStatus(ctx context.Context, id string, status domain.CheckStatus, failureReason string) error
	// SaveResult writes the terminal success state in a single update.
	SaveResult(ctx context.Context, id string, result domain.CheckResult) error
	Delete(ctx context.Context, id string) error
}

// UserRepository persists user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// ImageStore stores lesion images under a two-stage per-user layout.
type ImageStore interface {
	// SaveSkinCheck writes content into the user's processing area and
	// returns the storage-root-relative path.
	SaveSkinCheck(ctx context.Context, content []byte, userID, ext string) (string, error)
	// MoveToProcessed relocates a file from processing to processed.
	// moved=false with a nil error reports the lenient no-op (no
	// processing segment, or file already gone).
	MoveToProcessed(ctx context.Context, relPath string) (newRelPath string, moved bool, err error)
	// Delete removes the file if present and reports whether it did.
	Delete(ctx context.Context, relPath string) (bool, error)
	// AbsolutePath resolves relPath inside the storage root and verifies
	// the file exists.
	AbsolutePath(ctx context.Context, relPath string) (string, error)
}

// MessageQueue publishes/consumes classification jobs.
type MessageQueue interface {
	PublishCheckSubmitted(ctx context.Context, checkID string) error
	SubscribeCheckSubmitted(ctx context.Context, handler func(context.Context, string) error) error
}

// LesionClassifier maps a stored image to a label distribution.
type LesionClassifier interface {
	Predict(ctx context.Context, imagePath string) (domain.Prediction, error)
}

// Enricher turns a raw prediction into personalized text. Callers treat
// failures as degradation, not job failure.
type Enricher interface {
	Enrich(ctx context.Context, pred domain.Prediction, info domain.DiseaseInfo) (domain.Enrichment, error)
}

// ChatGenerator produces an assistant reply for a chat turn.
type ChatGenerator interface {
	Chat(ctx context.Context, history []domain.ChatMessage, message string) (string, error)
}
