package ports

import (
	"context"

	"github.com/dermadoc/backend/internal/core/domain"
)

// CheckSubmitter is the inbound contract for skin-check upload orchestration.
type CheckSubmitter interface {
	Submit(ctx context.Context, userID, filename, bodyPart string, content []byte) (*domain.SkinCheck, error)
}

// CheckProcessor is the inbound contract for asynchronous classification.
type CheckProcessor interface {
	ProcessByID(ctx context.Context, checkID string) error
}

// CheckQueryService is the inbound read/delete model for skin checks.
type CheckQueryService interface {
	Get(ctx context.Context, userID, checkID string) (*domain.SkinCheck, error)
	List(ctx context.Context, userID string, status domain.CheckStatus) ([]domain.SkinCheck, error)
	Delete(ctx context.Context, userID, checkID string) error
	ExportXLSX(ctx context.Context, userID string) ([]byte, error)
}

// AuthService issues and verifies user credentials and access tokens.
type AuthService interface {
	Signup(ctx context.Context, input SignupInput) (*domain.User, string, error)
	Login(ctx context.Context, email, password string) (*domain.User, string, error)
	UserFromToken(ctx context.Context, token string) (*domain.User, error)
}

// SignupInput carries the fields required to register a user.
type SignupInput struct {
	Name      string
	Email     string
	Password  string
	Birthdate string
	Gender    string
}

// ChatService relays a non-streaming chat turn to the generative API.
type ChatService interface {
	ChatSync(ctx context.Context, history []domain.ChatMessage, message string) (string, error)
}
