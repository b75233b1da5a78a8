package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/dermadoc/backend/internal/core/domain"
	"github.com/dermadoc/backend/internal/core/ports"
)

// ChatUseCase relays one non-streaming chat turn to the generative API.
type ChatUseCase struct {
	generator    ports.ChatGenerator
	historyLimit int
}

func NewChatUseCase(generator ports.ChatGenerator, historyLimit int) *ChatUseCase {
	if historyLimit <= 0 {
		historyLimit = 20
	}
	return &ChatUseCase{generator: generator, historyLimit: historyLimit}
}

func (uc *ChatUseCase) ChatSync(ctx context.Context, history []domain.ChatMessage, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "chat", fmt.Errorf("message is required"))
	}

	if len(history) > uc.historyLimit {
		history = history[len(history)-uc.historyLimit:]
	}

	reply, err := uc.generator.Chat(ctx, history, message)
	if err != nil {
		return "", fmt.Errorf("generate chat reply: %w", err)
	}
	return reply, nil
}
