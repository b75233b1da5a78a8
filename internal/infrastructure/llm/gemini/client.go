// Package gemini talks to the Google generative language REST API for
// result enrichment and the DermaDoc chat assistant.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dermadoc/backend/internal/core/domain"
	"github.com/dermadoc/backend/internal/infrastructure/resilience"
)

const (
	roleUser  = "user"
	roleModel = "model"
)

type Client struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, model, apiKey string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateRequest struct {
	SystemInstruction *content          `json:"system_instruction,omitempty"`
	Contents          []content         `json:"contents"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	ResponseMimeType string `json:"responseMimeType,omitempty"`
}

// generateContent posts one generation request and returns the text of
// the first candidate. Calls run under the resilience executor.
func (c *Client) generateContent(ctx context.Context, request generateRequest) (string, error) {
	path := fmt.Sprintf("/v1beta/models/%s:generateContent", c.model)

	var response struct {
		Candidates []struct {
			Content struct {
				Parts []part `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}

	call := func(ctx context.Context) error {
		return c.postJSON(ctx, path, request, &response, "generate")
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "gemini.generate", call, classifyGeminiError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", wrapTemporaryIfNeeded("gemini generate", err)
	}

	if len(response.Candidates) == 0 || len(response.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini generate: empty candidate list")
	}
	return strings.TrimSpace(response.Candidates[0].Content.Parts[0].Text), nil
}

// Enricher turns a classification result into patient-facing text.
type Enricher struct {
	client *Client
}

func NewEnricher(client *Client) *Enricher {
	return &Enricher{client: client}
}

func (e *Enricher) Enrich(ctx context.Context, pred domain.Prediction, info domain.DiseaseInfo) (domain.Enrichment, error) {
	text, err := e.client.generateContent(ctx, generateRequest{
		Contents: []content{
			{Role: roleUser, Parts: []part{{Text: buildEnrichmentPrompt(pred, info)}}},
		},
		GenerationConfig: &generationConfig{ResponseMimeType: "application/json"},
	})
	if err != nil {
		return domain.Enrichment{}, err
	}

	var result struct {
		Description    string `json:"description"`
		Recommendation string `json:"recommendation"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(text)), &result); err != nil {
		return domain.Enrichment{}, fmt.Errorf("parse enrichment json: %w", err)
	}
	if strings.TrimSpace(result.Description) == "" || strings.TrimSpace(result.Recommendation) == "" {
		return domain.Enrichment{}, fmt.Errorf("enrichment response missing fields")
	}
	return domain.Enrichment{
		Description:    result.Description,
		Recommendation: result.Recommendation,
	}, nil
}

// ChatRelay answers one chat turn with the DermaDoc persona.
type ChatRelay struct {
	client *Client
}

func NewChatRelay(client *Client) *ChatRelay {
	return &ChatRelay{client: client}
}

func (r *ChatRelay) Chat(ctx context.Context, history []domain.ChatMessage, message string) (string, error) {
	contents := make([]content, 0, len(history)+2)
	if len(history) == 0 {
		contents = append(contents, content{Role: roleModel, Parts: []part{{Text: dermaDocInitialGreeting}}})
	}
	for _, msg := range history {
		// The greeting is injected client side and carries no signal.
		if msg.Role == domain.ChatRoleAssistant && strings.Contains(msg.Content, "Hello! I'm DermaDoc") {
			continue
		}
		role := roleUser
		if msg.Role == domain.ChatRoleAssistant {
			role = roleModel
		}
		contents = append(contents, content{Role: role, Parts: []part{{Text: msg.Content}}})
	}
	contents = append(contents, content{Role: roleUser, Parts: []part{{Text: message}}})

	return r.client.generateContent(ctx, generateRequest{
		SystemInstruction: &content{Parts: []part{{Text: dermaDocSystemInstructions}}},
		Contents:          contents,
	})
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
