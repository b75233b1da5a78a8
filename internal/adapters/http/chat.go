package httpadapter

import (
	"encoding/json"
	"net/http"

	"github.com/dermadoc/backend/internal/core/domain"
)

func (rt *Router) chatSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Message             string               `json:"message"`
		ConversationHistory []domain.ChatMessage `json:"conversation_history"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	reply, err := rt.chatUC.ChatSync(r.Context(), req.ConversationHistory, req.Message)
	if err != nil {
		writeError(w, err)
		return
	}

	history := append(req.ConversationHistory,
		domain.ChatMessage{Role: domain.ChatRoleUser, Content: req.Message},
		domain.ChatMessage{Role: domain.ChatRoleAssistant, Content: reply},
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"response":             reply,
		"conversation_history": history,
	})
}
