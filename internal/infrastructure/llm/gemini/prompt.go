package gemini

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dermadoc/backend/internal/core/domain"
)

// dermaDocSystemInstructions keeps the chat assistant inside the
// dermatology domain.
const dermaDocSystemInstructions = `You are DermaDoc, a specialized AI assistant for skin health and dermatology ONLY.

CRITICAL RULES - You MUST follow these strictly:
1. ONLY answer questions about: skin health, dermatology, skincare routines, skin conditions, skin diseases, skin care products, skin treatments, and skin-related medical topics.
2. ALWAYS politely decline and redirect questions about: general topics, other medical fields, technology, science (unless skin-related), history, math, entertainment, sports, news, programming, or ANY topic not directly related to skin health.
3. When declining, say: "I'm DermaDoc, specialized in skin health only. I can help with skin conditions, skincare, or dermatological questions. What skin health concern can I assist you with?"
4. Provide evidence-based information ONLY for skin-related topics.
5. Always remind users you're not a replacement for professional medical advice - they should consult a dermatologist for serious concerns.

Your expertise is LIMITED to dermatology and skin health. Acknowledge this limitation clearly when asked about other topics.`

// dermaDocInitialGreeting opens a conversation that has no prior history.
const dermaDocInitialGreeting = "Hello! I'm DermaDoc, your specialized AI assistant for skin health and dermatology. I can help you with questions about skin conditions, skincare routines, dermatological concerns, and skin-related health topics. What would you like to know about your skin health today?"

func buildEnrichmentPrompt(pred domain.Prediction, info domain.DiseaseInfo) string {
	labels := make([]string, 0, len(pred.Predictions))
	for label := range pred.Predictions {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	var distribution strings.Builder
	for _, label := range labels {
		fmt.Fprintf(&distribution, "%s: %.4f\n", label, pred.Predictions[label])
	}

	return fmt.Sprintf(`You are a dermatology assistant writing patient-facing text for one skin lesion classification result.
Return strict JSON object with keys:
description (string), recommendation (string).
No markdown, no extra keys.

The description explains the detected condition in plain language. The recommendation tells the patient what to do next and must mention that this is not a medical diagnosis and a dermatologist should be consulted.

Detected condition: %s (%s)
Severity: %s
Model confidence: %.4f
Full probability distribution:
%s
Reference description: %s
Reference recommendation: %s
`,
		info.Name,
		pred.DiseaseType,
		info.Severity,
		pred.Confidence,
		distribution.String(),
		info.Description,
		info.Recommendation,
	)
}
