package domain

import "time"

type CheckStatus string

const (
	StatusPending    CheckStatus = "pending"
	StatusProcessing CheckStatus = "processing"
	StatusProcessed  CheckStatus = "processed"
	StatusFailed     CheckStatus = "failed"
)

// ParseCheckStatus validates a status string coming from the outside
// (query filters, stored rows). Empty input means "no filter".
func ParseCheckStatus(raw string) (CheckStatus, bool) {
	switch CheckStatus(raw) {
	case "", StatusPending, StatusProcessing, StatusProcessed, StatusFailed:
		return CheckStatus(raw), true
	default:
		return "", false
	}
}

// SkinCheck is one submitted lesion image and its classification lifecycle.
// DiseaseType, Confidence and Predictions are set together, exactly once,
// when classification succeeds; they are never present individually.
type SkinCheck struct {
	ID                     string             `json:"id"`
	UserID                 string             `json:"user_id"`
	RelativePath           string             `json:"relative_path"`
	Status                 CheckStatus        `json:"status"`
	BodyPart               string             `json:"body_part,omitempty"`
	DiseaseType            string             `json:"disease_type,omitempty"`
	Confidence             float64            `json:"confidence,omitempty"`
	Predictions            map[string]float64 `json:"predictions,omitempty"`
	EnrichedDescription    string             `json:"enriched_description,omitempty"`
	EnrichedRecommendation string             `json:"enriched_recommendation,omitempty"`
	FailureReason          string             `json:"failure_reason,omitempty"`
	CreatedAt              time.Time          `json:"created_at"`
	UpdatedAt              time.Time          `json:"updated_at"`
}

// Prediction is the classifier output: the arg-max label, its probability,
// and the full softmax distribution over DiseaseLabels (sums to 1).
type Prediction struct {
	DiseaseType string             `json:"disease_type"`
	Confidence  float64            `json:"confidence"`
	Predictions map[string]float64 `json:"predictions"`
}

// Enrichment is the generated elaboration of a prediction. When the
// generative call fails the static catalog text is used instead.
type Enrichment struct {
	Description    string `json:"description"`
	Recommendation string `json:"recommendation"`
}

// CheckResult is everything the pipeline persists on success in a single
// update: classification, enrichment (or catalog fallback) and the
// post-move file location.
type CheckResult struct {
	Prediction     Prediction
	Description    string
	Recommendation string
	RelativePath   string
}
