// Package lesionnet runs the skin lesion classification model: a pooled
// feature extractor over the input image followed by a trained linear
// head producing a softmax over the disease labels.
package lesionnet

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/dermadoc/backend/internal/core/domain"
)

const defaultParallelism = 2

type Options struct {
	WeightsPath string
	// Parallelism caps concurrent inferences. Zero means the default.
	Parallelism int
}

// Classifier is an explicit handle around the lazily loaded model. The
// weights are read from disk once, on first use, and shared by all
// subsequent predictions.
type Classifier struct {
	weightsPath string
	slots       chan struct{}

	loadOnce sync.Once
	loadErr  error
	head     *linearHead
}

func New(opts Options) *Classifier {
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = defaultParallelism
	}
	return &Classifier{
		weightsPath: opts.WeightsPath,
		slots:       make(chan struct{}, parallelism),
	}
}

// Predict classifies the image at imagePath and returns the winning label
// with the full probability distribution.
func (c *Classifier) Predict(ctx context.Context, imagePath string) (domain.Prediction, error) {
	select {
	case c.slots <- struct{}{}:
		defer func() { <-c.slots }()
	case <-ctx.Done():
		return domain.Prediction{}, domain.WrapError(domain.ErrTemporary, "classify", ctx.Err())
	}

	head, err := c.model()
	if err != nil {
		return domain.Prediction{}, err
	}

	start := time.Now()
	features, err := loadFeatures(imagePath)
	if err != nil {
		return domain.Prediction{}, domain.WrapError(domain.ErrInvalidInput, "classify", err)
	}

	probs := softmax(head.apply(features))

	best := 0
	predictions := make(map[string]float64, len(domain.DiseaseLabels))
	for i, label := range domain.DiseaseLabels {
		predictions[label] = probs[i]
		if probs[i] > probs[best] {
			best = i
		}
	}

	slog.Debug("inference complete",
		"image", imagePath,
		"disease_type", domain.DiseaseLabels[best],
		"duration", time.Since(start),
	)

	return domain.Prediction{
		DiseaseType: domain.DiseaseLabels[best],
		Confidence:  probs[best],
		Predictions: predictions,
	}, nil
}

// model loads the weights on first call. A failed load is sticky so a
// broken weights file fails every prediction instead of retrying disk IO.
func (c *Classifier) model() (*linearHead, error) {
	c.loadOnce.Do(func() {
		start := time.Now()
		c.head, c.loadErr = loadWeights(c.weightsPath, featureDim, len(domain.DiseaseLabels))
		if c.loadErr == nil {
			slog.Info("classification model loaded",
				"weights", c.weightsPath,
				"duration", time.Since(start),
			)
		}
	})
	if c.loadErr != nil {
		return nil, fmt.Errorf("load model weights: %w", c.loadErr)
	}
	return c.head, nil
}

// softmax converts raw scores to probabilities, shifting by the max score
// for numerical stability.
func softmax(scores []float64) []float64 {
	maxScore := scores[0]
	for _, s := range scores[1:] {
		if s > maxScore {
			maxScore = s
		}
	}
	var sum float64
	probs := make([]float64, len(scores))
	for i, s := range scores {
		probs[i] = math.Exp(s - maxScore)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}
