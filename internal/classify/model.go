package classify

import (
	"context"

	"github.com/triagex/backend/internal/core"
)

// ZeroShotModel is the external classifier model contract. Candidates are
// the real category labels; the model returns the best label with its
// confidence.
type ZeroShotModel interface {
	Classify(ctx context.Context, text string, candidates []string) (label string, confidence float64, err error)
}

// SentimentModel is the external sentiment model contract.
type SentimentModel interface {
	Sentiment(ctx context.Context, text string) (polarity string, confidence float64, err error)
}

// Sentiment polarities returned by SentimentModel.
const (
	PolarityPositive = "positive"
	PolarityNegative = "negative"
	PolarityNeutral  = "neutral"
)

// minLabelConfidence is the floor under which the zero-shot result is
// discarded in favor of General.
const minLabelConfidence = 0.25

var zeroShotLabels = []string{
	string(core.CategoryBilling),
	string(core.CategoryTechnical),
	string(core.CategoryLegal),
}

// ModelClassifier runs a zero-shot classifier over the three real labels.
type ModelClassifier struct {
	Model ZeroShotModel
}

func (m *ModelClassifier) Classify(ctx context.Context, text string) (core.Category, error) {
	label, confidence, err := m.Model.Classify(ctx, text, zeroShotLabels)
	if err != nil {
		return core.CategoryGeneral, err
	}
	if confidence < minLabelConfidence {
		return core.CategoryGeneral, nil
	}
	switch core.Category(label) {
	case core.CategoryBilling, core.CategoryTechnical, core.CategoryLegal:
		return core.Category(label), nil
	default:
		return core.CategoryGeneral, nil
	}
}

// SentimentScorer derives urgency from sentiment polarity:
//
//	positive → 1 − confidence
//	negative → confidence × 0.9 (dampened)
//	neutral  → confidence × 0.45
//
// The neutral coefficient is 0.45, keeping a fully confident neutral
// ticket just under the 0.5 midpoint.
type SentimentScorer struct {
	Model SentimentModel
}

func (s *SentimentScorer) Score(ctx context.Context, text string) (float64, error) {
	polarity, confidence, err := s.Model.Sentiment(ctx, text)
	if err != nil {
		return 0, err
	}

	var urgency float64
	switch polarity {
	case PolarityPositive:
		urgency = 1.0 - confidence
	case PolarityNegative:
		urgency = confidence * 0.9
	default:
		urgency = confidence * 0.45
	}

	if urgency < 0 {
		urgency = 0
	}
	if urgency > 1 {
		urgency = 1
	}
	return urgency, nil
}
