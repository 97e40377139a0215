// Package classify provides the ticket category classifier and urgency
// scorer. Both come in two interchangeable variants: a keyword path with
// no external dependencies, and a model path backed by an injected
// zero-shot classifier / sentiment model.
package classify

import (
	"context"
	"strings"

	"github.com/triagex/backend/internal/core"
)

// Classifier maps free text to a support category.
type Classifier interface {
	Classify(ctx context.Context, text string) (core.Category, error)
}

// Scorer maps free text to an urgency score in [0, 1].
type Scorer interface {
	Score(ctx context.Context, text string) (float64, error)
}

// Keyword sets per category. Matching is case-insensitive substring search.
var (
	BillingKeywords = []string{
		"invoice", "payment", "charge", "refund", "billing", "subscription",
		"receipt", "overcharged", "price", "transaction", "credit card", "debit",
	}
	TechnicalKeywords = []string{
		"bug", "error", "crash", "broken", "not working", "login", "500",
		"timeout", "slow", "outage", "down", "failed", "integration", "api",
		"server", "null", "exception",
	}
	LegalKeywords = []string{
		"lawsuit", "legal", "compliance", "gdpr", "terms of service", "privacy",
		"attorney", "court", "contract", "violation", "copyright", "liability", "breach",
	}
	UrgencyFlags = []string{
		"asap", "urgent", "immediately", "critical", "emergency", "broken",
		"down", "not working", "losing money", "production", "outage",
		"right now", "as soon as possible",
	}
)

const (
	baseUrgency    = 0.1
	urgencyPerFlag = 0.2
)

// KeywordClassifier counts keyword hits per category and returns the
// unique argmax. General wins when nothing matched or two categories tie
// for the top count.
type KeywordClassifier struct{}

func (KeywordClassifier) Classify(_ context.Context, text string) (core.Category, error) {
	lowered := strings.ToLower(text)

	scores := map[core.Category]int{
		core.CategoryBilling:   countHits(lowered, BillingKeywords),
		core.CategoryTechnical: countHits(lowered, TechnicalKeywords),
		core.CategoryLegal:     countHits(lowered, LegalKeywords),
	}

	top := 0
	for _, s := range scores {
		if s > top {
			top = s
		}
	}
	if top == 0 {
		return core.CategoryGeneral, nil
	}

	var winner core.Category
	winners := 0
	for cat, s := range scores {
		if s == top {
			winner = cat
			winners++
		}
	}
	if winners > 1 {
		return core.CategoryGeneral, nil
	}
	return winner, nil
}

// KeywordScorer builds an urgency score from matched flag phrases:
// base 0.1, +0.2 per hit, clamped to 1.0.
type KeywordScorer struct{}

func (KeywordScorer) Score(_ context.Context, text string) (float64, error) {
	lowered := strings.ToLower(text)

	score := baseUrgency
	for _, flag := range UrgencyFlags {
		if strings.Contains(lowered, flag) {
			score += urgencyPerFlag
		}
	}
	if score > 1.0 {
		score = 1.0
	}
	return score, nil
}

func countHits(lowered string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(lowered, kw) {
			n++
		}
	}
	return n
}
