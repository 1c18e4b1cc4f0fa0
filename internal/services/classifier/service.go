// Package classifier maps a free-text trash description to a disposal category.
package classifier

import (
	"errors"
	"fmt"
	"strings"

	"waste-ninja-go/internal/models"
)

// DefaultRules is the keyword table in priority order. When keywords from
// several categories occur in one input, the earliest rule wins.
var DefaultRules = []models.KeywordRule{
	{
		Category: models.CategoryPlastic,
		Keywords: []string{"plastic", "bottle", "polyethylene", "polypropylene", "packaging"},
	},
	{
		Category: models.CategoryFood,
		Keywords: []string{
			"food", "peel", "leftover", "fruit", "vegetable", "meat", "banana peel", "bread",
			"compost", "rice", "banana", "coffee", "coffee grounds", "juice", "apple",
		},
	},
	{
		Category: models.CategoryPaper,
		Keywords: []string{"paper", "cardboard", "newspaper", "magazine", "book", "note", "envelope"},
	},
}

// Service is safe for concurrent use; its table is never mutated after NewService.
type Service struct {
	rules    []models.KeywordRule
	fallback models.Category
}

// NewService copies rules, lower-casing every keyword. Empty keywords are
// dropped since they would match every input.
func NewService(rules []models.KeywordRule, fallback models.Category) (*Service, error) {
	if !fallback.IsValid() {
		return nil, fmt.Errorf("invalid default category %q", fallback)
	}
	if len(rules) == 0 {
		return nil, errors.New("keyword table is empty")
	}

	table := make([]models.KeywordRule, 0, len(rules))
	for _, r := range rules {
		if !r.Category.IsValid() {
			return nil, fmt.Errorf("keyword rule has invalid category %q", r.Category)
		}
		kws := make([]string, 0, len(r.Keywords))
		for _, kw := range r.Keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				kws = append(kws, kw)
			}
		}
		table = append(table, models.KeywordRule{Category: r.Category, Keywords: kws})
	}

	return &Service{rules: table, fallback: fallback}, nil
}

// NewDefaultService uses DefaultRules with the given default category.
func NewDefaultService(fallback models.Category) (*Service, error) {
	return NewService(DefaultRules, fallback)
}

// Classify always returns one of the known categories.
func (s *Service) Classify(text string) models.Category {
	return s.ClassifyDetailed(text).Category
}

// ClassifyDetailed also reports which keyword decided the result.
func (s *Service) ClassifyDetailed(text string) models.Classification {
	lowered := strings.ToLower(text)
	for _, rule := range s.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lowered, kw) {
				return models.Classification{Input: text, Category: rule.Category, Keyword: kw, Matched: true}
			}
		}
	}
	return models.Classification{Input: text, Category: s.fallback}
}

// Rules returns a copy of the keyword table in priority order.
func (s *Service) Rules() []models.KeywordRule {
	out := make([]models.KeywordRule, len(s.rules))
	for i, r := range s.rules {
		out[i] = models.KeywordRule{Category: r.Category, Keywords: append([]string(nil), r.Keywords...)}
	}
	return out
}

// Default is the category returned when nothing matches.
func (s *Service) Default() models.Category {
	return s.fallback
}
