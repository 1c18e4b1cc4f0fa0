package models

import (
	"fmt"
	"strings"
)

// Category is a disposal bin the classifier can pick.
type Category string

const (
	CategoryPaper   Category = "paper"
	CategoryPlastic Category = "plastic"
	CategoryFood    Category = "food"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryPaper, CategoryPlastic, CategoryFood}

// String returns the string representation of Category
func (c Category) String() string {
	return string(c)
}

// IsValid checks if the category is one of the known bins
func (c Category) IsValid() bool {
	switch c {
	case CategoryPaper, CategoryPlastic, CategoryFood:
		return true
	default:
		return false
	}
}

// ParseCategory accepts any casing and surrounding whitespace.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// KeywordRule maps a category to the lowercase substrings that indicate it.
type KeywordRule struct {
	Category Category `json:"category"`
	Keywords []string `json:"keywords"`
}

// Classification is the detailed result of classifying one input.
type Classification struct {
	Input    string   `json:"-"`
	Category Category `json:"category"`
	Keyword  string   `json:"keyword,omitempty"` // keyword that matched, empty when the default applied
	Matched  bool     `json:"matched"`
}
