package filter

import (
	"strings"
)

// DefaultStrongTerms are in-domain AI/ML terms, including abbreviations.
var DefaultStrongTerms = []string{
	"artificial intelligence", "machine learning", "deep learning",
	"natural language processing", "computer vision", "data science",
	"data analyst", "data analytics", "data engineer", "data engineering",
	"big data", "tensorflow", "pytorch", "neural network", "llm",
	"chatgpt", "generative ai",
	"ai", "ml", "cv", "nlp", "dl",
}

// DefaultExclusionTerms are off-domain categories that disqualify a posting
// even when it also mentions an in-domain term.
var DefaultExclusionTerms = []string{
	"full-stack", "fullstack", "frontend", "front-end", "backend", "back-end",
	"web developer", "ui/ux", "graphic", "design", "marketing", "digital marketing",
	"finance", "financial analyst", "social media", "sales", "hr", "management",
	"manager", "business development", "business analyst", "content", "writer",
	"copywriter", "ambassador", "representative", "recruiter", "tester",
	"internship mela",
}

// RelevanceFilter classifies posting text as in-domain or not. Matching is
// case-insensitive substring matching with no tokenization, and exclusion
// terms are checked before strong terms.
type RelevanceFilter struct {
	strong    []string
	exclusion []string
}

// NewRelevanceFilter returns a filter over the given keyword sets. Keywords
// are lowercased once here so Classify stays allocation-light.
func NewRelevanceFilter(strong, exclusion []string) *RelevanceFilter {
	return &RelevanceFilter{
		strong:    lowerAll(strong),
		exclusion: lowerAll(exclusion),
	}
}

// NewDefaultRelevanceFilter returns a filter using the built-in keyword sets.
func NewDefaultRelevanceFilter() *RelevanceFilter {
	return NewRelevanceFilter(DefaultStrongTerms, DefaultExclusionTerms)
}

// Classify reports whether the title and description describe an AI/ML
// posting. A text that contains both an excluded and a strong term is rejected.
func (f *RelevanceFilter) Classify(title, description string) bool {
	text := strings.ToLower(title + " " + description)

	for _, ex := range f.exclusion {
		if strings.Contains(text, ex) {
			return false
		}
	}
	for _, kw := range f.strong {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
