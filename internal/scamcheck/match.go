// Package scamcheck looks up public forum discussions that mention a company
// next to scam vocabulary.
package scamcheck

import (
	"strings"
	"unicode/utf8"
)

// RiskKeywords are the phrases that mark a sentence as a scam report.
// Order matters: the first keyword found in a sentence is the one reported.
var RiskKeywords = []string{
	"scam", "fraud", "fake", "cheat", "ripoff", "not paid",
	"suspicious", "fake internship", "don't join", "avoid",
	"warning", "beware", "unpaid", "never pay", "red flag",
}

const (
	maxTitleRunes   = 100
	maxExcerptRunes = 200
)

// Match splits text into sentence-like segments on '.' and newlines and
// returns the first risk keyword found in a segment that also names company.
// A keyword elsewhere in the text, away from the company name, does not count.
func Match(text, company string) (string, bool) {
	company = strings.ToLower(strings.TrimSpace(company))
	if text == "" || company == "" {
		return "", false
	}
	segments := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return r == '.' || r == '\n'
	})
	for _, seg := range segments {
		if !strings.Contains(seg, company) {
			continue
		}
		for _, kw := range RiskKeywords {
			if strings.Contains(seg, kw) {
				return kw, true
			}
		}
	}
	return "", false
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
