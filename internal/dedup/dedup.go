// Package dedup decides whether a candidate posting has been seen before.
package dedup

import (
	"strings"

	"github.com/internradar/internradar/internal/model"
)

// Index is the live identity set for one cycle. It is built from the Store
// snapshot loaded at the start of the cycle and grows as candidates are
// accepted, so duplicates from two sources in the same cycle are caught.
//
// A posting is known when either its link or its case-folded
// (company, role) pair was seen before. Link stays the primary identity;
// the pair also catches the same listing re-posted under a new link. A pair
// with either part empty identifies nothing, so cards missing a company
// are matched on their link alone.
//
// Index is not safe for concurrent use; the orchestrator is its only writer.
type Index struct {
	links map[string]struct{}
	pairs map[string]struct{}
}

// NewIndex builds an index over snapshot.
func NewIndex(snapshot []model.Posting) *Index {
	ix := &Index{
		links: make(map[string]struct{}, len(snapshot)),
		pairs: make(map[string]struct{}, len(snapshot)),
	}
	for _, p := range snapshot {
		ix.Add(p)
	}
	return ix
}

// IsNew reports whether no known posting shares p's identity.
func (ix *Index) IsNew(p model.Posting) bool {
	if link := linkKey(p); link != "" {
		if _, ok := ix.links[link]; ok {
			return false
		}
	}
	if pair := pairKey(p); pair != "" {
		if _, ok := ix.pairs[pair]; ok {
			return false
		}
	}
	return true
}

// Add folds p into the index.
func (ix *Index) Add(p model.Posting) {
	if link := linkKey(p); link != "" {
		ix.links[link] = struct{}{}
	}
	if pair := pairKey(p); pair != "" {
		ix.pairs[pair] = struct{}{}
	}
}

// Accept adds p and reports true if it was new, false if it is a duplicate.
func (ix *Index) Accept(p model.Posting) bool {
	if !ix.IsNew(p) {
		return false
	}
	ix.Add(p)
	return true
}

func linkKey(p model.Posting) string {
	return strings.TrimSpace(p.Link)
}

func pairKey(p model.Posting) string {
	company := strings.ToLower(strings.TrimSpace(p.Company))
	role := strings.ToLower(strings.TrimSpace(p.Role))
	if company == "" || role == "" {
		return ""
	}
	return company + "\x00" + role
}
