package model

import (
	"context"
	"strings"
	"time"
)

// Platform identifies the listing site a posting was discovered on.
type Platform string

const (
	PlatformInternshala Platform = "Internshala"
	PlatformUnstop      Platform = "Unstop"
	PlatformLinkedIn    Platform = "LinkedIn"
)

// Status is the tracking status of an accepted posting.
type Status string

const StatusNew Status = "New"

// ScamStatus is the outcome of the forum scam check. Unknown means the check
// could not run; Clean only means no evidence was found.
type ScamStatus string

const (
	ScamClean     ScamStatus = "Clean"
	ScamSuspected ScamStatus = "Suspected"
	ScamUnknown   ScamStatus = "Unknown"
)

// FlagKind says whether a scam flag came from a post or a comment.
type FlagKind string

const (
	FlagPost    FlagKind = "post"
	FlagComment FlagKind = "comment"
)

// Unified representation of an internship listing from any platform.
type Posting struct {
	Company      string
	Role         string
	Platform     Platform
	Link         string // unique per platform, primary identity
	Stipend      string
	Duration     string
	Location     string
	Mode         string // Online / Offline
	Skills       []string
	DeadlineText string
	Description  string // only used for relevance filtering, never persisted

	// Set at enrichment time.
	PostingDate  time.Time
	Status       Status
	CoverMessage string
	ScamStatus   ScamStatus
	ScamFlags    []ScamFlag
}

// ScamFlag is one forum hit that mentions the company next to a risk keyword.
type ScamFlag struct {
	Kind           FlagKind `json:"kind"`
	Forum          string   `json:"forum"`
	PostTitle      string   `json:"post_title,omitempty"`
	MatchedKeyword string   `json:"matched_keyword"`
	Excerpt        string   `json:"excerpt"`
	Permalink      string   `json:"permalink"`
}

// UnknownCompany is shown in place of a company name the listing omitted.
const UnknownCompany = "Unknown"

// CompanyLabel returns the company name for display, or UnknownCompany when
// the listing had none. The stored Company field stays empty.
func (p Posting) CompanyLabel() string {
	if c := strings.TrimSpace(p.Company); c != "" {
		return c
	}
	return UnknownCompany
}

// IdentityKey returns the single key that names p: the link when present,
// otherwise the case-folded (company, role) pair. It is empty when p has no
// link and lacks either company or role. Adapters collapse repeats within one
// fetch on this key and SQLite stores it as the unique identity column.
// Cross-cycle dedup is stricter: dedup.Index matches on the link or the pair,
// so the same listing under a new link is still a duplicate there.
func IdentityKey(p Posting) string {
	if link := strings.TrimSpace(p.Link); link != "" {
		return "link:" + link
	}
	company := strings.ToLower(strings.TrimSpace(p.Company))
	role := strings.ToLower(strings.TrimSpace(p.Role))
	if company == "" || role == "" {
		return ""
	}
	return "cr:" + company + "\x00" + role
}

// Query carries the search parameters handed to every Source.
type Query struct {
	Location string
	Terms    []string
	MaxPages int
}

// Source fetches relevant postings from one listing platform.
type Source interface {
	Name() string
	Platform() Platform
	Fetch(ctx context.Context, q Query) ([]Posting, error)
}

// BlockingSource is implemented by sources that hold an OS resource for the
// whole fetch (a browser) and must run on the bounded worker pool.
type BlockingSource interface {
	Source
	Blocking() bool
}

// ScamSignalProvider looks up red-flag forum mentions of a company.
type ScamSignalProvider interface {
	Check(ctx context.Context, company string) ([]ScamFlag, error)
}

// Store is the durable posting set.
type Store interface {
	Load(ctx context.Context) ([]Posting, error)
	Save(ctx context.Context, postings []Posting) error
}

// Notifier delivers one alert.
type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}
