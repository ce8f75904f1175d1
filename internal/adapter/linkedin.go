package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/internradar/internradar/internal/model"
	"github.com/internradar/internradar/internal/ratelimit"
)

const (
	linkedInBaseURL  = "https://www.linkedin.com"
	linkedInPageSize = 25
)

// DefaultLinkedInTerms are searched when none are configured.
var DefaultLinkedInTerms = []string{"Data Science", "Machine Learning", "AI"}

// LinkedInAdapter reads the public guest job-search fragment, restricted to
// internships (f_JT=I).
type LinkedInAdapter struct {
	baseURL string
	client  *http.Client
	collector
}

// NewLinkedInAdapter creates a LinkedIn guest-search source.
func NewLinkedInAdapter(client *http.Client, classifier Classifier, limiter *ratelimit.Limiter, logger *slog.Logger) *LinkedInAdapter {
	return &LinkedInAdapter{
		baseURL: linkedInBaseURL,
		client:  client,
		collector: collector{
			name:       "linkedin",
			classifier: titleOnly{classifier},
			limiter:    limiter,
			logger:     logger,
		},
	}
}

func (a *LinkedInAdapter) Name() string             { return a.name }
func (a *LinkedInAdapter) Platform() model.Platform { return model.PlatformLinkedIn }

func (a *LinkedInAdapter) Fetch(ctx context.Context, q model.Query) ([]model.Posting, error) {
	terms := q.Terms
	if len(terms) == 0 {
		terms = DefaultLinkedInTerms
	}
	return a.collect(ctx, terms, q.MaxPages, func(ctx context.Context, term string, page int) ([]model.Posting, error) {
		params := url.Values{}
		params.Set("keywords", term)
		params.Set("location", q.Location)
		params.Set("f_JT", "I")
		params.Set("start", fmt.Sprint((page-1)*linkedInPageSize))
		doc, err := fetchDocument(ctx, a.client, a.baseURL+"/jobs-guest/jobs/api/seeMoreJobPostings/search?"+params.Encode())
		if err != nil {
			return nil, err
		}
		return parseLinkedInCards(doc), nil
	})
}

func parseLinkedInCards(doc *goquery.Document) []model.Posting {
	var postings []model.Posting
	doc.Find("div.base-search-card").Each(func(_ int, card *goquery.Selection) {
		title := selText(card, "h3.base-search-card__title", "")
		if title == "" {
			return
		}
		href, _ := card.Find("a.base-card__full-link").First().Attr("href")
		// Strip tracking parameters so the link stays stable between polls.
		if i := strings.IndexByte(href, '?'); i >= 0 {
			href = href[:i]
		}
		postings = append(postings, model.Posting{
			Company:  selText(card, "h4.base-search-card__subtitle", ""),
			Role:     title,
			Platform: model.PlatformLinkedIn,
			Link:     strings.TrimSpace(href),
			Location: selText(card, "span.job-search-card__location", ""),
		})
	})
	return postings
}

// titleOnly judges relevance on the title alone; guest cards carry no
// description.
type titleOnly struct{ Classifier }

func (t titleOnly) Classify(title, _ string) bool {
	if t.Classifier == nil {
		return true
	}
	return t.Classifier.Classify(title, "")
}
