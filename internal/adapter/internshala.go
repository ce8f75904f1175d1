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

const internshalaBaseURL = "https://internshala.com"

// DefaultInternshalaTerms are the keyword searches run when none are configured.
var DefaultInternshalaTerms = []string{"Machine Learning", "Data Science"}

// InternshalaAdapter scrapes the Internshala keyword search result pages.
type InternshalaAdapter struct {
	baseURL string
	client  *http.Client
	collector
}

// NewInternshalaAdapter creates an adapter that fetches server-rendered search pages.
func NewInternshalaAdapter(client *http.Client, classifier Classifier, limiter *ratelimit.Limiter, logger *slog.Logger) *InternshalaAdapter {
	return &InternshalaAdapter{
		baseURL: internshalaBaseURL,
		client:  client,
		collector: collector{
			name:       "internshala",
			classifier: classifier,
			limiter:    limiter,
			logger:     logger,
		},
	}
}

func (a *InternshalaAdapter) Name() string             { return a.name }
func (a *InternshalaAdapter) Platform() model.Platform { return model.PlatformInternshala }

// Fetch runs every configured term across up to q.MaxPages result pages.
func (a *InternshalaAdapter) Fetch(ctx context.Context, q model.Query) ([]model.Posting, error) {
	terms := q.Terms
	if len(terms) == 0 {
		terms = DefaultInternshalaTerms
	}
	return a.collect(ctx, terms, q.MaxPages, a.fetchPage)
}

func (a *InternshalaAdapter) fetchPage(ctx context.Context, term string, page int) ([]model.Posting, error) {
	pageURL := fmt.Sprintf("%s/internships/keywords/%s/page-%d", a.baseURL, url.PathEscape(term), page)
	doc, err := fetchDocument(ctx, a.client, pageURL)
	if err != nil {
		return nil, err
	}
	return parseInternshalaCards(doc, a.baseURL), nil
}

// parseInternshalaCards extracts postings from one search result page. Cards
// without a title link are skipped.
func parseInternshalaCards(doc *goquery.Document, baseURL string) []model.Posting {
	var postings []model.Posting
	doc.Find("div.individual_internship").Each(func(_ int, card *goquery.Selection) {
		titleTag := card.Find("a.job-title-href").First()
		if titleTag.Length() == 0 {
			return
		}
		title := cleanText(titleTag.Text())
		if title == "" {
			return
		}
		href, _ := titleTag.Attr("href")

		var skills []string
		card.Find("div.job_skill").Each(func(_ int, s *goquery.Selection) {
			if skill := cleanText(s.Text()); skill != "" {
				skills = append(skills, skill)
			}
		})

		postings = append(postings, model.Posting{
			Company:     selText(card, "p.company-name", ""),
			Role:        title,
			Platform:    model.PlatformInternshala,
			Link:        absoluteLink(baseURL, href),
			Location:    iconSiblingText(card, "ic-16-map-pin", "Remote"),
			Stipend:     iconSiblingText(card, "ic-16-money", "Not disclosed"),
			Duration:    iconSiblingText(card, "ic-16-calendar", "Not specified"),
			Mode:        "Online",
			Skills:      skills,
			Description: strings.ToLower(cleanText(card.Find("div.about_job").Text())),
		})
	})
	return postings
}

// absoluteLink resolves href against baseURL. Hrefs that are already absolute
// pass through untouched.
func absoluteLink(baseURL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(href, "/")
}
