package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"

	"github.com/internradar/internradar/internal/browser"
	"github.com/internradar/internradar/internal/model"
	"github.com/internradar/internradar/internal/ratelimit"
)

const (
	unstopListingURL = "https://unstop.com/internships?oppstatus=open&a=2&quickApply=true&usertype=students&passingOutYear=2027"
	unstopLinkPrefix = "https://unstop.com/internships/"

	unstopSearchSelector = "input[placeholder*='Search']"
	unstopMaxScrolls     = 25
)

// DefaultUnstopTerms are the searches typed into the Unstop search box.
var DefaultUnstopTerms = []string{
	"AI", "Machine Learning", "Artificial Intelligence",
	"Deep Learning", "Data Science", "NLP",
	"Computer Vision", "Data Analyst", "Data Engineer", "PyTorch",
}

// unstopSession is one open listing page that can be searched repeatedly.
type unstopSession interface {
	// Search runs term through the site search box and returns the rendered
	// result HTML once infinite scroll has settled.
	Search(ctx context.Context, term string) (string, error)
	Close() error
}

type unstopOpener func(ctx context.Context, listingURL string) (unstopSession, error)

// UnstopAdapter drives the client-rendered Unstop listing through a headless
// browser. It holds Chrome for the whole fetch, so it reports Blocking.
type UnstopAdapter struct {
	offline bool
	open    unstopOpener
	collector
}

// NewUnstopAdapter creates an Unstop source. Offline mode restricts the
// listing to the query location and tags postings "Offline".
func NewUnstopAdapter(offline bool, browserCfg browser.Config, settle time.Duration, classifier Classifier, limiter *ratelimit.Limiter, logger *slog.Logger) *UnstopAdapter {
	name := "unstop"
	if offline {
		name = "unstop-offline"
	}
	return &UnstopAdapter{
		offline: offline,
		open:    rodOpener(browserCfg, settle),
		collector: collector{
			name:       name,
			classifier: classifier,
			limiter:    limiter,
			logger:     logger,
		},
	}
}

func (a *UnstopAdapter) Name() string             { return a.name }
func (a *UnstopAdapter) Platform() model.Platform { return model.PlatformUnstop }
func (a *UnstopAdapter) Blocking() bool           { return true }

// Fetch opens one browser page and runs every term on it. Unstop results are
// one infinite-scroll list per term, so there is exactly one page per term.
func (a *UnstopAdapter) Fetch(ctx context.Context, q model.Query) ([]model.Posting, error) {
	terms := q.Terms
	if len(terms) == 0 {
		terms = DefaultUnstopTerms
	}

	listing := unstopListingURL
	mode := "Online"
	if a.offline {
		mode = "Offline"
		if q.Location != "" {
			listing += "&location=" + url.QueryEscape(q.Location)
		}
	}

	sess, err := a.open(ctx, listing)
	if err != nil {
		return nil, fmt.Errorf("%s: open listing: %w", a.name, err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			a.logger.Warn("closing browser session failed", "source", a.name, "error", cerr)
		}
	}()

	return a.collect(ctx, terms, 1, func(ctx context.Context, term string, _ int) ([]model.Posting, error) {
		html, err := sess.Search(ctx, term)
		if err != nil {
			return nil, err
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			return nil, fmt.Errorf("parse results for %q: %w", term, err)
		}
		return parseUnstopCards(doc, mode), nil
	})
}

// parseUnstopCards extracts postings from the rendered result list. Cards
// whose id carries no numeric suffix have no stable link and are skipped.
func parseUnstopCards(doc *goquery.Document, mode string) []model.Posting {
	var postings []model.Posting
	doc.Find("div.cursor-pointer.single_profile").Each(func(_ int, card *goquery.Selection) {
		title := cleanText(card.Find("div.opp-title h2").First().Text())
		if title == "" {
			return
		}
		id, _ := card.Attr("id")
		_, numericID, ok := strings.Cut(id, "_")
		if !ok || numericID == "" {
			return
		}

		postings = append(postings, model.Posting{
			Company:      selText(card, "p", ""),
			Role:         title,
			Platform:     model.PlatformUnstop,
			Link:         unstopLinkPrefix + numericID,
			DeadlineText: selText(card, "div.seperate_box span", ""),
			Mode:         mode,
			Description:  cleanText(card.Text()),
		})
	})
	return postings
}

// rodOpener launches Chrome per fetch; the session owns it until Close.
func rodOpener(cfg browser.Config, settle time.Duration) unstopOpener {
	return func(ctx context.Context, listingURL string) (unstopSession, error) {
		sess, err := browser.Launch(ctx, cfg)
		if err != nil {
			return nil, err
		}
		page, err := sess.OpenPage(ctx, listingURL)
		if err != nil {
			sess.Close()
			return nil, err
		}
		return &rodUnstopSession{browser: sess, page: page, settle: settle}, nil
	}
}

type rodUnstopSession struct {
	browser *browser.Session
	page    *rod.Page
	settle  time.Duration
}

func (s *rodUnstopSession) Search(ctx context.Context, term string) (string, error) {
	page := s.page.Context(ctx)

	box, err := page.Timeout(10 * time.Second).Element(unstopSearchSelector)
	if err != nil {
		return "", fmt.Errorf("search box not found: %w", err)
	}
	box = box.CancelTimeout()
	if err := box.SelectAllText(); err != nil {
		return "", fmt.Errorf("clear search box: %w", err)
	}
	if err := box.Input(term); err != nil {
		return "", fmt.Errorf("type %q: %w", term, err)
	}
	if err := box.Type(input.Enter); err != nil {
		return "", fmt.Errorf("submit %q: %w", term, err)
	}
	if err := sleepCtx(ctx, s.settle); err != nil {
		return "", err
	}

	if err := s.scrollToEnd(ctx, page); err != nil {
		return "", err
	}
	return page.HTML()
}

// scrollToEnd keeps scrolling until the document height stops growing.
func (s *rodUnstopSession) scrollToEnd(ctx context.Context, page *rod.Page) error {
	last := -1
	for i := 0; i < unstopMaxScrolls; i++ {
		res, err := page.Eval(`() => { window.scrollTo(0, document.body.scrollHeight); return document.body.scrollHeight; }`)
		if err != nil {
			return fmt.Errorf("scroll: %w", err)
		}
		height := res.Value.Int()
		if height == last {
			return nil
		}
		last = height
		if err := sleepCtx(ctx, s.settle/2); err != nil {
			return err
		}
	}
	return nil
}

func (s *rodUnstopSession) Close() error {
	return s.browser.Close()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
