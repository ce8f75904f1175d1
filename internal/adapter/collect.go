package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/internradar/internradar/internal/model"
	"github.com/internradar/internradar/internal/ratelimit"
)

// Classifier decides whether posting text is in-domain.
type Classifier interface {
	Classify(title, description string) bool
}

// pageFunc fetches one results page for a search term. An empty result means
// the term has no more pages.
type pageFunc func(ctx context.Context, term string, page int) ([]model.Posting, error)

// collector runs the terms × pages sub-queries shared by every adapter:
// pages are fetched in order, spaced by the platform limiter, collapsed by
// identity within the fetch, and filtered for relevance.
type collector struct {
	name       string
	classifier Classifier
	limiter    *ratelimit.Limiter
	logger     *slog.Logger
}

func (c *collector) collect(ctx context.Context, terms []string, maxPages int, fetch pageFunc) ([]model.Posting, error) {
	if maxPages < 1 {
		maxPages = 1
	}

	var (
		results  []model.Posting
		seen     = make(map[string]struct{})
		failures []error
		scanned  int
		rejected int
	)

	for _, term := range terms {
		for page := 1; page <= maxPages; page++ {
			if c.limiter != nil {
				if err := c.limiter.Wait(ctx, c.name); err != nil {
					return nil, err
				}
			}

			batch, err := fetch(ctx, term, page)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				c.logger.Warn("page fetch failed",
					"source", c.name, "term", term, "page", page, "error", err)
				// Only a failed first page counts against the term; later
				// pages just end pagination early.
				if page == 1 {
					failures = append(failures, fmt.Errorf("term %q: %w", term, err))
				}
				break
			}
			if len(batch) == 0 {
				break
			}

			for _, p := range batch {
				scanned++
				if p.Role == "" {
					continue
				}
				if key := model.IdentityKey(p); key != "" {
					if _, dup := seen[key]; dup {
						continue
					}
					seen[key] = struct{}{}
				}
				if c.classifier != nil && !c.classifier.Classify(p.Role, p.Description) {
					rejected++
					continue
				}
				results = append(results, p)
			}
			c.logger.Debug("page collected",
				"source", c.name, "term", term, "page", page, "cards", len(batch), "total", len(results))
		}
	}

	if len(terms) > 0 && len(failures) == len(terms) {
		return nil, fmt.Errorf("%s: every search term failed: %w", c.name, errors.Join(failures...))
	}

	c.logger.Info("source fetched",
		"source", c.name,
		"scanned", scanned,
		"rejected", rejected,
		"relevant", len(results),
	)
	return results, nil
}
