package scamcheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/errgroup"

	"github.com/internradar/internradar/internal/model"
)

const (
	redditPublicURL = "https://www.reddit.com"
	redditOAuthURL  = "https://oauth.reddit.com"
	redditTokenURL  = "https://www.reddit.com/api/v1/access_token"
	redditLinkBase  = "https://reddit.com"

	topComments = 3
)

// DefaultForums are subreddits known to be reachable and to carry
// internship and employer complaints.
var DefaultForums = []string{"Scams", "IndiaCareers", "LegalAdviceIndia", "Advice", "jobs"}

// RedditConfig configures the Reddit provider. Without client credentials the
// public JSON endpoints are used, which Reddit rate limits more aggressively.
type RedditConfig struct {
	ClientID     string
	ClientSecret string
	UserAgent    string
	Forums       []string
	Limit        int // posts per forum
}

// Reddit searches each configured subreddit for the company name and scans
// matching posts and their top comments.
type Reddit struct {
	client  *http.Client
	baseURL string
	suffix  string // ".json" on the public endpoints
	ua      string
	forums  []string
	limit   int
	policy  *bluemonday.Policy
	logger  *slog.Logger
}

// NewReddit builds a provider. With credentials it authenticates using the
// OAuth2 client-credentials grant; tokens are refreshed transparently.
func NewReddit(cfg RedditConfig, logger *slog.Logger) *Reddit {
	if cfg.UserAgent == "" {
		cfg.UserAgent = "internradar/1.0"
	}
	if len(cfg.Forums) == 0 {
		cfg.Forums = DefaultForums
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 15
	}

	base := &http.Client{
		Timeout:   15 * time.Second,
		Transport: &userAgentTransport{ua: cfg.UserAgent, next: http.DefaultTransport},
	}

	r := &Reddit{
		client:  base,
		baseURL: redditPublicURL,
		suffix:  ".json",
		ua:      cfg.UserAgent,
		forums:  cfg.Forums,
		limit:   cfg.Limit,
		policy:  bluemonday.StrictPolicy(),
		logger:  logger,
	}

	if cfg.ClientID != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     redditTokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
		// The token endpoint also rejects requests without a User-Agent.
		tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		r.client = cc.Client(tokenCtx)
		r.client.Timeout = base.Timeout
		r.baseURL = redditOAuthURL
		r.suffix = ""
	}
	return r
}

// Check searches every forum concurrently and returns the union of their
// flags. A failing forum is logged and contributes nothing, so a partial
// outage still yields a result. When every forum fails Check returns an
// error wrapping each forum's SignalError, since an empty result would read
// as a clean company.
func (r *Reddit) Check(ctx context.Context, company string) ([]model.ScamFlag, error) {
	results := make([][]model.ScamFlag, len(r.forums))
	failures := make([]error, len(r.forums))

	var g errgroup.Group
	for i, forum := range r.forums {
		i, forum := i, forum
		g.Go(func() error {
			flags, err := r.searchForum(ctx, forum, company)
			if err != nil {
				sigErr := &model.SignalError{Forum: forum, Err: err}
				r.logger.Warn("forum search failed", "company", company, "error", sigErr)
				failures[i] = sigErr
				return nil
			}
			results[i] = flags
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var errs []error
	for _, err := range failures {
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(r.forums) > 0 && len(errs) == len(r.forums) {
		return nil, fmt.Errorf("all %d forums failed: %w", len(errs), errors.Join(errs...))
	}

	var all []model.ScamFlag
	for _, flags := range results {
		all = append(all, flags...)
	}
	r.logger.Debug("scam check complete", "company", company, "flags", len(all), "failed_forums", len(errs))
	return all, nil
}

func (r *Reddit) searchForum(ctx context.Context, forum, company string) ([]model.ScamFlag, error) {
	params := url.Values{}
	params.Set("q", company)
	params.Set("restrict_sr", "1")
	params.Set("limit", fmt.Sprint(r.limit))
	params.Set("sort", "relevance")

	var res listing
	endpoint := fmt.Sprintf("%s/r/%s/search%s?%s", r.baseURL, url.PathEscape(forum), r.suffix, params.Encode())
	if err := r.getJSON(ctx, endpoint, &res); err != nil {
		return nil, err
	}

	var flags []model.ScamFlag
	for _, child := range res.Data.Children {
		post := child.Data
		if kw, ok := Match(post.Title+" "+post.Selftext, company); ok {
			flags = append(flags, model.ScamFlag{
				Kind:           model.FlagPost,
				Forum:          forum,
				PostTitle:      truncate(post.Title, maxTitleRunes),
				MatchedKeyword: kw,
				Excerpt:        r.excerpt(post.Selftext),
				Permalink:      redditLinkBase + post.Permalink,
			})
		}

		comments, err := r.topComments(ctx, forum, post.ID)
		if err != nil {
			if ctx.Err() != nil {
				return flags, ctx.Err()
			}
			r.logger.Debug("comment fetch failed", "forum", forum, "post", post.ID, "error", err)
			continue
		}
		for _, c := range comments {
			if kw, ok := Match(c.Body, company); ok {
				flags = append(flags, model.ScamFlag{
					Kind:           model.FlagComment,
					Forum:          forum,
					PostTitle:      truncate(post.Title, maxTitleRunes),
					MatchedKeyword: kw,
					Excerpt:        r.excerpt(c.Body),
					Permalink:      redditLinkBase + c.Permalink,
				})
			}
		}
	}
	return flags, nil
}

// topComments returns up to three top-level comments of a post.
func (r *Reddit) topComments(ctx context.Context, forum, postID string) ([]thing, error) {
	if postID == "" {
		return nil, nil
	}
	params := url.Values{}
	params.Set("limit", fmt.Sprint(topComments))
	params.Set("depth", "1")
	params.Set("sort", "top")

	// The comments endpoint answers with [post listing, comment listing].
	var res []listing
	endpoint := fmt.Sprintf("%s/r/%s/comments/%s%s?%s", r.baseURL, url.PathEscape(forum), url.PathEscape(postID), r.suffix, params.Encode())
	if err := r.getJSON(ctx, endpoint, &res); err != nil {
		return nil, err
	}
	if len(res) < 2 {
		return nil, nil
	}

	var out []thing
	for _, child := range res[1].Data.Children {
		if child.Kind != "t1" {
			continue // "more" placeholders
		}
		out = append(out, child.Data)
		if len(out) == topComments {
			break
		}
	}
	return out, nil
}

func (r *Reddit) getJSON(ctx context.Context, endpoint string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", r.ua)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &model.HTTPError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("reddit returned %d", resp.StatusCode),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// excerpt strips markup from forum text and bounds its length. Reddit
// returns entity-escaped text, so it is unescaped on both sides of the
// sanitizer.
func (r *Reddit) excerpt(s string) string {
	s = html.UnescapeString(r.policy.Sanitize(html.UnescapeString(s)))
	return truncate(strings.Join(strings.Fields(s), " "), maxExcerptRunes)
}

type listing struct {
	Data struct {
		Children []struct {
			Kind string `json:"kind"`
			Data thing  `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type thing struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Selftext  string `json:"selftext"`
	Body      string `json:"body"`
	Permalink string `json:"permalink"`
}

type userAgentTransport struct {
	ua   string
	next http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.ua)
	return t.next.RoundTrip(req)
}
