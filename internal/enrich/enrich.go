// Package enrich turns an accepted candidate into a stored posting: it stamps
// tracking fields, attaches a cover message and runs the scam check.
package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/internradar/internradar/internal/model"
)

// CoverWriter renders an outreach message for (company, role).
type CoverWriter interface {
	Render(company, role string) (string, error)
}

// Enricher is safe for concurrent use; the orchestrator runs one Enrich per
// accepted candidate in parallel.
type Enricher struct {
	scam   model.ScamSignalProvider
	cover  CoverWriter
	now    func() time.Time
	logger *slog.Logger
}

func New(scam model.ScamSignalProvider, cover CoverWriter, logger *slog.Logger) *Enricher {
	return &Enricher{scam: scam, cover: cover, now: time.Now, logger: logger}
}

// Enrich never fails. When the scam signal cannot be obtained the posting is
// marked Unknown and still returned for persistence.
func (e *Enricher) Enrich(ctx context.Context, p model.Posting) model.Posting {
	now := e.now()
	p.PostingDate = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	p.Status = model.StatusNew

	if p.CoverMessage == "" {
		p.CoverMessage = e.renderCover(p)
	}

	p.ScamStatus, p.ScamFlags = e.checkScam(ctx, p.Company)
	return p
}

func (e *Enricher) renderCover(p model.Posting) string {
	if e.cover != nil {
		msg, err := e.cover.Render(p.Company, p.Role)
		if err == nil && msg != "" {
			return msg
		}
		e.logger.Warn("cover message render failed, using fallback", "company", p.Company, "error", err)
	}
	if strings.TrimSpace(p.Company) == "" {
		return fmt.Sprintf("Dear Hiring Team,\n\nI would like to apply for the %s internship.", p.Role)
	}
	return fmt.Sprintf("Dear %s HR Team,\n\nI would like to apply for the %s internship.", p.Company, p.Role)
}

func (e *Enricher) checkScam(ctx context.Context, company string) (model.ScamStatus, []model.ScamFlag) {
	// Without a company name there is nothing to search for.
	if e.scam == nil || strings.TrimSpace(company) == "" {
		return model.ScamUnknown, nil
	}

	flags, err := e.scam.Check(ctx, company)
	if err != nil {
		e.logger.Warn("scam check unavailable",
			"company", company,
			"error", &model.SignalError{Forum: "*", Err: err},
		)
		return model.ScamUnknown, nil
	}
	if len(flags) > 0 {
		e.logger.Info("scam signals found", "company", company, "flags", len(flags))
		return model.ScamSuspected, flags
	}
	return model.ScamClean, nil
}
