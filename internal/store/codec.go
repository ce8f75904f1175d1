package store

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/internradar/internradar/internal/model"
)

const dateLayout = "2006-01-02"

// columns is the on-disk column order. The first nine match the layout the
// tracker has always written; the rest were added later and are optional on
// read.
var columns = []string{
	"Company", "Role", "Platform", "PostingDate", "Deadline", "Link",
	"Status", "ScamStatus", "CoverMessage",
	"Stipend", "Duration", "Location", "Skills", "Mode", "ScamFlags",
}

// toRow flattens p into column order.
func toRow(p model.Posting) []string {
	return []string{
		p.Company,
		p.Role,
		string(p.Platform),
		formatDate(p.PostingDate),
		p.DeadlineText,
		p.Link,
		string(p.Status),
		string(p.ScamStatus),
		p.CoverMessage,
		p.Stipend,
		p.Duration,
		p.Location,
		strings.Join(p.Skills, ";"),
		p.Mode,
		encodeFlags(p.ScamFlags),
	}
}

// fromRow rebuilds a posting from values keyed by column name. Missing
// columns decode to zero values.
func fromRow(get func(col string) string) model.Posting {
	return model.Posting{
		Company:      get("Company"),
		Role:         get("Role"),
		Platform:     model.Platform(get("Platform")),
		PostingDate:  parseDate(get("PostingDate")),
		DeadlineText: get("Deadline"),
		Link:         get("Link"),
		Status:       model.Status(get("Status")),
		ScamStatus:   parseScamStatus(get("ScamStatus")),
		CoverMessage: get("CoverMessage"),
		Stipend:      get("Stipend"),
		Duration:     get("Duration"),
		Location:     get("Location"),
		Skills:       splitSkills(get("Skills")),
		Mode:         get("Mode"),
		ScamFlags:    decodeFlags(get("ScamFlags")),
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func parseDate(s string) time.Time {
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}

// parseScamStatus also accepts decorated values such as "⚠️ Scam Suspected"
// left in files edited by hand or written by older tooling.
func parseScamStatus(s string) model.ScamStatus {
	switch {
	case s == "":
		return ""
	case strings.Contains(s, "Suspected"):
		return model.ScamSuspected
	case strings.Contains(s, "Clean"):
		return model.ScamClean
	default:
		return model.ScamUnknown
	}
}

func splitSkills(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var skills []string
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			skills = append(skills, part)
		}
	}
	return skills
}

func encodeFlags(flags []model.ScamFlag) string {
	if len(flags) == 0 {
		return ""
	}
	raw, err := json.Marshal(flags)
	if err != nil {
		return ""
	}
	return string(raw)
}

// decodeFlags tolerates hand-edited cells: anything that is not a JSON flag
// list decodes to no flags.
func decodeFlags(s string) []model.ScamFlag {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var flags []model.ScamFlag
	if err := json.Unmarshal([]byte(s), &flags); err != nil {
		return nil
	}
	return flags
}
