package notifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/internradar/internradar/internal/model"
)

// maxFlagsShown caps how many scam flags are spelled out in one alert.
const maxFlagsShown = 3

// FormatPosting builds the alert for a newly accepted posting.
func FormatPosting(p model.Posting) (title, message string) {
	title = "New Internship: " + p.CompanyLabel()

	deadline := p.DeadlineText
	if deadline == "" {
		deadline = "Not specified"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Role: %s\n", p.Role)
	fmt.Fprintf(&b, "Company: %s\n", p.CompanyLabel())
	fmt.Fprintf(&b, "Platform: %s\n", p.Platform)
	if p.Stipend != "" {
		fmt.Fprintf(&b, "Stipend: %s\n", p.Stipend)
	}
	fmt.Fprintf(&b, "Link: %s\n", p.Link)
	fmt.Fprintf(&b, "Deadline: %s\n", deadline)
	fmt.Fprintf(&b, "\nScam Status: %s\n", p.ScamStatus)

	if len(p.ScamFlags) > 0 {
		b.WriteString("\nSCAM ALERTS FOUND:\n")
		for i, f := range p.ScamFlags {
			if i == maxFlagsShown {
				fmt.Fprintf(&b, "(+%d more)\n", len(p.ScamFlags)-maxFlagsShown)
				break
			}
			fmt.Fprintf(&b, "- [%s] Keyword '%s' found\n", capitalize(string(f.Kind)), f.MatchedKeyword)
			fmt.Fprintf(&b, "  r/%s: %s\n", f.Forum, f.Permalink)
		}
	}

	if p.CoverMessage != "" {
		b.WriteString("\n")
		b.WriteString(p.CoverMessage)
		b.WriteString("\n")
	}

	return title, strings.TrimRight(b.String(), "\n")
}

// SendTestMessage sends a sample alert to verify the integration works.
func SendTestMessage(ctx context.Context, n model.Notifier) error {
	title, message := FormatPosting(model.Posting{
		Company:    "internradar",
		Role:       "Test Notification (integration verified)",
		Platform:   model.PlatformInternshala,
		Link:       "https://internshala.com/internships",
		ScamStatus: model.ScamClean,
	})
	return n.Notify(ctx, title, message)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
