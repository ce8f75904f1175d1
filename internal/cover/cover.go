// Package cover renders the outreach message attached to every new posting.
package cover

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"
)

//go:embed templates/cover.tmpl
var defaultTemplateRaw string

// DefaultTemplate is parsed once at package init.
var DefaultTemplate = template.Must(template.New("cover").Option("missingkey=error").Parse(defaultTemplateRaw))

// Applicant describes who the message is from.
type Applicant struct {
	Name     string
	Year     string // e.g. "3rd-year"
	Program  string
	School   string
	Interest string
}

// DefaultApplicant fills any field the configuration leaves empty.
var DefaultApplicant = Applicant{
	Name:     "Siddhen P",
	Year:     "3rd-year",
	Program:  "Computer Engineering",
	School:   "FCRIT, Vashi",
	Interest: "Artificial Intelligence and Machine Learning",
}

// Renderer produces cover messages. Output depends only on the template, the
// applicant and (company, role).
type Renderer struct {
	tmpl      *template.Template
	applicant Applicant
}

// NewRenderer uses tmpl, or DefaultTemplate when tmpl is nil.
func NewRenderer(tmpl *template.Template, applicant Applicant) *Renderer {
	if tmpl == nil {
		tmpl = DefaultTemplate
	}
	return &Renderer{tmpl: tmpl, applicant: withDefaults(applicant)}
}

// LoadTemplate parses a user-supplied template file.
func LoadTemplate(path string) (*template.Template, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cover template: %w", err)
	}
	tmpl, err := template.New("cover").Option("missingkey=error").Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parse cover template %s: %w", path, err)
	}
	return tmpl, nil
}

// Render returns the message for one (company, role).
func (r *Renderer) Render(company, role string) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, struct {
		Company   string
		Role      string
		Applicant Applicant
	}{
		Company:   strings.TrimSpace(company),
		Role:      strings.TrimSpace(role),
		Applicant: r.applicant,
	}); err != nil {
		return "", fmt.Errorf("render cover message: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func withDefaults(a Applicant) Applicant {
	if a.Name == "" {
		a.Name = DefaultApplicant.Name
	}
	if a.Year == "" {
		a.Year = DefaultApplicant.Year
	}
	if a.Program == "" {
		a.Program = DefaultApplicant.Program
	}
	if a.School == "" {
		a.School = DefaultApplicant.School
	}
	if a.Interest == "" {
		a.Interest = DefaultApplicant.Interest
	}
	return a
}
