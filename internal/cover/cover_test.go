package cover

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRender_Default(t *testing.T) {
	r := NewRenderer(nil, Applicant{})
	msg, err := r.Render("Acme Labs", "Machine Learning")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(msg, "Dear Acme Labs HR Team,") {
		t.Errorf("unexpected greeting: %q", msg)
	}
	if !strings.Contains(msg, "contribute to Acme Labs as a Machine Learning intern") {
		t.Errorf("role sentence missing: %q", msg)
	}
	if !strings.HasSuffix(msg, "Best regards,\nSiddhen P") {
		t.Errorf("unexpected sign-off: %q", msg)
	}
}

func TestRender_MissingCompany(t *testing.T) {
	msg, err := NewRenderer(nil, Applicant{}).Render("  ", "Machine Learning")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(msg, "Dear Hiring Team,") {
		t.Errorf("unexpected greeting: %q", msg)
	}
	if !strings.Contains(msg, "contribute to your company as a Machine Learning intern") {
		t.Errorf("role sentence missing: %q", msg)
	}
}

func TestRender_Deterministic(t *testing.T) {
	r := NewRenderer(nil, Applicant{Name: "Asha K", School: "VJTI"})
	a, _ := r.Render("Acme", "AI Intern")
	b, _ := r.Render("Acme", "AI Intern")
	if a != b {
		t.Error("expected identical output for identical input")
	}
	if !strings.Contains(a, "student at VJTI") || !strings.HasSuffix(a, "Asha K") {
		t.Errorf("applicant overrides not applied: %q", a)
	}
	// Unset fields keep the defaults.
	if !strings.Contains(a, "3rd-year Computer Engineering") {
		t.Errorf("defaults missing: %q", a)
	}
}

func TestLoadTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cover.tmpl")
	if err := os.WriteFile(path, []byte("Hi {{.Company}}, re: {{.Role}}. {{.Applicant.Name}}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	tmpl, err := LoadTemplate(path)
	if err != nil {
		t.Fatalf("LoadTemplate: %v", err)
	}
	msg, err := NewRenderer(tmpl, Applicant{Name: "Sam"}).Render("Acme", "NLP Intern")
	if err != nil {
		t.Fatal(err)
	}
	if msg != "Hi Acme, re: NLP Intern. Sam" {
		t.Errorf("got %q", msg)
	}
}

func TestLoadTemplate_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.tmpl")
	os.WriteFile(path, []byte("{{.Company"), 0o644)
	if _, err := LoadTemplate(path); err == nil {
		t.Error("expected parse error")
	}
	if _, err := LoadTemplate(filepath.Join(t.TempDir(), "missing.tmpl")); err == nil {
		t.Error("expected read error")
	}
}
