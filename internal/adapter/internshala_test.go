package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/internradar/internradar/internal/filter"
	"github.com/internradar/internradar/internal/model"
)

const internshalaPage = `<html><body>
<div class="individual_internship">
  <a class="job-title-href" href="/internship/detail/ml-intern-at-acme123">Machine Learning Intern</a>
  <p class="company-name"> Acme Labs </p>
  <div class="row-1-item"><i class="ic-16-map-pin"></i><span>Mumbai</span></div>
  <div class="row-1-item"><i class="ic-16-money"></i><span class="stipend">₹ 10,000 /month</span></div>
  <div class="row-1-item"><i class="ic-16-calendar"></i><span>3 Months</span></div>
  <div class="about_job">Build   NLP models.</div>
  <div class="job_skill">Python</div>
  <div class="job_skill">PyTorch</div>
</div>
<div class="individual_internship">
  <a class="job-title-href" href="/internship/detail/ds-intern-at-beta9">Data Science Intern</a>
  <p class="company-name">Beta Corp</p>
</div>
<div class="individual_internship">
  <p class="company-name">No Title Inc</p>
</div>
<div class="individual_internship">
  <a class="job-title-href" href="/internship/detail/marketing-ai">AI Marketing Intern</a>
  <p class="company-name">Gamma</p>
</div>
</body></html>`

func TestParseInternshalaCards(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(internshalaPage))
	if err != nil {
		t.Fatal(err)
	}
	got := parseInternshalaCards(doc, "https://internshala.com")
	if len(got) != 3 {
		t.Fatalf("expected 3 cards with titles, got %d", len(got))
	}

	p := got[0]
	if p.Company != "Acme Labs" {
		t.Errorf("company = %q", p.Company)
	}
	if p.Link != "https://internshala.com/internship/detail/ml-intern-at-acme123" {
		t.Errorf("link = %q", p.Link)
	}
	if p.Location != "Mumbai" || p.Stipend != "₹ 10,000 /month" || p.Duration != "3 Months" {
		t.Errorf("icon fields = %q / %q / %q", p.Location, p.Stipend, p.Duration)
	}
	if p.Description != "build nlp models." {
		t.Errorf("description = %q", p.Description)
	}
	if len(p.Skills) != 2 || p.Skills[1] != "PyTorch" {
		t.Errorf("skills = %v", p.Skills)
	}
	if p.Platform != model.PlatformInternshala || p.Mode != "Online" {
		t.Errorf("platform/mode = %s/%s", p.Platform, p.Mode)
	}

	// Missing icon spans fall back to the documented defaults.
	b := got[1]
	if b.Location != "Remote" || b.Stipend != "Not disclosed" || b.Duration != "Not specified" {
		t.Errorf("defaults = %q / %q / %q", b.Location, b.Stipend, b.Duration)
	}
}

func TestParseInternshalaCards_MissingCompanyStaysEmpty(t *testing.T) {
	page := `<div class="individual_internship">
  <a class="job-title-href" href="/internship/detail/1">Machine Learning Intern</a>
</div>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		t.Fatal(err)
	}
	got := parseInternshalaCards(doc, "https://internshala.com")
	if len(got) != 1 {
		t.Fatalf("expected 1 card, got %d", len(got))
	}
	if got[0].Company != "" {
		t.Errorf("company = %q, want empty", got[0].Company)
	}
}

func newTestInternshala(t *testing.T, handler http.HandlerFunc) *InternshalaAdapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	a := NewInternshalaAdapter(srv.Client(), filter.NewDefaultRelevanceFilter(), nil, discardLogger())
	a.baseURL = srv.URL
	return a
}

func TestInternshalaFetch_PaginatesFiltersAndDedupes(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	a := newTestInternshala(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.EscapedPath())
		mu.Unlock()
		// Page 1 of every term returns the same listing; page 2 is empty.
		if strings.HasSuffix(r.URL.Path, "/page-1") {
			w.Write([]byte(internshalaPage))
			return
		}
		w.Write([]byte("<html><body></body></html>"))
	})

	got, err := a.Fetch(context.Background(), model.Query{
		Terms:    []string{"Machine Learning", "Data Science"},
		MaxPages: 3,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The marketing card is excluded and the second term's duplicates collapse.
	if len(got) != 2 {
		t.Fatalf("expected 2 relevant postings, got %d: %+v", len(got), got)
	}
	for _, p := range got {
		if strings.Contains(p.Role, "Marketing") {
			t.Errorf("excluded posting leaked: %q", p.Role)
		}
	}

	// Empty page 2 stops each term, so page 3 is never requested.
	want := []string{
		"/internships/keywords/Machine%20Learning/page-1",
		"/internships/keywords/Machine%20Learning/page-2",
		"/internships/keywords/Data%20Science/page-1",
		"/internships/keywords/Data%20Science/page-2",
	}
	if len(paths) != len(want) {
		t.Fatalf("requested %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("request %d = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestInternshalaFetch_OneTermFailingIsTolerated(t *testing.T) {
	a := newTestInternshala(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "Broken") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if strings.HasSuffix(r.URL.Path, "/page-1") {
			w.Write([]byte(internshalaPage))
			return
		}
		w.Write([]byte("<html></html>"))
	})

	got, err := a.Fetch(context.Background(), model.Query{Terms: []string{"Broken", "Machine Learning"}, MaxPages: 2})
	if err != nil {
		t.Fatalf("expected partial success, got %v", err)
	}
	if len(got) == 0 {
		t.Fatal("expected postings from the healthy term")
	}
}

func TestInternshalaFetch_AllTermsFailingIsAnError(t *testing.T) {
	a := newTestInternshala(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := a.Fetch(context.Background(), model.Query{Terms: []string{"A", "B"}, MaxPages: 1})
	if err == nil {
		t.Fatal("expected error when every term fails")
	}
}

func TestInternshalaFetch_DefaultsTerms(t *testing.T) {
	var count int
	a := newTestInternshala(t, func(w http.ResponseWriter, r *http.Request) {
		count++
		w.Write([]byte("<html></html>"))
	})

	if _, err := a.Fetch(context.Background(), model.Query{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != len(DefaultInternshalaTerms) {
		t.Errorf("expected one request per default term, got %d", count)
	}
}
