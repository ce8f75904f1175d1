package poller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/internradar/internradar/internal/enrich"
	"github.com/internradar/internradar/internal/model"
	"github.com/internradar/internradar/internal/scamcheck"
)

// --- Fakes ---

type fakeSource struct {
	name     string
	blocking bool
	postings []model.Posting
	err      error
	panics   bool
	onFetch  func()
	calls    atomic.Int32
}

func (s *fakeSource) Name() string             { return s.name }
func (s *fakeSource) Platform() model.Platform { return model.PlatformInternshala }
func (s *fakeSource) Blocking() bool           { return s.blocking }

func (s *fakeSource) Fetch(_ context.Context, _ model.Query) ([]model.Posting, error) {
	s.calls.Add(1)
	if s.onFetch != nil {
		s.onFetch()
	}
	if s.panics {
		panic("selector exploded")
	}
	return s.postings, s.err
}

// memStore keeps postings in memory and counts saves.
type memStore struct {
	mu       sync.Mutex
	postings []model.Posting
	saves    int
	loadErr  error
	saveErr  error
}

func (s *memStore) Load(_ context.Context) ([]model.Posting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return append([]model.Posting(nil), s.postings...), nil
}

func (s *memStore) Save(_ context.Context, postings []model.Posting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.postings = append([]model.Posting(nil), postings...)
	return nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	titles []string
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, title, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.titles = append(n.titles, title)
	return n.err
}

type scamFunc func(ctx context.Context, company string) ([]model.ScamFlag, error)

func (f scamFunc) Check(ctx context.Context, company string) ([]model.ScamFlag, error) {
	return f(ctx, company)
}

func noFlags(context.Context, string) ([]model.ScamFlag, error) { return nil, nil }

// --- Helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func posting(company, role, link string) model.Posting {
	return model.Posting{Company: company, Role: role, Link: link, Platform: model.PlatformInternshala}
}

func newTestCycle(sources []model.Source, st model.Store, scam model.ScamSignalProvider, n model.Notifier, opts Options) *Cycle {
	regs := make([]Registration, len(sources))
	for i, s := range sources {
		regs[i] = Registration{Source: s, Query: model.Query{Location: "Mumbai", MaxPages: 1}}
	}
	return NewCycle(regs, st, enrich.New(scam, nil, discardLogger()), n, opts, discardLogger())
}

// --- Tests ---

func TestRun_IngestsAndNotifies(t *testing.T) {
	src := &fakeSource{name: "internshala", postings: []model.Posting{
		posting("Acme", "ML Intern", "https://x/1"),
		posting("Beta", "Data Science Intern", "https://x/2"),
	}}
	st := &memStore{}
	n := &recordingNotifier{}

	report, err := newTestCycle([]model.Source{src}, st, scamFunc(noFlags), n, Options{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.New != 2 || report.Total != 2 || report.Fetched != 2 {
		t.Errorf("report = %+v, want New=2 Total=2 Fetched=2", report)
	}
	if report.ID == "" {
		t.Error("expected a cycle id")
	}
	if len(st.postings) != 2 {
		t.Fatalf("stored %d postings, want 2", len(st.postings))
	}
	for _, p := range st.postings {
		if p.Status != model.StatusNew || p.ScamStatus != model.ScamClean || p.CoverMessage == "" {
			t.Errorf("posting not enriched: %+v", p)
		}
	}
	if len(n.titles) != 2 || n.titles[0] != "New Internship: Acme" {
		t.Errorf("notifications = %v", n.titles)
	}
}

func TestRun_IdempotentAcrossCycles(t *testing.T) {
	src := &fakeSource{name: "internshala", postings: []model.Posting{posting("Acme", "ML Intern", "https://x/1")}}
	st := &memStore{}
	n := &recordingNotifier{}
	c := newTestCycle([]model.Source{src}, st, scamFunc(noFlags), n, Options{})

	if _, err := c.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	report, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if report.New != 0 {
		t.Errorf("second run New = %d, want 0", report.New)
	}
	if st.saves != 1 {
		t.Errorf("saves = %d, want 1 (no save when nothing is new)", st.saves)
	}
	if len(n.titles) != 1 {
		t.Errorf("notifications = %d, want 1", len(n.titles))
	}
}

func TestRun_DedupesAcrossSources(t *testing.T) {
	a := &fakeSource{name: "internshala", postings: []model.Posting{posting("Acme", "ML Intern", "https://x/1")}}
	b := &fakeSource{name: "linkedin", postings: []model.Posting{
		posting("Acme", "ML Intern", "https://x/1"),
		posting("ACME ", "ml intern", "https://other/9"),
		posting("Gamma", "AI Intern", "https://y/3"),
	}}
	st := &memStore{}

	report, err := newTestCycle([]model.Source{a, b}, st, scamFunc(noFlags), nil, Options{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.New != 2 {
		t.Fatalf("New = %d, want 2", report.New)
	}
	// Registration order wins: the first source's copy is the one kept.
	if st.postings[0].Link != "https://x/1" || st.postings[1].Link != "https://y/3" {
		t.Errorf("stored = %v, %v", st.postings[0].Link, st.postings[1].Link)
	}
}

func TestRun_CompanyRoleFallbackAgainstStore(t *testing.T) {
	st := &memStore{postings: []model.Posting{posting("Acme", "ML Intern", "")}}
	src := &fakeSource{name: "internshala", postings: []model.Posting{
		posting("acme", "ML INTERN", "https://x/1"),
		posting("Acme", "Backend Intern", ""),
	}}

	report, err := newTestCycle([]model.Source{src}, st, scamFunc(noFlags), nil, Options{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.New != 1 || st.postings[1].Role != "Backend Intern" {
		t.Errorf("report = %+v, stored = %+v", report, st.postings)
	}
}

func TestRun_SourceFailureIsolated(t *testing.T) {
	bad := &fakeSource{name: "linkedin", err: errors.New("HTTP 999")}
	boom := &fakeSource{name: "unstop", panics: true}
	good := &fakeSource{name: "internshala", postings: []model.Posting{posting("Acme", "ML Intern", "https://x/1")}}
	st := &memStore{}

	report, err := newTestCycle([]model.Source{bad, boom, good}, st, scamFunc(noFlags), nil, Options{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.SourceFailures != 2 || report.New != 1 {
		t.Errorf("report = %+v, want SourceFailures=2 New=1", report)
	}
}

func TestRun_SourceTimeout(t *testing.T) {
	slow := &fakeSource{name: "slow"}
	slow.onFetch = func() { time.Sleep(200 * time.Millisecond) }
	st := &memStore{}

	opts := Options{SourceTimeout: 20 * time.Millisecond}
	slow.blocking = true
	start := time.Now()
	report, err := newTestCycle([]model.Source{slow}, st, scamFunc(noFlags), nil, opts).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.SourceFailures != 1 {
		t.Errorf("SourceFailures = %d, want 1", report.SourceFailures)
	}
	if elapsed := time.Since(start); elapsed > 150*time.Millisecond {
		t.Errorf("cycle waited %v for a timed-out blocking source", elapsed)
	}
}

func TestRun_ScamTimeoutStillPersists(t *testing.T) {
	hang := scamFunc(func(ctx context.Context, _ string) ([]model.ScamFlag, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	src := &fakeSource{name: "internshala", postings: []model.Posting{posting("Acme", "ML Intern", "https://x/1")}}
	st := &memStore{}

	scam := scamcheck.NewTimeout(hang, 20*time.Millisecond)
	report, err := newTestCycle([]model.Source{src}, st, scam, nil, Options{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.New != 1 {
		t.Fatalf("New = %d, want 1", report.New)
	}
	if got := st.postings[0].ScamStatus; got != model.ScamUnknown {
		t.Errorf("ScamStatus = %q, want Unknown", got)
	}
}

func TestRun_CountsSuspected(t *testing.T) {
	flagged := scamFunc(func(_ context.Context, company string) ([]model.ScamFlag, error) {
		if company == "Shady" {
			return []model.ScamFlag{{Kind: model.FlagPost, Forum: "developersIndia", MatchedKeyword: "scam"}}, nil
		}
		return nil, nil
	})
	src := &fakeSource{name: "internshala", postings: []model.Posting{
		posting("Shady", "ML Intern", "https://x/1"),
		posting("Acme", "ML Intern", "https://x/2"),
	}}

	report, err := newTestCycle([]model.Source{src}, &memStore{}, flagged, nil, Options{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Suspected != 1 {
		t.Errorf("Suspected = %d, want 1", report.Suspected)
	}
}

func TestRun_SaveFailureFailsCycle(t *testing.T) {
	src := &fakeSource{name: "internshala", postings: []model.Posting{posting("Acme", "ML Intern", "https://x/1")}}
	st := &memStore{saveErr: errors.New("disk full")}
	n := &recordingNotifier{}

	_, err := newTestCycle([]model.Source{src}, st, scamFunc(noFlags), n, Options{}).Run(context.Background())
	var cycleErr *model.CycleError
	if !errors.As(err, &cycleErr) || cycleErr.Phase != string(PhasePersisting) {
		t.Fatalf("expected CycleError in Persisting, got %v", err)
	}
	var persistErr *model.PersistenceError
	if !errors.As(err, &persistErr) || persistErr.Op != "save" {
		t.Errorf("expected save PersistenceError, got %v", err)
	}
	if len(n.titles) != 0 {
		t.Errorf("notified %d postings after a failed save", len(n.titles))
	}
}

func TestRun_LoadFailureFailsCycle(t *testing.T) {
	src := &fakeSource{name: "internshala"}
	st := &memStore{loadErr: errors.New("corrupt file")}

	_, err := newTestCycle([]model.Source{src}, st, scamFunc(noFlags), nil, Options{}).Run(context.Background())
	var persistErr *model.PersistenceError
	if !errors.As(err, &persistErr) || persistErr.Op != "load" {
		t.Fatalf("expected load PersistenceError, got %v", err)
	}
	if src.calls.Load() != 0 {
		t.Error("sources should not be fetched when the store cannot load")
	}
}

func TestRun_CancelledBeforePersist(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &fakeSource{name: "internshala", postings: []model.Posting{posting("Acme", "ML Intern", "https://x/1")}}
	src.onFetch = cancel
	st := &memStore{}

	_, err := newTestCycle([]model.Source{src}, st, scamFunc(noFlags), nil, Options{}).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if st.saves != 0 {
		t.Errorf("saves = %d, want 0", st.saves)
	}
}

func TestRun_NotifyFailureDoesNotAbort(t *testing.T) {
	src := &fakeSource{name: "internshala", postings: []model.Posting{
		posting("Acme", "ML Intern", "https://x/1"),
		posting("Beta", "AI Intern", "https://x/2"),
	}}
	n := &recordingNotifier{err: errors.New("webhook down")}

	report, err := newTestCycle([]model.Source{src}, &memStore{}, scamFunc(noFlags), n, Options{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.New != 2 || len(n.titles) != 2 {
		t.Errorf("New = %d, notifications = %d, want 2 and 2", report.New, len(n.titles))
	}
}

func TestRun_BlockingSourcesShareBoundedPool(t *testing.T) {
	var running, peak atomic.Int32
	track := func() {
		n := running.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		running.Add(-1)
	}
	var sources []model.Source
	for _, name := range []string{"unstop", "unstop-offline", "third"} {
		sources = append(sources, &fakeSource{name: name, blocking: true, onFetch: track})
	}

	c := newTestCycle(sources, &memStore{}, scamFunc(noFlags), nil, Options{MaxBlockingWorkers: 1})
	if c.pool.Size() != 1 {
		t.Fatalf("pool size = %d, want 1", c.pool.Size())
	}
	if _, err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := peak.Load(); got != 1 {
		t.Errorf("peak blocking concurrency = %d, want 1", got)
	}
}

func TestRun_ReportsPhases(t *testing.T) {
	var mu sync.Mutex
	var phases []Phase
	opts := Options{OnPhase: func(p Phase) {
		mu.Lock()
		phases = append(phases, p)
		mu.Unlock()
	}}
	src := &fakeSource{name: "internshala", postings: []model.Posting{posting("Acme", "ML Intern", "https://x/1")}}

	if _, err := newTestCycle([]model.Source{src}, &memStore{}, scamFunc(noFlags), nil, opts).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []Phase{PhaseFetchingSources, PhaseDeduplicating, PhaseEnriching, PhasePersisting, PhaseNotifying, PhaseIdle}
	if len(phases) != len(want) {
		t.Fatalf("phases = %v, want %v", phases, want)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Errorf("phase[%d] = %s, want %s", i, phases[i], want[i])
		}
	}
}
