package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/internradar/internradar/internal/model"
)

func samplePostings() []model.Posting {
	return []model.Posting{
		{
			Company:      "Acme, Inc.",
			Role:         "Machine Learning Intern",
			Platform:     model.PlatformInternshala,
			Link:         "https://internshala.com/internship/detail/1",
			Stipend:      "₹ 10,000 /month",
			Duration:     "3 Months",
			Location:     "Mumbai",
			Mode:         "Online",
			Skills:       []string{"Python", "PyTorch"},
			PostingDate:  time.Date(2026, 3, 14, 0, 0, 0, 0, time.Local),
			Status:       model.StatusNew,
			CoverMessage: "Dear Acme, Inc. HR Team,\n\nMulti-line \"quoted\" body.",
			ScamStatus:   model.ScamSuspected,
			ScamFlags: []model.ScamFlag{{
				Kind: model.FlagComment, Forum: "Scams", PostTitle: "Acme?",
				MatchedKeyword: "fraud", Excerpt: "acme is fraud", Permalink: "https://reddit.com/r/Scams/1",
			}},
		},
		{
			Company:      "Beta",
			Role:         "Data Science Intern",
			Platform:     model.PlatformUnstop,
			Link:         "https://unstop.com/internships/42",
			DeadlineText: "5 days left",
			PostingDate:  time.Date(2026, 3, 15, 0, 0, 0, 0, time.Local),
			Status:       model.StatusNew,
			CoverMessage: "hello",
			ScamStatus:   model.ScamClean,
		},
	}
}

func assertRoundTrip(t *testing.T, s model.Store) {
	t.Helper()
	ctx := context.Background()
	want := samplePostings()

	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch\n got: %+v\nwant: %+v", got, want)
	}
}

func TestCSVStore_MissingFileIsEmpty(t *testing.T) {
	s := NewCSVStore(filepath.Join(t.TempDir(), "internships.csv"))
	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty store, got %d", len(got))
	}
}

func TestCSVStore_RoundTrip(t *testing.T) {
	assertRoundTrip(t, NewCSVStore(filepath.Join(t.TempDir(), "internships.csv")))
}

func TestCSVStore_HeaderKeepsLegacyColumnsFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "internships.csv")
	if err := NewCSVStore(path).Save(context.Background(), samplePostings()); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	header := strings.SplitN(string(raw), "\n", 2)[0]
	if !strings.HasPrefix(header, "Company,Role,Platform,PostingDate,Deadline,Link,Status,ScamStatus,CoverMessage") {
		t.Errorf("unexpected header %q", header)
	}
}

func TestCSVStore_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewCSVStore(filepath.Join(dir, "internships.csv"))
	for i := 0; i < 2; i++ {
		if err := s.Save(context.Background(), samplePostings()); err != nil {
			t.Fatal(err)
		}
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected only the store file, found %v", names)
	}
}

func TestCSVStore_SaveFailureKeepsPreviousFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "internships.csv")
	s := NewCSVStore(path)
	if err := s.Save(context.Background(), samplePostings()[:1]); err != nil {
		t.Fatal(err)
	}
	before, _ := os.ReadFile(path)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Save(ctx, samplePostings()); err == nil {
		t.Fatal("expected cancelled save to fail")
	}
	after, _ := os.ReadFile(path)
	if string(before) != string(after) {
		t.Error("failed save modified the existing file")
	}
}

func TestCSVStore_LoadsLegacyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "internships.csv")
	legacy := "Company,Role,Platform,PostingDate,Deadline,Link,Status,ScamStatus,CoverMessage\n" +
		"Acme,ML Intern,Unstop,2025-11-02,,https://unstop.com/internships/7,New,⚠️ Scam Suspected,hi\n" +
		"Beta,DS Intern,Internshala,2025-11-02,,https://internshala.com/x,New,✅ Clean,hi\n" +
		"Gamma,AI Intern,Internshala,not-a-date,,https://internshala.com/y,New,❓ Unknown,hi\n"
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := NewCSVStore(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 postings, got %d", len(got))
	}
	wantStatus := []model.ScamStatus{model.ScamSuspected, model.ScamClean, model.ScamUnknown}
	for i, p := range got {
		if p.ScamStatus != wantStatus[i] {
			t.Errorf("row %d scam status = %q, want %q", i, p.ScamStatus, wantStatus[i])
		}
	}
	if got[0].PostingDate.Format(dateLayout) != "2025-11-02" {
		t.Errorf("posting date = %v", got[0].PostingDate)
	}
	if !got[2].PostingDate.IsZero() {
		t.Errorf("unparseable date should load as zero, got %v", got[2].PostingDate)
	}
	if got[0].Skills != nil || got[0].ScamFlags != nil {
		t.Error("absent columns should decode to nil")
	}
}

func TestCSVStore_SaveLoadIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "internships.csv")
	s := NewCSVStore(path)
	ctx := context.Background()
	if err := s.Save(ctx, samplePostings()); err != nil {
		t.Fatal(err)
	}
	first, _ := os.ReadFile(path)

	loaded, err := s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, loaded); err != nil {
		t.Fatal(err)
	}
	second, _ := os.ReadFile(path)
	if string(first) != string(second) {
		t.Error("save(load()) changed file contents")
	}
}

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_EmptyOnCreate(t *testing.T) {
	s := newTestSQLiteStore(t)
	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty store, got %d", len(got))
	}
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	assertRoundTrip(t, newTestSQLiteStore(t))
}

func TestSQLiteStore_SaveReplacesSnapshot(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	all := samplePostings()

	if err := s.Save(ctx, all[:1]); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, all); err != nil {
		t.Fatal(err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Link != all[0].Link || got[1].Link != all[1].Link {
		t.Errorf("expected full snapshot in order, got %+v", got)
	}
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save(context.Background(), samplePostings()); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s2, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	got, err := s2.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 postings after reopen, got %d", len(got))
	}
}

func TestSQLiteStore_IdentityColumnIsUnique(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	all := samplePostings()
	noCompany := model.Posting{Role: "Machine Learning Intern", Platform: model.PlatformInternshala}
	if err := s.Save(ctx, append(all, noCompany, noCompany)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT identity FROM postings ORDER BY seq`)
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()
	var got []sql.NullString
	for rows.Next() {
		var id sql.NullString
		if err := rows.Scan(&id); err != nil {
			t.Fatal(err)
		}
		got = append(got, id)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(got))
	}
	if got[0].String != "link:"+all[0].Link || got[1].String != "link:"+all[1].Link {
		t.Errorf("identity = %q, %q", got[0].String, got[1].String)
	}
	if got[2].Valid || got[3].Valid {
		t.Errorf("postings without a key should store NULL, got %+v %+v", got[2], got[3])
	}

	dup := samplePostings()[0]
	dup.Company = "Someone Else"
	if err := s.Save(ctx, append(samplePostings(), dup)); err == nil {
		t.Error("expected a second row with the same link to violate the identity constraint")
	}
	if got, _ := s.Load(ctx); len(got) != 4 {
		t.Errorf("failed save must leave the previous snapshot, got %d rows", len(got))
	}
}

func TestSQLiteStore_AddsIdentityToOlderDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "old.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`CREATE TABLE postings (seq INTEGER PRIMARY KEY AUTOINCREMENT, company TEXT NOT NULL DEFAULT '')`); err != nil {
		t.Fatal(err)
	}
	db.Close()

	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('postings') WHERE name = 'identity'`).Scan(&n); err != nil || n != 1 {
		t.Errorf("identity column missing after open: n=%d err=%v", n, err)
	}
}

func TestNopStore(t *testing.T) {
	s := NewNopStore()
	if err := s.Save(context.Background(), samplePostings()); err != nil {
		t.Fatal(err)
	}
	got, err := s.Load(context.Background())
	if err != nil || len(got) != 0 {
		t.Errorf("expected empty load, got %v %v", got, err)
	}
}

func TestDryRun_ReadsInnerDiscardsWrites(t *testing.T) {
	inner := NewCSVStore(filepath.Join(t.TempDir(), "internships.csv"))
	ctx := context.Background()
	if err := inner.Save(ctx, samplePostings()[:1]); err != nil {
		t.Fatal(err)
	}

	d := NewDryRun(inner)
	if err := d.Save(ctx, samplePostings()); err != nil {
		t.Fatal(err)
	}
	got, err := d.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("expected inner snapshot of 1, got %d", len(got))
	}
}
