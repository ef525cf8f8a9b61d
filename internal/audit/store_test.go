package audit_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"truthx/internal/audit"
	"truthx/internal/services"
	"truthx/internal/testsupport"
)

func TestStoreRecordAndGet(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	entry, err := store.Insert(ctx, audit.Entry{
		RequestID:    "req-1",
		FileName:     "clip.mp4",
		FileType:     audit.FileTypeVideo,
		MIMEType:     "video/mp4",
		Score:        60,
		RiskLevel:    "medium",
		Summary:      "Video: real (5% confidence)",
		MetadataJSON: `{"codec":"h264"}`,
		Digest:       "abc",
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if entry.ID == "" {
		t.Fatal("expected generated id")
	}
	if entry.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set")
	}

	got, err := store.Get(ctx, entry.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.FileName != "clip.mp4" || got.Score != 60 || got.RiskLevel != "medium" {
		t.Fatalf("unexpected entry %+v", got)
	}
	if got.MetadataJSON != `{"codec":"h264"}` || got.MIMEType != "video/mp4" || got.RequestID != "req-1" {
		t.Fatalf("optional columns not round-tripped: %+v", got)
	}
	if !got.CreatedAt.Equal(entry.CreatedAt) {
		t.Fatalf("created_at = %v, want %v", got.CreatedAt, entry.CreatedAt)
	}
}

func TestStoreGetMissingReturnsNotFound(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreRejectsIncompleteEntry(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	err := store.Record(context.Background(), audit.Entry{FileType: audit.FileTypeText})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestStoreListNewestFirst(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, name := range []string{"a.mp4", "b.mp4", "c.mp4"} {
		err := store.Record(ctx, audit.Entry{
			FileName:  name,
			FileType:  audit.FileTypeVideo,
			Score:     90,
			RiskLevel: "low",
			Summary:   "Analysis complete",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Record %s: %v", name, err)
		}
	}

	entries, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].FileName != "c.mp4" || entries[1].FileName != "b.mp4" {
		t.Fatalf("unexpected order: %s, %s", entries[0].FileName, entries[1].FileName)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 3 || stats.ByLevel["low"] != 3 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestStoreFindByDigest(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	for _, digest := range []string{"d1", "d2", "d1"} {
		if err := store.Record(ctx, audit.Entry{
			FileName: "x.mp4", FileType: audit.FileTypeVideo, RiskLevel: "low", Summary: "s", Digest: digest,
		}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	matches, err := store.FindByDigest(ctx, "d1")
	if err != nil {
		t.Fatalf("FindByDigest: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	none, err := store.FindByDigest(ctx, "zzz")
	if err != nil {
		t.Fatalf("FindByDigest: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", none)
	}
}

func TestStoreReopenKeepsHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := audit.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Record(context.Background(), audit.Entry{
		FileName: "keep.mp4", FileType: audit.FileTypeVideo, RiskLevel: "low", Summary: "s",
	}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := testsupport.MustOpenStore(t, cfg)
	entries, err := reopened.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 || entries[0].FileName != "keep.mp4" {
		t.Fatalf("unexpected entries after reopen: %+v", entries)
	}
}

func TestDigestReader(t *testing.T) {
	first, err := audit.DigestReader(strings.NewReader("same bytes"))
	if err != nil {
		t.Fatalf("DigestReader: %v", err)
	}
	second, _ := audit.DigestReader(strings.NewReader("same bytes"))
	other, _ := audit.DigestReader(strings.NewReader("other bytes"))
	if first != second {
		t.Fatal("expected identical digests for identical content")
	}
	if first == other {
		t.Fatal("expected different digests for different content")
	}
	if len(first) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(first))
	}
}

type recordingSink struct {
	entries []audit.Entry
	err     error
}

func (r *recordingSink) Record(_ context.Context, entry audit.Entry) error {
	r.entries = append(r.entries, entry)
	return r.err
}

func TestMultiRecordsToAllSinksAndJoinsErrors(t *testing.T) {
	failure := errors.New("boom")
	ok := &recordingSink{}
	bad := &recordingSink{err: failure}
	err := audit.Multi{bad, nil, ok}.Record(context.Background(), audit.Entry{FileName: "f"})
	if !errors.Is(err, failure) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(ok.entries) != 1 || len(bad.entries) != 1 {
		t.Fatal("expected every sink to receive the entry")
	}
}

func TestNewSinkDisabledIsNop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Audit.Enabled = false
	sink, err := audit.NewSink(cfg, nil, nil)
	if err != nil {
		t.Fatalf("NewSink: %v", err)
	}
	if _, ok := sink.(audit.Nop); !ok {
		t.Fatalf("expected Nop sink, got %T", sink)
	}
}

func TestNewSinkCombinesStoreAndRest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Audit.Enabled = true
	cfg.Audit.RestURL = "https://db.example"
	cfg.Audit.RestKey = "key"
	store := testsupport.MustOpenStore(t, cfg)
	sink, err := audit.NewSink(cfg, store, nil)
	if err != nil {
		t.Fatalf("NewSink: %v", err)
	}
	multi, ok := sink.(audit.Multi)
	if !ok || len(multi) != 2 {
		t.Fatalf("expected two sinks, got %#v", sink)
	}
}
