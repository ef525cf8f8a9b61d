package metadata_test

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"truthx/internal/media/ffprobe"
	"truthx/internal/metadata"
	"truthx/internal/services"
	"truthx/internal/testsupport"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixture(t *testing.T, name string) string {
	t.Helper()
	path, err := filepath.Abs(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("abs: %v", err)
	}
	return path
}

func newExtractor(t *testing.T, stubs ...testsupport.Stub) *metadata.Extractor {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries(stubs...))
	return metadata.NewExtractor(cfg.Probe.FFprobeBinary, cfg.Probe.FFmpegBinary, time.Second, nil, metadata.WithClock(func() time.Time { return fixedNow }))
}

func TestExtractPrefersStructuredProbe(t *testing.T) {
	extractor := newExtractor(t,
		testsupport.FFprobeStub(fixture(t, "iphone_ffprobe.json")),
		testsupport.FFmpegStub(fixture(t, "iphone_ffmpeg.txt")),
	)

	result := extractor.Extract(context.Background(), "/uploads/IMG_0001.MOV")
	if result.Strategy != metadata.StrategyStructured {
		t.Fatalf("expected structured strategy, got %s", result.Strategy)
	}
	if len(result.Attempts) != 0 || result.Degraded() {
		t.Fatalf("expected no failed attempts, got %+v", result.Attempts)
	}
	if !result.Metadata.AnalyzedAt.Equal(fixedNow) {
		t.Fatalf("unexpected analyzed_at %s", result.Metadata.AnalyzedAt)
	}
	if result.Metadata.Video == nil || result.Metadata.Video.FPS != 29.97 {
		t.Fatalf("unexpected video %+v", result.Metadata.Video)
	}
}

func TestExtractFallsBackWhenProbeFails(t *testing.T) {
	extractor := newExtractor(t,
		testsupport.FailingStub("ffprobe"),
		testsupport.FFmpegStub(fixture(t, "iphone_ffmpeg.txt")),
	)

	result := extractor.Extract(context.Background(), "/uploads/IMG_0001.MOV")
	if result.Strategy != metadata.StrategyText {
		t.Fatalf("expected text strategy, got %s", result.Strategy)
	}
	if len(result.Attempts) != 1 || result.Attempts[0].Strategy != metadata.StrategyStructured {
		t.Fatalf("expected one structured attempt, got %+v", result.Attempts)
	}
	if !errors.Is(result.Attempts[0].Err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", result.Attempts[0].Err)
	}
	if result.Metadata.Video == nil || result.Metadata.Video.CodecShort != "hevc" {
		t.Fatalf("unexpected video %+v", result.Metadata.Video)
	}
}

func TestExtractFallsBackWhenProbeMissing(t *testing.T) {
	extractor := newExtractor(t, testsupport.FFmpegStub(fixture(t, "iphone_ffmpeg.txt")))

	result := extractor.Extract(context.Background(), "/uploads/IMG_0001.MOV")
	if result.Strategy != metadata.StrategyText {
		t.Fatalf("expected text strategy, got %s", result.Strategy)
	}
	if extractor.StructuredAvailable() {
		t.Fatal("expected ffprobe to be unavailable")
	}
}

func TestExtractFallsBackOnMalformedJSON(t *testing.T) {
	extractor := newExtractor(t,
		testsupport.Stub{Name: "ffprobe", Script: "echo '{not json'\n"},
		testsupport.FFmpegStub(fixture(t, "iphone_ffmpeg.txt")),
	)
	result := extractor.Extract(context.Background(), "/uploads/IMG_0001.MOV")
	if result.Strategy != metadata.StrategyText {
		t.Fatalf("expected text strategy, got %s", result.Strategy)
	}
}

func TestExtractTreatsTimeoutAsFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries(
		testsupport.Stub{Name: "ffprobe", Script: "exit 0\n"},
		testsupport.FFmpegStub(fixture(t, "iphone_ffmpeg.txt")),
	))
	slowProbe := func(ctx context.Context, _, _ string) (ffprobe.Result, error) {
		<-ctx.Done()
		return ffprobe.Result{}, ctx.Err()
	}
	extractor := metadata.NewExtractor(cfg.Probe.FFprobeBinary, cfg.Probe.FFmpegBinary, 50*time.Millisecond, nil, metadata.WithProbe(slowProbe))

	start := time.Now()
	result := extractor.Extract(context.Background(), "/uploads/IMG_0001.MOV")
	if time.Since(start) > 5*time.Second {
		t.Fatal("expected probe timeout to bound extraction")
	}
	if result.Strategy != metadata.StrategyText {
		t.Fatalf("expected text strategy after timeout, got %s", result.Strategy)
	}
	if !errors.Is(result.Attempts[0].Err, services.ErrTimeout) {
		t.Fatalf("expected timeout marker, got %v", result.Attempts[0].Err)
	}
}

func TestExtractRecoversParserPanic(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries(
		testsupport.Stub{Name: "ffprobe", Script: "exit 0\n"},
		testsupport.FFmpegStub(fixture(t, "iphone_ffmpeg.txt")),
	))
	panicky := func(context.Context, string, string) (ffprobe.Result, error) {
		panic("boom")
	}
	extractor := metadata.NewExtractor(cfg.Probe.FFprobeBinary, cfg.Probe.FFmpegBinary, time.Second, nil, metadata.WithProbe(panicky))

	result := extractor.Extract(context.Background(), "/uploads/IMG_0001.MOV")
	if result.Strategy != metadata.StrategyText {
		t.Fatalf("expected text strategy after panic, got %s", result.Strategy)
	}
	if !strings.Contains(result.Attempts[0].Err.Error(), "parser panic") {
		t.Fatalf("unexpected attempt error %v", result.Attempts[0].Err)
	}
}

func TestExtractTotalFailureReturnsEmptyMetadata(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries(
		testsupport.FailingStub("ffprobe"),
		testsupport.Stub{Name: "ffmpeg", Script: "echo 'clip.bin: Invalid data found when processing input' >&2\nexit 1\n"},
	))
	media := filepath.Join(testsupport.BaseDir(cfg), "clip.bin")
	testsupport.WriteFile(t, media, 4096)
	extractor := metadata.NewExtractor(cfg.Probe.FFprobeBinary, cfg.Probe.FFmpegBinary, time.Second, nil)

	result := extractor.Extract(context.Background(), media)
	if result.Strategy != metadata.StrategyNone {
		t.Fatalf("expected none strategy, got %s", result.Strategy)
	}
	if len(result.Attempts) != 2 {
		t.Fatalf("expected two failed attempts, got %+v", result.Attempts)
	}
	meta := result.Metadata
	if meta.Error == "" {
		t.Fatal("expected error marker on metadata")
	}
	if meta.File.SizeBytes != 4096 || meta.File.FileName != "clip.bin" {
		t.Fatalf("expected filesystem facts, got %+v", meta.File)
	}
	if meta.Tags == nil || meta.Video != nil {
		t.Fatalf("expected empty well-typed metadata, got %+v", meta)
	}
	if meta.AnalyzedAt.IsZero() {
		t.Fatal("expected analyzed_at to be stamped")
	}

	payload, err := json.Marshal(result.Attempts)
	if err != nil {
		t.Fatalf("marshal attempts: %v", err)
	}
	if !strings.Contains(string(payload), `"strategy":"text"`) {
		t.Fatalf("unexpected attempts json %s", payload)
	}
}
