package metadata_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"truthx/internal/metadata"
)

func loadText(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return string(data)
}

func TestFromDiagnosticExtractsFields(t *testing.T) {
	meta, ok := metadata.FromDiagnostic(loadText(t, "iphone_ffmpeg.txt"), "/uploads/IMG_0001.MOV")
	if !ok {
		t.Fatal("expected diagnostic parse to succeed")
	}
	if meta.Source != metadata.SourceFFmpeg {
		t.Fatalf("unexpected source %q", meta.Source)
	}
	if meta.File.DurationSeconds != 47.05 {
		t.Fatalf("unexpected duration %v", meta.File.DurationSeconds)
	}
	if meta.File.BitrateKbps != 7477 {
		t.Fatalf("unexpected bitrate %d", meta.File.BitrateKbps)
	}
	if meta.File.StreamCount != 3 || meta.SubtitleStreams != 1 {
		t.Fatalf("unexpected stream counts %d/%d", meta.File.StreamCount, meta.SubtitleStreams)
	}
	if meta.File.ContainerFormat != "MOV" {
		t.Fatalf("unexpected container %q", meta.File.ContainerFormat)
	}

	video := meta.Video
	if video == nil {
		t.Fatal("expected video stream")
	}
	if video.CodecShort != "hevc" || video.Profile != "Main 10" {
		t.Fatalf("unexpected codec %q/%q", video.CodecShort, video.Profile)
	}
	if video.Width != 1920 || video.Height != 1080 || video.Resolution != "1920×1080" {
		t.Fatalf("unexpected dimensions %+v", video)
	}
	if video.FPS != 29.97 || video.DisplayAspectRatio != "16:9" || video.PixelFormat != "yuv420p10le" {
		t.Fatalf("unexpected video details %+v", video)
	}
	if video.BitrateKbps != 7342 {
		t.Fatalf("unexpected video bitrate %d", video.BitrateKbps)
	}

	audio := meta.Audio
	if audio == nil {
		t.Fatal("expected audio stream")
	}
	if audio.CodecShort != "aac" || audio.SampleRateHz != 44100 || audio.ChannelLayout != "stereo" || audio.Channels != 2 {
		t.Fatalf("unexpected audio %+v", audio)
	}
	if audio.Language != "eng" || audio.BitrateKbps != 128 {
		t.Fatalf("unexpected audio language/bitrate %+v", audio)
	}
}

func TestFromDiagnosticTagRenames(t *testing.T) {
	meta, _ := metadata.FromDiagnostic(loadText(t, "iphone_ffmpeg.txt"), "IMG_0001.MOV")
	if got := meta.Tags.Get(metadata.TagCameraDevice); got != "iPhone 15 Pro" {
		t.Fatalf("expected model renamed to camera_device, got %q", got)
	}
	if _, ok := meta.Tags["model"]; ok {
		t.Fatal("expected raw model key to be renamed")
	}
	if got := meta.Tags.Get(metadata.TagCreationTime); got != "2024-05-01T09:59:59.000000Z" {
		t.Fatalf("expected first creation_time, got %q", got)
	}
	if got := meta.Tags.Get("make"); got != "Apple" {
		t.Fatalf("unexpected make %q", got)
	}
	if got := meta.Tags.Get(metadata.TagMajorBrand); got != "qt" {
		t.Fatalf("unexpected major brand %q", got)
	}

	located, _ := metadata.FromDiagnostic("  Metadata:\n    location        : +48.8584+002.2945/\n", "clip.mp4")
	if got := located.Tags.Get(metadata.TagGPSLocation); got != "+48.8584+002.2945/" {
		t.Fatalf("expected location renamed to gps_location, got %q", got)
	}
}

func TestDiagnosticAndStructuredAgree(t *testing.T) {
	structured := metadata.FromProbe(loadProbe(t, "iphone_ffprobe.json"), "IMG_0001.MOV")
	text, ok := metadata.FromDiagnostic(loadText(t, "iphone_ffmpeg.txt"), "IMG_0001.MOV")
	if !ok {
		t.Fatal("expected diagnostic parse to succeed")
	}
	if math.Abs(structured.File.DurationSeconds-text.File.DurationSeconds) > 0.1 {
		t.Fatalf("durations diverge: %v vs %v", structured.File.DurationSeconds, text.File.DurationSeconds)
	}
	if structured.Video.CodecShort != text.Video.CodecShort {
		t.Fatalf("codec_short diverges: %q vs %q", structured.Video.CodecShort, text.Video.CodecShort)
	}
	if structured.Video.Resolution != text.Video.Resolution {
		t.Fatalf("resolution diverges: %q vs %q", structured.Video.Resolution, text.Video.Resolution)
	}
}

func TestFromDiagnosticPartialInput(t *testing.T) {
	meta, ok := metadata.FromDiagnostic("  Duration: 01:02:03.50, start: 0.0\n", "clip.webm")
	if !ok {
		t.Fatal("expected a duration-only dump to count as parsed")
	}
	if meta.File.DurationSeconds != 3723.5 {
		t.Fatalf("unexpected duration %v", meta.File.DurationSeconds)
	}
	if meta.Video != nil || meta.Audio != nil {
		t.Fatal("expected no streams")
	}
	if meta.File.ContainerFormat != "WEBM" {
		t.Fatalf("unexpected container %q", meta.File.ContainerFormat)
	}
	if len(meta.Tags) != 0 {
		t.Fatalf("expected empty tags, got %v", meta.Tags)
	}
}

func TestFromDiagnosticFailureKeepsFileSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.bin")
	if err := os.WriteFile(path, make([]byte, 2048), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	for _, input := range []string{"", "garbage with nothing useful\n"} {
		meta, ok := metadata.FromDiagnostic(input, path)
		if ok {
			t.Fatalf("expected failure for %q", input)
		}
		if meta.Source != metadata.SourceNone {
			t.Fatalf("unexpected source %q", meta.Source)
		}
		if meta.File.SizeBytes != 2048 {
			t.Fatalf("expected size from filesystem, got %d", meta.File.SizeBytes)
		}
		if meta.Tags == nil {
			t.Fatal("expected non-nil tags")
		}
	}
}
