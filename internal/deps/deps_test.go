package deps

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	if err := os.WriteFile(present, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Path != present {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for blank command: %q", results[2].Detail)
	}
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	exe := filepath.Join(dir, "ffprobe")
	if err := os.WriteFile(exe, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	plain := filepath.Join(dir, "notes")
	if err := os.WriteFile(plain, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if got, ok := Resolve(exe); !ok || got != exe {
		t.Fatalf("expected %q to resolve, got %q (%v)", exe, got, ok)
	}
	if _, ok := Resolve(plain); ok {
		t.Fatal("expected non-executable file to be rejected")
	}
	if _, ok := Resolve(""); ok {
		t.Fatal("expected empty command to be rejected")
	}
}

func TestProbeRequirementsAreOptional(t *testing.T) {
	for _, req := range ProbeRequirements("ffprobe", "ffmpeg") {
		if !req.Optional {
			t.Fatalf("expected %s to be optional", req.Name)
		}
	}
}
