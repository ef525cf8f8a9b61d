package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"truthx/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Probe binaries point at paths that do not exist until a stub option writes them.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.TempDir = filepath.Join(base, "tmp")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.ArticlesPath = filepath.Join(base, "articles.json")
	cfgVal.Server.Bind = "127.0.0.1:0"
	cfgVal.Probe.FFprobeBinary = filepath.Join(base, "bin", "ffprobe")
	cfgVal.Probe.FFmpegBinary = filepath.Join(base, "bin", "ffmpeg")
	cfgVal.Search.Watch = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// Stub describes a fake executable written into the test bin directory.
type Stub struct {
	Name   string
	Script string
}

// FFprobeStub prints the JSON fixture at fixturePath and exits 0.
func FFprobeStub(fixturePath string) Stub {
	return Stub{Name: "ffprobe", Script: "cat '" + fixturePath + "'\n"}
}

// FFmpegStub prints the diagnostic fixture at fixturePath on stderr and exits 1,
// as ffmpeg does when given an input but no output.
func FFmpegStub(fixturePath string) Stub {
	return Stub{Name: "ffmpeg", Script: "cat '" + fixturePath + "' >&2\nexit 1\n"}
}

// FailingStub exits non-zero without output.
func FailingStub(name string) Stub {
	return Stub{Name: name, Script: "exit 1\n"}
}

// WithStubbedBinaries writes stub executables into the config's bin directory
// and prepends it to PATH for the duration of the test.
func WithStubbedBinaries(stubs ...Stub) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		for _, stub := range stubs {
			target := filepath.Join(binDir, stub.Name)
			if err := os.WriteFile(target, []byte("#!/bin/sh\n"+stub.Script), 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", stub.Name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// WithConfig applies an arbitrary mutation to the generated config.
func WithConfig(fn func(*config.Config)) ConfigOption {
	return func(b *configBuilder) {
		fn(b.cfg)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
