package deps

import (
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// ProbeRequirements lists the probing tools used for metadata extraction.
// Both are optional: the extractor degrades when either is missing.
func ProbeRequirements(ffprobe, ffmpeg string) []Requirement {
	return []Requirement{
		{
			Name:        "FFprobe",
			Command:     ffprobe,
			Description: "Structured metadata probe",
			Optional:    true,
		},
		{
			Name:        "FFmpeg",
			Command:     ffmpeg,
			Description: "Diagnostic fallback probe and frame sampling",
			Optional:    true,
		},
	}
}

// Resolve returns the absolute path of an executable, or false when it cannot
// be found or is not executable.
func Resolve(command string) (string, bool) {
	command = strings.TrimSpace(command)
	if command == "" {
		return "", false
	}
	resolved, err := exec.LookPath(command)
	if err != nil {
		return "", false
	}
	info, err := os.Stat(resolved)
	if err != nil || !isExecutable(info) {
		return "", false
	}
	return resolved, true
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
