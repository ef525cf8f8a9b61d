package textutil

import (
	"path/filepath"
	"strings"
	"unicode"
)

const maxFileNameRunes = 200

var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName makes a client-supplied file name safe to log, store, and
// reuse as a suffix. Path separators and reserved characters are replaced,
// control characters are dropped, and the result is capped in length while
// keeping the extension.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(fileNameReplacer.Replace(strings.TrimSpace(name)))
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.Trim(name, ". ")
	if runes := []rune(name); len(runes) > maxFileNameRunes {
		ext := []rune(filepath.Ext(name))
		if len(ext) >= maxFileNameRunes {
			ext = nil
		}
		name = string(runes[:maxFileNameRunes-len(ext)]) + string(ext)
	}
	return name
}

// SafeExtension returns the lowercased extension of name when it is a short
// alphanumeric suffix, or "".
func SafeExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(SanitizeFileName(name)))
	if len(ext) < 2 || len(ext) > 10 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
