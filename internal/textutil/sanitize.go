package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// fileNameReplacer maps filesystem-unsafe characters to underscores.
var fileNameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"?", "_",
	"\"", "_",
	"*", "_",
	"<", "_",
	">", "_",
	"|", "_",
	"\x00", "_",
)

// MaxFileNameBytes bounds a sanitized name so that the name plus the longest
// extension written next to it stays under the common 255-byte limit.
const MaxFileNameBytes = 200

// SanitizeFileName NFC-normalizes name, replaces / \ : ? " * < > | with
// underscores and cuts it to MaxFileNameBytes on a rune boundary. The result
// is trimmed of surrounding whitespace. Names made only of dots sanitize to
// "".
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	name = fileNameReplacer.Replace(norm.NFC.String(name))
	name = strings.TrimSpace(truncateBytes(name, MaxFileNameBytes))
	if strings.Trim(name, ".") == "" {
		return ""
	}
	return name
}

func truncateBytes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := 0
	for i := range s {
		if i > limit {
			break
		}
		cut = i
	}
	return s[:cut]
}

// FolderName returns the sanitized title, or fallback when the title
// sanitizes to nothing.
func FolderName(title, fallback string) string {
	if safe := SanitizeFileName(title); safe != "" {
		return safe
	}
	return SanitizeFileName(fallback)
}

var titleCaser = cases.Title(language.English)

// DisplayName title-cases a lowercase identifier such as a source kind.
func DisplayName(value string) string {
	return titleCaser.String(strings.TrimSpace(value))
}

// Ellipsize shortens s to limit runes and appends "..." when it was cut.
func Ellipsize(s string, limit int) string {
	runes := []rune(s)
	if limit <= 0 || len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
