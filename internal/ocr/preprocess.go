package ocr

import (
	"log"
	"regexp"
	"strings"
)

var (
	pageNumberLines = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\s*(page|seite)\s*\d+\s*$`), // "Page 1", "Seite 2"
		regexp.MustCompile(`^\s*\d+\s*/\s*\d+\s*$`),          // "1/5"
		regexp.MustCompile(`^\s*\d+\s*$`),                    // standalone numbers
	}
	shortPriceLike = regexp.MustCompile(`^[€$£]?\d*[.,]?\d+$`)
	horizontalWS   = regexp.MustCompile(`[ \t]+`)
)

// ocrArtifacts are glyphs tesseract emits for unreadable regions.
var ocrArtifacts = []string{"�", "\f", "©", "™", "®"}

// CleanText removes engine noise before structuring: replacement glyphs,
// page numbers, one and two character fragments, and redundant spacing.
// Line order is preserved.
func CleanText(raw string) string {
	if raw == "" {
		return raw
	}

	text := raw
	for _, a := range ocrArtifacts {
		text = strings.ReplaceAll(text, a, "")
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(horizontalWS.ReplaceAllString(line, " "))
		if line == "" || isNoiseLine(line) {
			continue
		}
		kept = append(kept, line)
	}

	out := strings.Join(kept, "\n")
	if removed := len(raw) - len(out); removed > 0 {
		log.Printf("OCR_CLEANED in=%d out=%d", len(raw), len(out))
	}
	return out
}

func isNoiseLine(line string) bool {
	for _, p := range pageNumberLines {
		if p.MatchString(line) {
			return true
		}
	}
	return len([]rune(line)) < 3 && !shortPriceLike.MatchString(line)
}
