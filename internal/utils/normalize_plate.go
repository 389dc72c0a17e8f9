package utils

import (
	"regexp"
	"strings"

	"golang.org/x/text/width"
)

// plateKeep matches the characters that survive normalization: digits,
// uppercase Latin letters and the Thai block from ก to ๙.
var plateKeep = regexp.MustCompile(`[0-9A-Zก-๙]+`)

// NormalizePlate maps raw plate text (typed by a user or read by OCR) to the
// key used for matching. Full-width forms are folded first so that ＡＢ１２
// and AB12 produce the same key.
func NormalizePlate(raw string) string {
	normalized := width.Fold.String(raw)
	normalized = strings.TrimSpace(normalized)
	normalized = strings.ReplaceAll(normalized, " ", "")
	normalized = strings.ReplaceAll(normalized, "-", "")
	normalized = strings.ToUpper(normalized)
	return strings.Join(plateKeep.FindAllString(normalized, -1), "")
}
