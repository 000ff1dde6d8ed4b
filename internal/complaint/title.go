package complaint

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"wangsammo/backend/internal/config"
	"wangsammo/backend/internal/models"
)

const trackingAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Title derives the display title: "<label>: <description>", with the
// description cut to its first 50 runes plus "..." when longer.
func Title(category models.Category, description string) string {
	if utf8.RuneCountInString(description) > config.TitleDescriptionRunes {
		runes := []rune(description)
		description = string(runes[:config.TitleDescriptionRunes]) + "..."
	}
	return category.Label() + ": " + description
}

// TrackingCode builds WS-<year>-<3 chars of [A-Z0-9]> using intn as the
// random source.
func TrackingCode(year int, intn func(n int) int) string {
	var b strings.Builder
	b.Grow(config.TrackingRandLength)
	for i := 0; i < config.TrackingRandLength; i++ {
		b.WriteByte(trackingAlphabet[intn(len(trackingAlphabet))])
	}
	return fmt.Sprintf("%s-%04d-%s", config.TrackingPrefix, year, b.String())
}
