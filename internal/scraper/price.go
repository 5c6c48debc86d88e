package scraper

import (
	"regexp"
	"strconv"
	"strings"
)

// Candidate bounds for the price parser. Narrower than the final validity
// bounds on purpose: a value that parses below 1000 is treated as noise even
// though the record validator would accept 500.
const (
	minCandidatePrice = 1000
	maxCandidatePrice = 50_000_000
)

var (
	priceNoise = regexp.MustCompile(`[^\d,.\s]`)
	spaceRuns  = regexp.MustCompile(`\s+`)
	nonDigits  = regexp.MustCompile(`\D`)

	// Ordered: comma-grouped, period-grouped, bare digits. First accepted
	// match wins.
	pricePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d{1,3}(?:,\d{3})+`),
		regexp.MustCompile(`\d{1,3}(?:\.\d{3})+`),
		regexp.MustCompile(`\d+`),
	}
)

// normalizeDigits maps eastern-Arabic and Persian digits to ASCII so the
// price patterns match labels such as "۱۲,۵۰۰ تومان".
func normalizeDigits(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '۰' && r <= '۹': // U+06F0..U+06F9
			return '0' + (r - '۰')
		case r >= '٠' && r <= '٩': // U+0660..U+0669
			return '0' + (r - '٠')
		}
		return r
	}, s)
}

// ParsePrice extracts a price from arbitrary text. It strips everything but
// digits, separators and whitespace, tries the grouped patterns in order,
// and returns the first parsed value inside the candidate bounds as a
// canonical decimal string.
func ParsePrice(text string) (string, bool) {
	clean := priceNoise.ReplaceAllString(normalizeDigits(strings.TrimSpace(text)), "")
	clean = spaceRuns.ReplaceAllString(clean, " ")

	for _, pattern := range pricePatterns {
		for _, match := range pattern.FindAllString(clean, -1) {
			digits := nonDigits.ReplaceAllString(match, "")
			if digits == "" {
				continue
			}
			price, err := strconv.Atoi(digits)
			if err != nil {
				continue
			}
			if price >= minCandidatePrice && price <= maxCandidatePrice {
				return strconv.Itoa(price), true
			}
		}
	}
	return "", false
}
