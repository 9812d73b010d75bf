package extract

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"instaguard/internal/models"
)

// DigitRatio returns the share of digits in s, rounded to two decimals.
func DigitRatio(s string) float64 {
	n := utf8.RuneCountInString(s)
	if n == 0 {
		return 0
	}
	digits := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	return math.Round(float64(digits)/float64(n)*100) / 100
}

// bioLengthFromDescription measures the text before the first "-" of a profile
// page's meta description.
func bioLengthFromDescription(content string) int {
	head, _, _ := strings.Cut(content, "-")
	return utf8.RuneCountInString(strings.TrimSpace(head))
}

// partialSignals builds the signal set for a fallback hit: only the bio length
// and the username-derived ratio are known.
func partialSignals(username, source string, p Partial) models.SignalSet {
	return models.SignalSet{
		BioLength:          p.BioLength,
		UsernameDigitRatio: DigitRatio(username),
		Source:             source,
		Partial:            true,
	}
}
