package dedimania

import (
	"html"
	"strings"
	"unicode"
)

// cleanName lowercases s and drops everything but letters, digits,
// underscores and spaces.
func cleanName(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range strings.ToLower(html.UnescapeString(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			sb.WriteRune(r)
		}
	}
	return strings.TrimSpace(sb.String())
}

// NamesSimilar reports whether two challenge names likely refer to the same
// track: one contains the other after cleaning, or their lengths differ by
// at most 3 and at least 80% of the shorter name matches position by
// position.
func NamesSimilar(a, b string) bool {
	ca, cb := cleanName(a), cleanName(b)
	if ca == "" || cb == "" {
		return false
	}
	if strings.Contains(ca, cb) || strings.Contains(cb, ca) {
		return true
	}

	ra, rb := []rune(ca), []rune(cb)
	diff := len(ra) - len(rb)
	if diff < 0 {
		diff = -diff
	}
	if diff > 3 {
		return false
	}
	shorter := min(len(ra), len(rb))
	same := 0
	for i := 0; i < shorter; i++ {
		if ra[i] == rb[i] {
			same++
		}
	}
	return float64(same) >= float64(shorter)*0.8
}

// matchLink picks the first link whose text matches name.
func matchLink(links []challengeLink, name string, minText int) (string, bool) {
	for _, l := range links {
		if len(l.Text) <= minText {
			continue
		}
		if NamesSimilar(name, l.Text) {
			return l.UID, true
		}
	}
	return "", false
}
