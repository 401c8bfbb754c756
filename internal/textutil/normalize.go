// Package textutil provides text normalization helpers used for job
// identity hashing and fuzzy comparison.
package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// companySuffixes lists legal suffixes stripped during company normalization.
var companySuffixes = []string{
	"inc", "inc.", "incorporated",
	"llc", "l.l.c.", "ltd", "ltd.", "limited",
	"corp", "corp.", "corporation",
	"gmbh", "s.a.", "b.v.", "plc", "co", "co.",
}

// titleAbbreviations maps common title abbreviations to their expanded forms.
var titleAbbreviations = map[string]string{
	"sr":   "senior",
	"sr.":  "senior",
	"jr":   "junior",
	"jr.":  "junior",
	"eng":  "engineer",
	"eng.": "engineer",
	"dev":  "developer",
	"mgr":  "manager",
	"swe":  "software engineer",
}

// stripDiacritics removes combining marks after NFD decomposition.
var stripDiacritics = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Normalize lowercases, NFKC-normalizes, strips diacritics, and collapses
// whitespace.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	if out, _, err := transform.String(stripDiacritics, s); err == nil {
		s = out
	}
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeTitle normalizes a job title: Normalize plus abbreviation
// expansion and punctuation removal.
func NormalizeTitle(title string) string {
	normalized := Normalize(title)

	fields := strings.Fields(stripPunctuation(normalized))
	for i, f := range fields {
		if expanded, ok := titleAbbreviations[f]; ok {
			fields[i] = expanded
		}
	}
	return strings.Join(fields, " ")
}

// NormalizeCompany normalizes a company name: Normalize plus legal suffix
// removal, so "Acme Inc." and "Acme" compare equal.
func NormalizeCompany(company string) string {
	normalized := stripPunctuationKeepDots(Normalize(company))

	fields := strings.Fields(normalized)
	for len(fields) > 1 {
		last := fields[len(fields)-1]
		if !isCompanySuffix(last) {
			break
		}
		fields = fields[:len(fields)-1]
	}
	return strings.TrimSuffix(strings.Join(fields, " "), ".")
}

// NormalizeLocation normalizes a location string. Remote markers collapse to
// the single token "remote".
func NormalizeLocation(location string) string {
	normalized := Normalize(location)
	if IsRemote(normalized) {
		return "remote"
	}
	return stripPunctuation(normalized)
}

// IsRemote reports whether a location string indicates remote work.
func IsRemote(location string) bool {
	l := Normalize(location)
	return strings.Contains(l, "remote") ||
		strings.Contains(l, "work from home") ||
		strings.Contains(l, "anywhere")
}

// isCompanySuffix reports whether a token is a legal company suffix.
func isCompanySuffix(token string) bool {
	for _, s := range companySuffixes {
		if token == s {
			return true
		}
	}
	return false
}

// stripPunctuation removes all non-alphanumeric runes except spaces.
func stripPunctuation(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// stripPunctuationKeepDots removes punctuation but keeps dots, so suffix
// forms like "l.l.c." survive until suffix matching.
func stripPunctuationKeepDots(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '.' {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
