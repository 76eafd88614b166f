// Package normalizer cleans free-text bank transaction descriptions.
//
// Two transforms exist: Clean produces the lowercase form used for rule
// matching and storage, Display produces the Title Case form shown to users.
// They are independent because a rule may override the stored description
// while the display form stays derived from the original text.
package normalizer

import (
	"regexp"
	"strings"
	"unicode"
)

// Known payment-provider prefixes stripped from descriptions.
var paymentPrefixes = []string{"PGTO* "}

var (
	symbolRun       = regexp.MustCompile(`[*#@$%&+=\[\]{}|\\:";'<>?,./]`)
	longDigitRun    = regexp.MustCompile(`\b\d{8,}\b`)
	letterDigitCode = regexp.MustCompile(`\b[A-Za-z]{3,}[0-9]{3,}\b`)
	digitLetterCode = regexp.MustCompile(`\b[0-9]{3,}[A-Za-z]{3,}\b`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
)

// Clean normalizes a raw description for matching: strips payment prefixes,
// replaces symbol characters with spaces, drops long digit runs (opaque
// transaction ids) and alphanumeric reference codes, collapses whitespace and
// lowercases. Empty input yields empty output.
func Clean(description string) string {
	// Prefixes carry a trailing space, so they must be stripped before any
	// trimming removes it.
	cleaned := strings.TrimSpace(stripPrefixes(description))
	if cleaned == "" {
		return ""
	}

	cleaned = symbolRun.ReplaceAllString(cleaned, " ")
	cleaned = longDigitRun.ReplaceAllString(cleaned, " ")
	cleaned = letterDigitCode.ReplaceAllString(cleaned, " ")
	cleaned = digitLetterCode.ReplaceAllString(cleaned, " ")
	cleaned = whitespaceRun.ReplaceAllString(cleaned, " ")

	return strings.TrimSpace(strings.ToLower(cleaned))
}

// Display normalizes a raw description for human display: strips payment
// prefixes and converts to Title Case. No symbol or code removal happens
// here; the display form stays close to what the bank sent.
func Display(description string) string {
	cleaned := strings.TrimSpace(stripPrefixes(description))
	if cleaned == "" {
		return ""
	}

	return titleCase(cleaned)
}

func stripPrefixes(s string) string {
	for _, prefix := range paymentPrefixes {
		s = strings.ReplaceAll(s, prefix, "")
	}
	return s
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
