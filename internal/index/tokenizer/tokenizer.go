// Package tokenizer provides text tokenisation for the index builder and
// the query path. It lower-cases input and splits on non-alphanumeric
// boundaries. Both sides of the system must use the same transform, or a
// query term will never match its indexed form.
package tokenizer

import (
	"strings"
	"unicode"
)

// Tokenize breaks text into lowercased terms in order of first-character
// position. Runs of letters and digits form terms; every other rune is a
// boundary, so hyphenated words split at the hyphen. Duplicate terms are
// preserved; callers that need per-document uniqueness deduplicate
// themselves.
func Tokenize(text string) []string {
	text = strings.ToLower(text)
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
