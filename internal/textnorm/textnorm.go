// Package textnorm provides text canonicalisation for matching
// requirement-document lines against module identifiers.
package textnorm

import "strings"

// stripSet is the set of runes removed by Normalize: ASCII whitespace and
// punctuation plus the common CJK full-width equivalents.
const stripSet = " \t\n\r\v\f`~!@#$%^&*()_-+=[]{}|\\;:'\",.<>/?·！￥…（）—【】、；：“”‘’《》？"

var stripTable = func() map[rune]bool {
	table := make(map[rune]bool, len(stripSet))
	for _, r := range stripSet {
		table[r] = true
	}
	return table
}()

// legacyPunctuation maps traditional/variant punctuation to the canonical
// simplified forms. Applied to user-visible output, never to match keys.
var legacyPunctuation = map[rune]rune{
	'「': '【', '」': '】',
	'『': '【', '』': '】',
	'﹁': '【', '﹂': '】',
	'﹃': '【', '﹄': '】',
	'﹙': '（', '﹚': '）',
	'﹛': '{', '﹜': '}',
	'﹝': '[', '﹞': ']',
	'«': '《', '»': '》',
}

// Normalize strips whitespace and punctuation and lowercases the result so
// two spellings of the same identifier compare equal. Idempotent.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if stripTable[r] {
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}

// FixLegacyPunctuation rewrites variant bracket and quote styles to one
// canonical style.
func FixLegacyPunctuation(s string) string {
	if s == "" {
		return s
	}
	return strings.Map(func(r rune) rune {
		if repl, ok := legacyPunctuation[r]; ok {
			return repl
		}
		return r
	}, s)
}
