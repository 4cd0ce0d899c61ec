package textcorrect

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// token splits a whitespace-delimited word into surrounding punctuation and
// the correctable core, e.g. "(Invoce:" -> "(", "Invoce", ":".
type token struct {
	lead, core, trail string
}

func splitToken(word string) token {
	start := strings.IndexFunc(word, isWordRune)
	if start < 0 {
		return token{lead: word}
	}
	end := strings.LastIndexFunc(word, isWordRune)
	_, size := utf8.DecodeRuneInString(word[end:])
	end += size
	return token{lead: word[:start], core: word[start:end], trail: word[end:]}
}

func (t token) join(core string) string {
	return t.lead + core + t.trail
}

// correctable reports whether the core is a plain alphabetic word.
func (t token) correctable() bool {
	if t.core == "" {
		return false
	}
	for _, r := range t.core {
		if !unicode.IsLetter(r) && r != '\'' && r != '-' {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// isTitle mirrors a single-word title check: first cased letter upper, the
// remaining cased letters lower.
func isTitle(s string) bool {
	seenUpper := false
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		if !seenUpper {
			if !unicode.IsUpper(r) {
				return false
			}
			seenUpper = true
			continue
		}
		if unicode.IsUpper(r) {
			return false
		}
	}
	return seenUpper
}

// isUpper reports whether every cased letter is upper case, with at least one.
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}

func capitalize(s string) string {
	rs := []rune(strings.ToLower(s))
	if len(rs) == 0 {
		return s
	}
	rs[0] = unicode.ToUpper(rs[0])
	return string(rs)
}
