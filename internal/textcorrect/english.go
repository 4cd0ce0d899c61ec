package textcorrect

import (
	"strings"

	"github.com/sajari/fuzzy"
)

// English corrects text word by word against a frequency dictionary.
type English struct {
	model *fuzzy.Model
	words Dictionary
}

// NewEnglish indexes dict for candidates up to maxEdit edits away.
func NewEnglish(dict Dictionary, maxEdit int) *English {
	return &English{model: newModel(dict, maxEdit), words: dict}
}

func newModel(dict Dictionary, maxEdit int) *fuzzy.Model {
	m := fuzzy.NewModel()
	m.SetThreshold(1)
	m.SetDepth(maxEdit)
	for term, count := range dict {
		m.SetCount(term, count, true)
	}
	return m
}

// Correct rebuilds text from its corrected words joined by single spaces.
// Casing follows the source word: Title stays capitalized, ALLCAPS stays
// upper, anything else takes the correction as returned.
func (e *English) Correct(text string) string {
	words := strings.Fields(text)
	for i, w := range words {
		words[i] = e.correctWord(w)
	}
	return strings.Join(words, " ")
}

func (e *English) correctWord(word string) string {
	t := splitToken(word)
	if !t.correctable() {
		return word
	}
	lower := strings.ToLower(t.core)
	if _, known := e.words[lower]; known {
		return word
	}
	corrected := e.model.SpellCheck(lower)
	if corrected == "" {
		return word
	}
	switch {
	case isTitle(t.core):
		corrected = capitalize(corrected)
	case isUpper(t.core):
		corrected = strings.ToUpper(corrected)
	}
	return t.join(corrected)
}
