package textcorrect

import (
	"strings"

	"github.com/agext/levenshtein"
	"github.com/sajari/fuzzy"
)

const candidateLimit = 8

// Indonesian corrects whole texts by compound lookup: each term is replaced
// by its closest dictionary entry, and adjacent terms may be merged or a term
// split when that lowers the total edit distance.
type Indonesian struct {
	model   *fuzzy.Model
	words   Dictionary
	maxEdit int
}

func NewIndonesian(dict Dictionary, maxEdit int) *Indonesian {
	return &Indonesian{model: newModel(dict, maxEdit), words: dict, maxEdit: maxEdit}
}

// suggestion is one corrected span with its distance from the source.
type suggestion struct {
	term     string
	distance int
	count    int
}

// LookupCompound returns the best compound suggestions for text, best first.
// Only one suggestion is ever produced; none when no term matched the
// dictionary.
func (d *Indonesian) LookupCompound(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var (
		parts       []string
		prev        *suggestion
		prevToken   token
		prevMerged  bool
		matchedTerm bool
	)
	for i, w := range words {
		t := splitToken(w)
		if !t.correctable() {
			parts = append(parts, w)
			prev = nil
			continue
		}
		lower := strings.ToLower(t.core)
		best, ok := d.lookup(lower)

		// merge with the previous term when the joined form is closer, counting
		// the removed space as one edit
		if i > 0 && prev != nil && !prevMerged && prevToken.trail == "" && t.lead == "" {
			joined := strings.ToLower(prevToken.core) + lower
			if m, mok := d.lookup(joined); mok {
				sep := prev.distance
				if ok {
					sep += best.distance
				} else {
					sep += d.maxEdit + 1
				}
				if m.distance+1 < sep {
					parts[len(parts)-1] = prevToken.lead + m.term + t.trail
					prev, prevMerged, matchedTerm = &m, true, true
					continue
				}
			}
		}

		if !ok || best.distance > 0 {
			if sp, sok := d.split(lower); sok && (!ok || sp.distance < best.distance) {
				best, ok = sp, true
			}
		}

		if ok {
			matchedTerm = true
			parts = append(parts, t.join(best.term))
			prev = &best
		} else {
			parts = append(parts, w)
			prev = &suggestion{term: lower, distance: d.maxEdit + 1}
		}
		prevToken, prevMerged = t, false
	}
	if !matchedTerm {
		return nil
	}
	return []string{strings.Join(parts, " ")}
}

// Correct returns the best compound suggestion or text unchanged.
func (d *Indonesian) Correct(text string) string {
	suggestions := d.LookupCompound(text)
	if len(suggestions) == 0 {
		return text
	}
	return suggestions[0]
}

// lookup finds the closest dictionary term within maxEdit, preferring
// smaller distance, then higher frequency.
func (d *Indonesian) lookup(term string) (suggestion, bool) {
	if n, ok := d.words[term]; ok {
		return suggestion{term: term, count: n}, true
	}
	var (
		best  suggestion
		found bool
	)
	for _, cand := range d.model.SpellCheckSuggestions(term, candidateLimit) {
		dist := levenshtein.Distance(term, cand, nil)
		if dist > d.maxEdit {
			continue
		}
		s := suggestion{term: cand, distance: dist, count: d.words[cand]}
		if !found || s.distance < best.distance || (s.distance == best.distance && s.count > best.count) {
			best, found = s, true
		}
	}
	return best, found
}

// split tries every two-way split of term whose halves both resolve and
// returns the cheapest, counting the inserted space as one edit.
func (d *Indonesian) split(term string) (suggestion, bool) {
	rs := []rune(term)
	var (
		best  suggestion
		found bool
	)
	for i := 1; i < len(rs); i++ {
		left, lok := d.lookup(string(rs[:i]))
		if !lok {
			continue
		}
		right, rok := d.lookup(string(rs[i:]))
		if !rok {
			continue
		}
		joined := left.term + " " + right.term
		s := suggestion{
			term:     joined,
			distance: levenshtein.Distance(term, joined, nil),
			count:    min(left.count, right.count),
		}
		if s.distance > d.maxEdit {
			continue
		}
		if !found || s.distance < best.distance || (s.distance == best.distance && s.count > best.count) {
			best, found = s, true
		}
	}
	return best, found
}
