package record

import (
	"sort"
	"strings"
	"unicode"
)

// stopwords are excluded from token sets.  The list is tuned to the NamUs /
// RCMP case-description corpus: generic connectives plus the boilerplate
// vocabulary that appears in nearly every case narrative and therefore
// carries no discriminating power.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "was": {}, "with": {}, "on": {}, "in": {},
	"at": {}, "of": {}, "for": {}, "to": {}, "is": {}, "has": {},
	"a": {}, "an": {}, "or": {}, "no": {}, "none": {}, "not": {},
	"unknown": {}, "unsure": {}, "uncertain": {}, "years": {}, "old": {},
	"male": {}, "female": {}, "white": {}, "black": {}, "caucasian": {},
	"american": {}, "african": {}, "hispanic": {}, "asian": {}, "native": {},
	"race": {}, "sex": {}, "estimated": {}, "approximately": {},
	"approx": {}, "about": {}, "inches": {}, "pounds": {}, "cm": {},
	"kg": {}, "lbs": {}, "body": {}, "description": {}, "subject": {},
	"case": {}, "number": {}, "discovery": {}, "location": {}, "found": {},
	"sighting": {}, "last": {}, "seen": {}, "contact": {}, "date": {},
	"remains": {}, "charred": {}, "skeletonized": {}, "burned": {},
	"discovered": {}, "debris": {}, "underneath": {}, "after": {},
	"before": {}, "around": {}, "wearing": {}, "when": {}, "were": {},
	"been": {}, "had": {}, "his": {}, "her": {}, "she": {}, "him": {},
}

// minTokenLen filters out one- and two-letter fragments left over after
// punctuation stripping.
const minTokenLen = 3

// Tokenize converts free text into the canonical token set: lowercased,
// punctuation stripped, stopwords removed, keeping both single words and
// adjacent two-word phrases so that distinctive compounds ("nike jacket",
// "eagle tattoo") survive as units.  The result is sorted and deduplicated;
// Tokenize is a pure function, so tokenizing the same text twice always
// yields the same set.
func Tokenize(texts ...string) []string {
	seen := make(map[string]struct{})
	for _, text := range texts {
		words := splitWords(text)
		for i, w := range words {
			seen[w] = struct{}{}
			if i+1 < len(words) {
				seen[w+" "+words[i+1]] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for tok := range seen {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}

// splitWords lowercases text, splits on any non-alphanumeric rune, and drops
// stopwords and short fragments, preserving word order for phrase assembly.
func splitWords(text string) []string {
	if text == "" {
		return nil
	}
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) < minTokenLen {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}

// IsStopword reports whether the word is in the corpus stopword set.
func IsStopword(w string) bool {
	_, ok := stopwords[strings.ToLower(w)]
	return ok
}
