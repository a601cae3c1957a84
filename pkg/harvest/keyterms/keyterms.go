// Package keyterms implements the inductive pass of the pipeline: a
// lightweight per-notice tokenizer that surfaces the most salient
// unigrams and bigrams without any corpus-level state.
package keyterms

import (
	"sort"
	"strings"
	"unicode"

	"github.com/lookout-analytics/rfpharvest/pkg/harvest/notice"
	"github.com/lookout-analytics/rfpharvest/pkg/harvest/stopwords"
)

const (
	// MinWordLen drops tokens shorter than this after normalization.
	MinWordLen = 3

	// MaxKeyTerms caps the number of terms returned per notice.
	MaxKeyTerms = 10

	// bigramBoost rewards multi-word phrases: a two-word phrase is more
	// specific than either of its component words.
	bigramBoost = 2.0
)

// Extractor tokenizes notice text and ranks in-document terms.
type Extractor struct {
	stops map[string]struct{}
}

// NewExtractor builds an extractor over the given stop set.
func NewExtractor(stops []string) *Extractor {
	return &Extractor{stops: stopwords.Set(stops)}
}

// Default builds an extractor over the combined English + procurement
// stop set.
func Default() *Extractor {
	return NewExtractor(stopwords.All())
}

// Extract returns up to MaxKeyTerms salient terms from a notice, ranked
// by score descending with alphabetical tie-breaking. Bigrams score
// double their in-document frequency; a unigram that is a substring of
// any observed bigram is suppressed entirely, since the selected phrase
// subsumes its component words. Empty text yields an empty result.
func (e *Extractor) Extract(n notice.Notice) []string {
	return e.ExtractFromText(n.CombinedText())
}

// ExtractFromText runs the extraction over a prebuilt text blob.
func (e *Extractor) ExtractFromText(text string) []string {
	tokens := e.tokenize(text)
	if len(tokens) == 0 {
		return nil
	}

	uniFreq := make(map[string]int)
	for _, tok := range tokens {
		uniFreq[tok]++
	}

	biFreq := make(map[string]int)
	for i := 0; i+1 < len(tokens); i++ {
		biFreq[tokens[i]+" "+tokens[i+1]]++
	}

	type scoredTerm struct {
		term  string
		score float64
	}
	scored := make([]scoredTerm, 0, len(uniFreq)+len(biFreq))
	for term, count := range biFreq {
		scored = append(scored, scoredTerm{term, float64(count) * bigramBoost})
	}
	for term, count := range uniFreq {
		if coveredByBigram(term, biFreq) {
			continue
		}
		scored = append(scored, scoredTerm{term, float64(count)})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].term < scored[j].term
	})

	seen := make(map[string]struct{}, MaxKeyTerms)
	result := make([]string, 0, MaxKeyTerms)
	for _, s := range scored {
		if _, dup := seen[s.term]; dup {
			continue
		}
		seen[s.term] = struct{}{}
		result = append(result, s.term)
		if len(result) >= MaxKeyTerms {
			break
		}
	}
	return result
}

// tokenize lowercases the text, maps punctuation to spaces, splits on
// whitespace, and drops short, purely numeric, and stopword tokens.
func (e *Extractor) tokenize(text string) []string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	var tokens []string
	for _, tok := range strings.Fields(b.String()) {
		if len(tok) < MinWordLen {
			continue
		}
		if numericOnly(tok) {
			continue
		}
		if _, stop := e.stops[tok]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

func coveredByBigram(term string, biFreq map[string]int) bool {
	for b := range biFreq {
		if strings.Contains(b, term) {
			return true
		}
	}
	return false
}

func numericOnly(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
