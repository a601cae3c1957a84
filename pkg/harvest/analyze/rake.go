package analyze

import (
	"sort"
	"strings"
	"unicode"
)

const (
	rakeMinPhraseWords = 2
	rakeMaxPhraseWords = 4
)

// ScoredPhrase pairs a candidate phrase with its degree-over-frequency
// score.
type ScoredPhrase struct {
	Phrase string
	Score  float64
}

// Rake extracts multi-word candidate phrases by splitting text at
// stopwords and punctuation, then scoring the surviving runs by word
// degree over word frequency.
type Rake struct {
	stops map[string]struct{}
}

// NewRake builds an extractor over the given stopword list.
func NewRake(stopwords []string) *Rake {
	stops := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		stops[strings.ToLower(w)] = struct{}{}
	}
	return &Rake{stops: stops}
}

// Extract returns the top n phrases of 2-4 words, scored descending with
// alphabetical ties. Phrases sharing the same word set (any order) are
// reported once, keeping the first surface form encountered.
func (r *Rake) Extract(text string, n int) []ScoredPhrase {
	phrases := r.candidates(text)
	if len(phrases) == 0 {
		return nil
	}

	freq := make(map[string]int)
	degree := make(map[string]int)
	for _, words := range phrases {
		for _, w := range words {
			freq[w]++
			degree[w] += len(words)
		}
	}

	seen := make(map[string]struct{}, len(phrases))
	var out []ScoredPhrase
	for _, words := range phrases {
		key := wordSetKey(words)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		var score float64
		for _, w := range words {
			score += float64(degree[w]) / float64(freq[w])
		}
		out = append(out, ScoredPhrase{Phrase: strings.Join(words, " "), Score: score})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Phrase < out[j].Phrase
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// candidates splits the text into runs of content words. Stopwords,
// punctuation, and numeric tokens end the current run; runs of 2-4 words
// become candidates.
func (r *Rake) candidates(text string) [][]string {
	var phrases [][]string
	var current []string
	flush := func() {
		if len(current) >= rakeMinPhraseWords && len(current) <= rakeMaxPhraseWords {
			phrases = append(phrases, current)
		}
		current = nil
	}

	for _, raw := range strings.FieldsFunc(text, isPhraseBoundary) {
		w := strings.ToLower(raw)
		if w == "" || isNumericWord(w) {
			flush()
			continue
		}
		if _, stop := r.stops[w]; stop {
			flush()
			continue
		}
		current = append(current, w)
	}
	flush()
	return phrases
}

func isPhraseBoundary(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func isNumericWord(w string) bool {
	for _, r := range w {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func wordSetKey(words []string) string {
	sorted := append([]string(nil), words...)
	sort.Strings(sorted)
	return strings.Join(sorted, "\x00")
}
