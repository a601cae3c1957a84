package analyze

import (
	"math"
	"sort"
	"strings"

	"github.com/lookout-analytics/rfpharvest/pkg/harvest/internalerr"
)

// TfidfConfig bounds the fitted vocabulary.
type TfidfConfig struct {
	MinDF       int     // drop terms appearing in fewer documents
	MaxDFRatio  float64 // drop terms appearing in more than this fraction of documents
	MaxFeatures int     // keep at most this many terms, by corpus frequency
	Stopwords   []string
}

// DefaultTfidfConfig returns the corpus-analysis defaults.
func DefaultTfidfConfig() TfidfConfig {
	return TfidfConfig{MinDF: 2, MaxDFRatio: 0.85, MaxFeatures: 5000}
}

// Vectorizer holds a fitted TF-IDF vocabulary over unigrams and bigrams.
type Vectorizer struct {
	terms []string // sorted alphabetically
	index map[string]int
	idf   []float64
	ndocs int
	stops map[string]struct{}
}

// TermScore pairs a term with its score.
type TermScore struct {
	Term  string
	Score float64
}

// FitVectorizer learns the vocabulary and IDF weights from the corpus.
// It returns ErrEmptyCorpus when no document produces a token, and
// ErrNoTerms when the document-frequency bounds eliminate every term.
func FitVectorizer(docs []string, cfg TfidfConfig) (*Vectorizer, error) {
	if cfg.MinDF < 1 {
		cfg.MinDF = 1
	}
	if cfg.MaxDFRatio <= 0 || cfg.MaxDFRatio > 1 {
		cfg.MaxDFRatio = 1
	}
	stops := make(map[string]struct{}, len(cfg.Stopwords))
	for _, w := range cfg.Stopwords {
		stops[strings.ToLower(w)] = struct{}{}
	}

	df := make(map[string]int)
	total := make(map[string]int)
	tokenized := 0
	for _, doc := range docs {
		counts := termCounts(doc, stops)
		if len(counts) == 0 {
			continue
		}
		tokenized++
		for term, n := range counts {
			df[term]++
			total[term] += n
		}
	}
	if tokenized == 0 {
		return nil, internalerr.ErrEmptyCorpus
	}

	maxDF := int(cfg.MaxDFRatio * float64(tokenized))
	var kept []string
	for term, d := range df {
		if d < cfg.MinDF || d > maxDF {
			continue
		}
		kept = append(kept, term)
	}
	if len(kept) == 0 {
		return nil, internalerr.ErrNoTerms
	}

	if cfg.MaxFeatures > 0 && len(kept) > cfg.MaxFeatures {
		sort.Slice(kept, func(i, j int) bool {
			if total[kept[i]] != total[kept[j]] {
				return total[kept[i]] > total[kept[j]]
			}
			return kept[i] < kept[j]
		})
		kept = kept[:cfg.MaxFeatures]
	}
	sort.Strings(kept)

	v := &Vectorizer{
		terms: kept,
		index: make(map[string]int, len(kept)),
		idf:   make([]float64, len(kept)),
		ndocs: tokenized,
		stops: stops,
	}
	for i, term := range kept {
		v.index[term] = i
		v.idf[i] = math.Log(float64(1+tokenized)/float64(1+df[term])) + 1
	}
	return v, nil
}

// Terms returns the fitted vocabulary in alphabetical order.
func (v *Vectorizer) Terms() []string {
	return append([]string(nil), v.terms...)
}

// Transform computes the L2-normalized TF-IDF vector for one document.
func (v *Vectorizer) Transform(doc string) []float64 {
	vec := make([]float64, len(v.terms))
	counts := termCounts(doc, v.stops)
	var norm float64
	for term, n := range counts {
		i, ok := v.index[term]
		if !ok {
			continue
		}
		w := float64(n) * v.idf[i]
		vec[i] = w
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}

// MeanScores averages the TF-IDF vectors of all documents, yielding a
// per-term prominence score for the corpus.
func (v *Vectorizer) MeanScores(docs []string) []float64 {
	mean := make([]float64, len(v.terms))
	if len(docs) == 0 {
		return mean
	}
	for _, doc := range docs {
		for i, w := range v.Transform(doc) {
			mean[i] += w
		}
	}
	for i := range mean {
		mean[i] /= float64(len(docs))
	}
	return mean
}

// TopTerms returns the n highest-scoring terms over the documents,
// ordered by score descending, ties broken alphabetically.
func (v *Vectorizer) TopTerms(docs []string, n int) []TermScore {
	return topScores(v.terms, v.MeanScores(docs), n)
}

func topScores(terms []string, scores []float64, n int) []TermScore {
	out := make([]TermScore, 0, len(terms))
	for i, term := range terms {
		if scores[i] <= 0 {
			continue
		}
		out = append(out, TermScore{Term: term, Score: scores[i]})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Term < out[j].Term
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// termCounts tokenizes one document into unigram and bigram frequencies.
// Tokens are runs of ASCII letters, three characters or longer,
// lowercased; stopwords are removed before bigrams form, so a bigram may
// bridge a removed stopword.
func termCounts(doc string, stops map[string]struct{}) map[string]int {
	tokens := letterTokens(doc, stops)
	if len(tokens) == 0 {
		return nil
	}
	counts := make(map[string]int, 2*len(tokens))
	for i, tok := range tokens {
		counts[tok]++
		if i+1 < len(tokens) {
			counts[tok+" "+tokens[i+1]]++
		}
	}
	return counts
}

func letterTokens(doc string, stops map[string]struct{}) []string {
	var tokens []string
	var b strings.Builder
	flush := func() {
		if b.Len() >= 3 {
			tok := strings.ToLower(b.String())
			if _, stop := stops[tok]; !stop {
				tokens = append(tokens, tok)
			}
		}
		b.Reset()
	}
	for _, r := range doc {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}
