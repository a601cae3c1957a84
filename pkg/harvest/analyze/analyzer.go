// Package analyze implements the periodic corpus drift detector: TF-IDF
// term weighting over the full notice log, per-group breakdowns, gap
// analysis against the deductive vocabulary, RAKE keyphrase ranking, and
// a diff against the previous run's snapshot.
package analyze

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lookout-analytics/rfpharvest/pkg/harvest/notice"
)

// Analyzer configuration defaults.
const (
	DefaultTopOverall      = 50
	DefaultTopPerGroup     = 20
	DefaultTopRake         = 50
	DefaultTopGaps         = 30
	DefaultMinGroupSize    = 5
	DefaultMinRakeTextLen  = 80
	DefaultRisingThreshold = 0.10
	DefaultGapScoreFloor   = 0.001
)

// Caps for the vocabulary-coverage report sections.
const (
	vocabFoundCap   = 20
	vocabMissingCap = 30
)

// Analyzer runs one drift-detection pass over the stored corpus. The
// zero values of the numeric fields are replaced with the defaults
// above.
type Analyzer struct {
	Vocabulary []string // lowercased deductive phrases, for gap analysis
	Stopwords  []string

	TopOverall      int
	TopPerGroup     int
	TopRake         int
	TopGaps         int
	MinGroupSize    int
	MinRakeTextLen  int
	RisingThreshold float64
	GapScoreFloor   float64
}

// New returns an analyzer with default limits over the given vocabulary
// and stopword list.
func New(vocabulary, stopwords []string) *Analyzer {
	return &Analyzer{Vocabulary: vocabulary, Stopwords: stopwords}
}

func (a *Analyzer) withDefaults() Analyzer {
	c := *a
	if c.TopOverall <= 0 {
		c.TopOverall = DefaultTopOverall
	}
	if c.TopPerGroup <= 0 {
		c.TopPerGroup = DefaultTopPerGroup
	}
	if c.TopRake <= 0 {
		c.TopRake = DefaultTopRake
	}
	if c.TopGaps <= 0 {
		c.TopGaps = DefaultTopGaps
	}
	if c.MinGroupSize <= 0 {
		c.MinGroupSize = DefaultMinGroupSize
	}
	if c.MinRakeTextLen <= 0 {
		c.MinRakeTextLen = DefaultMinRakeTextLen
	}
	if c.RisingThreshold <= 0 {
		c.RisingThreshold = DefaultRisingThreshold
	}
	if c.GapScoreFloor <= 0 {
		c.GapScoreFloor = DefaultGapScoreFloor
	}
	return c
}

// Analyze runs the full pass over the corpus and produces the
// human-readable report plus the snapshot to persist. A model fit
// failure degrades the term sections to empty and is noted in the
// report; RAKE still runs, and no error is returned.
func (a *Analyzer) Analyze(rows []notice.Row, prev Snapshot, hasPrev bool, now time.Time) (string, Snapshot) {
	c := a.withDefaults()

	docs := make([]string, len(rows))
	for i, r := range rows {
		docs[i] = r.CombinedText()
	}

	snap := Snapshot{
		Timestamp: now.UTC().Format(time.RFC3339),
		TopTfidf:  map[string]float64{},
		GapTerms:  map[string]float64{},
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Corpus analysis %s — %d notices\n", snap.Timestamp, len(rows))

	cfg := DefaultTfidfConfig()
	cfg.Stopwords = c.Stopwords
	v, err := FitVectorizer(docs, cfg)
	if err != nil {
		fmt.Fprintf(&b, "\nANALYSIS DEGRADED: term model could not be fit: %v\n", err)
		fmt.Fprintf(&b, "Top terms, group breakdowns, and gap analysis skipped.\n")
	} else {
		top := v.TopTerms(docs, c.TopOverall)
		for _, ts := range top {
			snap.TopTfidf[ts.Term] = ts.Score
		}
		b.WriteString("\n== Top corpus terms (TF-IDF) ==\n")
		writeTermScores(&b, top)

		c.writeGroupSections(&b, v, rows, docs)
		c.writeMatchDifferential(&b, v, rows, docs)

		mean := v.MeanScores(docs)
		found, missing := c.vocabularyCoverage(v, mean)
		b.WriteString("\n== Deductive keywords found in corpus ==\n")
		if len(found) == 0 {
			b.WriteString("(none)\n")
		}
		writeTermScores(&b, found)
		b.WriteString("\n== Deductive keywords not found in corpus ==\n")
		if len(missing) == 0 {
			b.WriteString("(none)\n")
		}
		for _, term := range missing {
			fmt.Fprintf(&b, "  %s\n", term)
		}

		gaps := c.gapTerms(v, mean)
		for _, ts := range gaps {
			snap.GapTerms[ts.Term] = ts.Score
		}
		b.WriteString("\n== Vocabulary gap candidates ==\n")
		if len(gaps) == 0 {
			b.WriteString("(none above score floor)\n")
		}
		writeTermScores(&b, gaps)
	}

	phrases := c.rakePhrases(docs)
	snap.RakePhrases = make([]string, 0, len(phrases))
	b.WriteString("\n== Top keyphrases (RAKE) ==\n")
	for _, p := range phrases {
		snap.RakePhrases = append(snap.RakePhrases, p.Phrase)
		fmt.Fprintf(&b, "  %-40s %.2f\n", p.Phrase, p.Score)
	}
	if len(phrases) == 0 {
		b.WriteString("(no notice text long enough)\n")
	}

	if !hasPrev {
		b.WriteString("\n== Drift ==\nBaseline run: no previous snapshot; diff sections omitted.\n")
		return b.String(), snap
	}

	d := DiffSnapshots(prev, snap, c.RisingThreshold)
	b.WriteString("\n== Drift vs previous snapshot ==\n")
	writeStringSection(&b, "New top terms", d.NewTerms)
	writeStringSection(&b, "Dropped top terms", d.DroppedTerms)
	if len(d.Rising) > 0 {
		b.WriteString("Rising terms:\n")
		for _, r := range d.Rising {
			fmt.Fprintf(&b, "  %-40s %.4f -> %.4f\n", r.Term, r.Previous, r.Current)
		}
	} else {
		b.WriteString("Rising terms: (none)\n")
	}
	writeStringSection(&b, "New gap terms", d.NewGapTerms)
	writeStringSection(&b, "New keyphrases", d.NewRakePhrases)

	return b.String(), snap
}

// writeGroupSections applies the fitted model, without refitting, to the
// per-state and per-source subsets that clear the minimum group size.
func (c *Analyzer) writeGroupSections(b *strings.Builder, v *Vectorizer, rows []notice.Row, docs []string) {
	for _, group := range []struct {
		label string
		key   func(notice.Row) string
	}{
		{"state", func(r notice.Row) string { return r.State }},
		{"source", func(r notice.Row) string { return r.Source }},
	} {
		byKey := make(map[string][]string)
		for i, r := range rows {
			k := group.key(r)
			if k == "" {
				continue
			}
			byKey[k] = append(byKey[k], docs[i])
		}
		keys := make([]string, 0, len(byKey))
		for k := range byKey {
			if len(byKey[k]) >= c.MinGroupSize {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(b, "\n== Top terms by %s: %s (%d notices) ==\n", group.label, k, len(byKey[k]))
			writeTermScores(b, v.TopTerms(byKey[k], c.TopPerGroup))
		}
	}
}

// writeMatchDifferential surfaces the terms whose mean score differs
// most between keyword-matched and unmatched notices.
func (c *Analyzer) writeMatchDifferential(b *strings.Builder, v *Vectorizer, rows []notice.Row, docs []string) {
	var matched, unmatched []string
	for i, r := range rows {
		if r.KeywordMatch {
			matched = append(matched, docs[i])
		} else {
			unmatched = append(unmatched, docs[i])
		}
	}
	if len(matched) < c.MinGroupSize || len(unmatched) < c.MinGroupSize {
		return
	}

	mMean := v.MeanScores(matched)
	uMean := v.MeanScores(unmatched)
	var pos, neg []TermScore
	for i, term := range v.Terms() {
		d := mMean[i] - uMean[i]
		switch {
		case d > 0:
			pos = append(pos, TermScore{Term: term, Score: d})
		case d < 0:
			neg = append(neg, TermScore{Term: term, Score: d})
		}
	}
	sort.Slice(pos, func(i, j int) bool {
		if pos[i].Score != pos[j].Score {
			return pos[i].Score > pos[j].Score
		}
		return pos[i].Term < pos[j].Term
	})
	sort.Slice(neg, func(i, j int) bool {
		if neg[i].Score != neg[j].Score {
			return neg[i].Score < neg[j].Score
		}
		return neg[i].Term < neg[j].Term
	})
	if len(pos) > c.TopPerGroup {
		pos = pos[:c.TopPerGroup]
	}
	if len(neg) > c.TopPerGroup {
		neg = neg[:c.TopPerGroup]
	}

	b.WriteString("\n== Terms distinguishing matched notices ==\n")
	if len(pos) == 0 {
		b.WriteString("(none)\n")
	}
	writeTermScores(b, pos)
	b.WriteString("\n== Terms distinguishing unmatched notices ==\n")
	if len(neg) == 0 {
		b.WriteString("(none)\n")
	}
	writeTermScores(b, neg)
}

// vocabularyCoverage partitions the deductive phrases into those the
// fitted model observed in the corpus, ranked by mean score, and those
// it never saw.
func (c *Analyzer) vocabularyCoverage(v *Vectorizer, mean []float64) ([]TermScore, []string) {
	seen := make(map[string]struct{}, len(c.Vocabulary))
	var found []TermScore
	var missing []string
	for _, phrase := range c.Vocabulary {
		p := strings.ToLower(strings.TrimSpace(phrase))
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		if i, ok := v.index[p]; ok {
			found = append(found, TermScore{Term: p, Score: mean[i]})
		} else {
			missing = append(missing, p)
		}
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].Score != found[j].Score {
			return found[i].Score > found[j].Score
		}
		return found[i].Term < found[j].Term
	})
	sort.Strings(missing)
	if len(found) > vocabFoundCap {
		found = found[:vocabFoundCap]
	}
	if len(missing) > vocabMissingCap {
		missing = missing[:vocabMissingCap]
	}
	return found, missing
}

// gapTerms returns corpus terms above the score floor that the deductive
// vocabulary does not cover. A term is covered when it contains a
// vocabulary phrase or a vocabulary phrase contains it.
func (c *Analyzer) gapTerms(v *Vectorizer, mean []float64) []TermScore {
	terms := v.Terms()

	var gaps []TermScore
	for i, term := range terms {
		if mean[i] < c.GapScoreFloor {
			continue
		}
		if c.covered(term) {
			continue
		}
		gaps = append(gaps, TermScore{Term: term, Score: mean[i]})
	}
	sort.Slice(gaps, func(i, j int) bool {
		if gaps[i].Score != gaps[j].Score {
			return gaps[i].Score > gaps[j].Score
		}
		return gaps[i].Term < gaps[j].Term
	})
	if len(gaps) > c.TopGaps {
		gaps = gaps[:c.TopGaps]
	}
	return gaps
}

func (c *Analyzer) covered(term string) bool {
	for _, phrase := range c.Vocabulary {
		p := strings.ToLower(phrase)
		if strings.Contains(term, p) || strings.Contains(p, term) {
			return true
		}
	}
	return false
}

// rakePhrases joins every notice text above the minimum length and
// extracts ranked keyphrases from the combined text.
func (c *Analyzer) rakePhrases(docs []string) []ScoredPhrase {
	var long []string
	for _, doc := range docs {
		if len(doc) >= c.MinRakeTextLen {
			long = append(long, doc)
		}
	}
	if len(long) == 0 {
		return nil
	}
	return NewRake(c.Stopwords).Extract(strings.Join(long, " . "), c.TopRake)
}

func writeTermScores(b *strings.Builder, scores []TermScore) {
	for _, ts := range scores {
		fmt.Fprintf(b, "  %-40s %.4f\n", ts.Term, ts.Score)
	}
}

func writeStringSection(b *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		fmt.Fprintf(b, "%s: (none)\n", label)
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, strings.Join(items, ", "))
}
