// Package classify implements the deductive pass of the pipeline: tagging
// notice text against a fixed vocabulary of literal phrases, with a
// higher-priority exclusion list for irrelevant postings.
package classify

import (
	"strings"

	"github.com/cloudflare/ahocorasick"

	"github.com/lookout-analytics/rfpharvest/pkg/harvest/notice"
)

// Classifier matches notice text against the exclusion fragments and the
// inclusion vocabulary. Both pattern sets are compiled into Aho-Corasick
// automata over lowercased text, so matching is linear in the text length
// and case folding happens once, up front.
type Classifier struct {
	keywords   []string // lowercased inclusion phrases, original order
	exclusions []string // lowercased exclusion fragments
	include    *ahocorasick.Matcher
	exclude    *ahocorasick.Matcher
}

// New builds a classifier from the given inclusion phrases and exclusion
// fragments. Patterns are folded to lowercase; empty entries are dropped.
func New(keywords, exclusions []string) *Classifier {
	kw := foldPatterns(keywords)
	ex := foldPatterns(exclusions)
	return &Classifier{
		keywords:   kw,
		exclusions: ex,
		include:    ahocorasick.NewStringMatcher(kw),
		exclude:    ahocorasick.NewStringMatcher(ex),
	}
}

// Default builds a classifier over the built-in research vocabulary.
func Default() *Classifier {
	return New(Keywords, Exclusions)
}

// Classify tags free text against the vocabulary. An exclusion fragment
// anywhere in the text wins unconditionally, even when inclusion phrases
// are also present. Matched keywords come back lowercased, deduplicated,
// in first-occurrence order; every configured phrase that textually
// matches is reported, with no attempt at a minimal covering set.
func (c *Classifier) Classify(text string) (bool, []string) {
	folded := []byte(strings.ToLower(text))

	if len(c.exclude.Match(folded)) > 0 {
		return false, nil
	}

	hits := c.include.Match(folded)
	if len(hits) == 0 {
		return false, nil
	}
	matched := make([]string, 0, len(hits))
	for _, idx := range hits {
		matched = append(matched, c.keywords[idx])
	}
	return true, matched
}

// ClassifyNotice classifies the concatenation of title, description, and
// agency, independent of which adapter produced the notice.
func (c *Classifier) ClassifyNotice(n notice.Notice) (bool, []string) {
	return c.Classify(n.ClassificationText())
}

// Vocabulary returns the lowercased inclusion phrases, for gap analysis.
func (c *Classifier) Vocabulary() []string {
	return append([]string(nil), c.keywords...)
}

// foldPatterns lowercases patterns and drops empties and duplicates,
// preserving first-seen order so match output stays deterministic.
func foldPatterns(patterns []string) []string {
	seen := make(map[string]struct{}, len(patterns))
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
