package analyze

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/lookout-analytics/rfpharvest/pkg/harvest/notice"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// corpusRows builds enough varied rows for the term model to fit.
func corpusRows() []notice.Row {
	var rows []notice.Row
	topics := []string{
		"regional transit corridor study",
		"broadband expansion planning",
		"economic impact assessment",
		"workforce development survey",
	}
	for i := 0; i < 18; i++ {
		topic := topics[i%len(topics)]
		rows = append(rows, notice.Row{
			State:        []string{"TX", "NC", "Federal"}[i%3],
			Source:       "portal",
			Title:        fmt.Sprintf("%s phase %d", topic, i),
			Description:  "Consultant services for " + topic + " covering data collection and stakeholder engagement across the region",
			KeywordMatch: i%2 == 0,
		})
	}
	return rows
}

func TestBaselineRun(t *testing.T) {
	a := New([]string{"economic development"}, []string{"for", "and", "the"})
	report, snap := a.Analyze(corpusRows(), Snapshot{}, false, testNow)

	if !strings.Contains(report, "Baseline run") {
		t.Error("baseline run not announced in report")
	}
	for _, section := range []string{"New top terms", "Dropped top terms", "Rising terms"} {
		if strings.Contains(report, section) {
			t.Errorf("baseline report contains diff section %q", section)
		}
	}
	if snap.Timestamp != "2026-03-01T09:00:00Z" {
		t.Errorf("snapshot timestamp = %q", snap.Timestamp)
	}
	if len(snap.TopTfidf) == 0 {
		t.Error("baseline snapshot has no top terms")
	}
}

func TestRisingTermAcrossRuns(t *testing.T) {
	a := New(nil, nil)
	prev := Snapshot{TopTfidf: map[string]float64{"transit corridor": 0.0100}}

	rows := corpusRows()
	report, snap := a.Analyze(rows, prev, true, testNow)
	cur, ok := snap.TopTfidf["transit corridor"]
	if !ok {
		t.Fatalf("expected transit corridor in top terms, got %d terms", len(snap.TopTfidf))
	}
	if cur > 0.0110 && !strings.Contains(report, "Rising terms:\n") {
		t.Error("rising section missing")
	}
	if cur > 0.0110 && !strings.Contains(report, "transit corridor") {
		t.Error("rising term not reported")
	}
}

func TestDegradedFit(t *testing.T) {
	a := New(nil, nil)
	// The two notices share no alphabetic token, so every term has
	// document frequency 1 and the model cannot fit.
	rows := []notice.Row{
		{Title: "Coastal survey", Description: "Consultants examine oceanic currents, 2024 coral reef decline, 2025 tidal energy pilots."},
		{Title: "Alpine review", Description: "Engineers chart mountain snowpack, 2024 glacier retreat metrics, 2025 avalanche mitigation spending."},
	}
	report, snap := a.Analyze(rows, Snapshot{}, false, testNow)

	if !strings.Contains(report, "ANALYSIS DEGRADED") {
		t.Error("degraded fit not noted in report")
	}
	if len(snap.TopTfidf) != 0 {
		t.Errorf("degraded run produced top terms: %v", snap.TopTfidf)
	}
	if len(snap.RakePhrases) == 0 {
		t.Error("keyphrase extraction should still run when the term model fails")
	}
}

func TestGapAnalysisExcludesCoveredTerms(t *testing.T) {
	a := New([]string{"transit"}, nil)
	_, snap := a.Analyze(corpusRows(), Snapshot{}, false, testNow)

	for term := range snap.GapTerms {
		if strings.Contains(term, "transit") {
			t.Errorf("covered term %q reported as gap", term)
		}
	}
	if len(snap.GapTerms) == 0 {
		t.Error("uncovered corpus terms should surface as gaps")
	}
}

func TestGroupSectionsSkipSmallGroups(t *testing.T) {
	a := New(nil, nil)
	rows := corpusRows()
	rows = append(rows, notice.Row{State: "WY", Source: "portal", Title: "Lone notice", Description: "single document group"})
	report, _ := a.Analyze(rows, Snapshot{}, false, testNow)

	if strings.Contains(report, "by state: WY") {
		t.Error("group below minimum size should be skipped")
	}
	if !strings.Contains(report, "by state: TX") {
		t.Error("large state group missing from report")
	}
	if !strings.Contains(report, "by source: portal") {
		t.Error("source group missing from report")
	}
}

func TestMatchDifferentialSections(t *testing.T) {
	a := New(nil, nil)
	report, _ := a.Analyze(corpusRows(), Snapshot{}, false, testNow)
	if !strings.Contains(report, "distinguishing matched") || !strings.Contains(report, "distinguishing unmatched") {
		t.Error("matched/unmatched differential sections missing")
	}
}

func TestMatchDifferentialSignSeparation(t *testing.T) {
	a := New(nil, nil)
	report, _ := a.Analyze(corpusRows(), Snapshot{}, false, testNow)

	matchedSec := reportSection(t, report, "== Terms distinguishing matched notices ==")
	unmatchedSec := reportSection(t, report, "== Terms distinguishing unmatched notices ==")

	// Positive differentials only on the matched side, negative only on
	// the unmatched side; corpus tokens contain no hyphen, so a minus sign
	// can only come from a score.
	if strings.Contains(matchedSec, "-") {
		t.Errorf("negative differential in matched section:\n%s", matchedSec)
	}
	if !strings.Contains(unmatchedSec, "-") {
		t.Errorf("unmatched section has no negative differentials:\n%s", unmatchedSec)
	}

	matchedTerms := sectionTerms(matchedSec)
	for term := range sectionTerms(unmatchedSec) {
		if _, both := matchedTerms[term]; both {
			t.Errorf("term %q appears in both differential sections", term)
		}
	}
	if len(matchedTerms) == 0 {
		t.Error("matched section is empty")
	}
}

func TestVocabularyCoverageSections(t *testing.T) {
	a := New([]string{"transit corridor", "hydrogen hub"}, nil)
	report, _ := a.Analyze(corpusRows(), Snapshot{}, false, testNow)

	found := reportSection(t, report, "== Deductive keywords found in corpus ==")
	if !strings.Contains(found, "transit corridor") {
		t.Errorf("corpus-present keyword missing from found section:\n%s", found)
	}
	if strings.Contains(found, "hydrogen hub") {
		t.Error("absent keyword listed as found")
	}

	missing := reportSection(t, report, "== Deductive keywords not found in corpus ==")
	if !strings.Contains(missing, "hydrogen hub") {
		t.Errorf("absent keyword missing from not-found section:\n%s", missing)
	}
	if strings.Contains(missing, "transit corridor") {
		t.Error("corpus-present keyword listed as not found")
	}
}

// reportSection returns the body of one report section, up to the next
// section header.
func reportSection(t *testing.T, report, header string) string {
	t.Helper()
	i := strings.Index(report, header)
	if i < 0 {
		t.Fatalf("section %q missing from report:\n%s", header, report)
	}
	body := report[i+len(header):]
	if j := strings.Index(body, "\n== "); j >= 0 {
		body = body[:j]
	}
	return body
}

// sectionTerms parses the term column out of a scored section body.
func sectionTerms(section string) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, line := range strings.Split(section, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		terms[strings.Join(fields[:len(fields)-1], " ")] = struct{}{}
	}
	return terms
}

func TestEmptyCorpusDegrades(t *testing.T) {
	a := New(nil, nil)
	report, snap := a.Analyze(nil, Snapshot{}, false, testNow)
	if !strings.Contains(report, "ANALYSIS DEGRADED") {
		t.Error("empty corpus should degrade, not panic")
	}
	if len(snap.TopTfidf) != 0 || len(snap.GapTerms) != 0 {
		t.Error("empty corpus snapshot should have no terms")
	}
}
