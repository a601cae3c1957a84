// Package stopwords holds the stop sets shared by the key-term extractor
// and the corpus analyzer: common English function words plus the
// procurement boilerplate that otherwise dominates every notice.
package stopwords

import "strings"

var english = strings.Fields(
	"a an the and or but in on at to for of is it its by from with as be was " +
		"were been being have has had do does did will would shall should may might " +
		"can could this that these those am are not no nor so if then than too very " +
		"each every all any both few more most other some such only own same just " +
		"about above after again against before below between during into out over " +
		"through under until up also how what which who whom why where when there " +
		"here their them they he she her his him we our us you your me my")

var procurement = strings.Fields(
	"rfp rfq rfi ifb solicitation bid bids proposal proposals contract contracts " +
		"amendment addendum addenda vendor vendors supplier suppliers bidder bidders " +
		"services service provide providing provided provision procurement purchase " +
		"purchasing request requests notice notices invitation invitations due date " +
		"state county city town village district department dept division office " +
		"agency bureau board commission authority university college school " +
		"number num fiscal year month annual quarterly per new open closed awarded " +
		"public issued release released issuing response responses submission " +
		"submit submitted deadline period effective expiration renewal " +
		"section item items page pages attachment exhibit appendix scope work " +
		"required requirements requirement include includes including included " +
		"shall must may general description specifications specification")

// English returns the common English function words.
func English() []string {
	return append([]string(nil), english...)
}

// Procurement returns the procurement boilerplate terms.
func Procurement() []string {
	return append([]string(nil), procurement...)
}

// All returns the combined stop set.
func All() []string {
	out := make([]string, 0, len(english)+len(procurement))
	out = append(out, english...)
	out = append(out, procurement...)
	return out
}

// Set builds a lookup set from a word list, lowercasing entries.
func Set(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return set
}
