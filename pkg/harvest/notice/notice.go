package notice

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// HashLen is the width of a content hash in hex characters. 16 hex chars
// (64 bits) is enough collision resistance for a corpus of this size.
const HashLen = 16

// Notice is one normalized procurement or grant opportunity record, as
// handed over by a source adapter. All fields default to empty strings.
type Notice struct {
	Source         string `json:"source"`
	State          string `json:"state"`
	ExternalID     string `json:"id"`
	Title          string `json:"title"`
	Agency         string `json:"agency"`
	Status         string `json:"status"`
	PostedDate     string `json:"posted_date"`
	CloseDate      string `json:"close_date"`
	URL            string `json:"url"`
	Description    string `json:"description"`
	Amount         string `json:"amount"`
	Recipient      string `json:"recipient"`
	RecipientState string `json:"recipient_state"`
	PIName         string `json:"pi_name"`
}

// Hash returns the content fingerprint of (state, externalID, title):
// SHA-256 of "state-externalID-title" truncated to HashLen hex chars.
// Two notices with equal hash are the same real-world opportunity.
func Hash(state, externalID, title string) string {
	sum := sha256.Sum256([]byte(state + "-" + externalID + "-" + title))
	return hex.EncodeToString(sum[:])[:HashLen]
}

// Hash returns the notice's content hash.
func (n Notice) Hash() string {
	return Hash(n.State, n.ExternalID, n.Title)
}

// CombinedText joins title, description, and agency for text analysis.
// The description is dropped when it is a verbatim copy of the title,
// which is common when an upstream source supplies no real description.
func (n Notice) CombinedText() string {
	return combinedText(n.Title, n.Description, n.Agency)
}

// ClassificationText is the raw concatenation the classifier matches
// against. Unlike CombinedText it never drops the description.
func (n Notice) ClassificationText() string {
	return n.Title + " " + n.Description + " " + n.Agency
}

// Row is one persisted record in the append-only store. Rows are never
// updated or deleted once written.
type Row struct {
	RFPID           string
	Hash            string
	Source          string
	State           string
	Title           string
	Agency          string
	Status          string
	PostedDate      string
	CloseDate       string
	URL             string
	Description     string
	Amount          string
	Recipient       string
	RecipientState  string
	PIName          string
	KeywordMatch    bool
	MatchedKeywords []string
	KeyTerms        []string
	ScrapeDate      string
	ScrapeTimestamp time.Time
}

// CombinedText mirrors Notice.CombinedText for stored rows, so the corpus
// analyzer builds the same text the extractor saw at ingest time.
func (r Row) CombinedText() string {
	return combinedText(r.Title, r.Description, r.Agency)
}

func combinedText(title, desc, agency string) string {
	if strings.EqualFold(strings.TrimSpace(desc), strings.TrimSpace(title)) {
		desc = ""
	}
	parts := make([]string, 0, 3)
	for _, p := range []string{title, desc, agency} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}
