package domain

import "strings"

// CareerRecord is a single catalog entry. Immutable after load.
type CareerRecord struct {
	ID          string
	Title       string
	Description string
	Skills      string
}

// FullText derives the text that is embedded for this record.
// Must stay byte-identical between precompute and serving, or the
// catalog vectors stop matching the records they were built from.
func (r CareerRecord) FullText() string {
	return r.Title + ". " + r.Description + " " + r.Skills
}

// SkillTokens splits the skills field into whitespace-delimited tokens.
func (r CareerRecord) SkillTokens() []string {
	return strings.Fields(r.Skills)
}

// Match is one ranked result for a user query. Built fresh per request.
type Match struct {
	Title       string
	Description string
	Skills      string
	Score       float64
	Reasoning   string
}

// Percentage converts the cosine similarity score to a 0-100 scale.
func (m Match) Percentage() float64 {
	return m.Score * 100
}
