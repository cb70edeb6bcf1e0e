package analyzer

import "regexp"

// Pattern is one regular expression a recognizer matches, with the
// confidence a bare match carries.
type Pattern struct {
	Name   string
	Regexp *regexp.Regexp
	Score  float64
}

// Recognizer detects a single entity type. Context words appearing
// shortly before a match raise its score; a validator, when present,
// decides outright: pass pins the score to 1.0, fail drops the match.
type Recognizer struct {
	Name     string
	Entity   string
	Patterns []Pattern
	Context  []string
	Validate func(string) bool
}

// Match is one detected span in the analyzed text.
type Match struct {
	Entity string  `json:"entity"`
	Start  int     `json:"start"`
	End    int     `json:"end"`
	Score  float64 `json:"score"`
	Text   string  `json:"-"` // Never serialize the matched text
}
