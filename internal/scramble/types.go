package scramble

// Finding summarizes the replacements made for one entity type.
// Positions are byte offsets into the original text.
type Finding struct {
	Entity    string `json:"entityType"`
	Count     int    `json:"count"`
	Positions []int  `json:"positions,omitempty"`
}

// Result contains the scrambled text and what was replaced
type Result struct {
	Text     string    `json:"text"`
	Findings []Finding `json:"findings"`
	Original string    `json:"-"` // Never serialize original text
}

// FileSummary reports what a file scramble did.
type FileSummary struct {
	LinesProcessed int            `json:"lines_processed"`
	LinesSkipped   int            `json:"lines_skipped"`
	EntityCounts   map[string]int `json:"entity_counts"`
}
