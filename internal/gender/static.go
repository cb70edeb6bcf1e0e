package gender

import (
	"context"
	"strings"
)

// StaticClassifier answers from an embedded table of common Danish and
// English given names. It needs no external services and doubles as the
// fallback when the dataset-backed classifier cannot answer.
type StaticClassifier struct{}

// NewStaticClassifier returns a table-backed classifier.
func NewStaticClassifier() *StaticClassifier {
	return &StaticClassifier{}
}

// Classify looks the token up case-insensitively. Names not in the
// table come back as Unknown.
func (c *StaticClassifier) Classify(_ context.Context, token string) Label {
	label, ok := staticNames[strings.ToLower(strings.TrimSpace(token))]
	if !ok {
		return Unknown
	}
	return label
}

// staticNames is a compact sample, not a full census. Deployments that
// need broad coverage load a frequency dataset through cmd/etl and run
// the store-backed classifier instead.
var staticNames = map[string]Label{
	// Male
	"anders":    Male,
	"christian": Male,
	"emil":      Male,
	"frederik":  Male,
	"henrik":    Male,
	"jakob":     Male,
	"james":     Male,
	"jens":      Male,
	"john":      Male,
	"kasper":    Male,
	"lars":      Male,
	"mads":      Male,
	"magnus":    Male,
	"michael":   Male,
	"mikkel":    Male,
	"morten":    Male,
	"niels":     Male,
	"ole":       Male,
	"oliver":    Male,
	"peter":     Male,
	"rasmus":    Male,
	"søren":     Male,
	"thomas":    Male,
	"william":   Male,

	// Female
	"anne":      Female,
	"astrid":    Female,
	"birgitte":  Female,
	"camilla":   Female,
	"cecilie":   Female,
	"clara":     Female,
	"emily":     Female,
	"emma":      Female,
	"freja":     Female,
	"hanne":     Female,
	"ida":       Female,
	"josefine":  Female,
	"karen":     Female,
	"kirsten":   Female,
	"laura":     Female,
	"lene":      Female,
	"louise":    Female,
	"maria":     Female,
	"mary":      Female,
	"mette":     Female,
	"sarah":     Female,
	"signe":     Female,
	"sofie":     Female,

	// Mostly male
	"chris":  MostlyMale,
	"kim":    MostlyMale,
	"maxime": MostlyMale,
	"robin":  MostlyMale,

	// Mostly female
	"dominique": MostlyFemale,
	"michele":   MostlyFemale,

	// Androgynous
	"alex":    Andy,
	"andrea":  Andy,
	"charlie": Andy,
	"eli":     Andy,
	"noa":     Andy,
	"sam":     Andy,
	"sascha":  Andy,
}
