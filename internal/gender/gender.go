// Package gender classifies first names into the label set used for
// gender-consistent name generation and collapses those labels into the
// three generator buckets.
package gender

import "context"

// Label is a classifier output. The set is closed; classifiers must not
// invent labels outside it.
type Label string

const (
	Unknown      Label = "unknown"
	Andy         Label = "andy" // androgynous
	Male         Label = "male"
	MostlyMale   Label = "mostly_male"
	Female       Label = "female"
	MostlyFemale Label = "mostly_female"
)

// Bucket selects one of the three name generators.
type Bucket int

const (
	BucketNonbinary Bucket = iota
	BucketMale
	BucketFemale
)

// String returns the bucket name for logging.
func (b Bucket) String() string {
	switch b {
	case BucketMale:
		return "male"
	case BucketFemale:
		return "female"
	default:
		return "nonbinary"
	}
}

// BucketFor collapses the five qualified labels into three buckets.
// The mostly_ labels share a bucket with their unqualified counterpart;
// unknown and andy fall to nonbinary, as does anything outside the
// label set. Total over every input, never an error.
func BucketFor(label Label) Bucket {
	switch label {
	case Male, MostlyMale:
		return BucketMale
	case Female, MostlyFemale:
		return BucketFemale
	default:
		return BucketNonbinary
	}
}

// Classifier guesses the apparent gender of a single given-name token.
// Implementations are case-insensitive and must return a Label for
// every input; names they cannot place come back as Unknown.
type Classifier interface {
	Classify(ctx context.Context, token string) Label
}

// LabelForCounts maps male/female observation counts for a name onto a
// label. The thresholds on the male share reproduce the five-way
// labelling of the usual first-name frequency datasets.
func LabelForCounts(male, female int64) Label {
	total := male + female
	if total == 0 {
		return Unknown
	}

	ratio := float64(male) / float64(total)
	switch {
	case ratio >= 0.95:
		return Male
	case ratio >= 0.60:
		return MostlyMale
	case ratio > 0.40:
		return Andy
	case ratio > 0.05:
		return MostlyFemale
	default:
		return Female
	}
}
