package pseudonym

import (
	"context"
	"fmt"
	"strings"

	"github.com/mkaltoft/scrambletron/internal/gender"
)

// Format selects the placeholder layout the replacer produces.
type Format int

const (
	// FormatPlain produces placeholders like <PERSON_Jens Hansen>.
	FormatPlain Format = iota

	// FormatIndexed produces placeholders like <PERSON_'Jens Hansen'_0>,
	// keeping the counter index visible next to the synthetic value.
	FormatIndexed
)

// ReplacerOperator replaces values with generated realistic stand-ins.
// Person names are classified first so the stand-in matches the
// apparent gender of the original.
type ReplacerOperator struct {
	generator  ValueGenerator
	classifier gender.Classifier
	format     Format
}

// NewReplacerOperator creates a replacer with the given generator,
// classifier and placeholder format.
func NewReplacerOperator(generator ValueGenerator, classifier gender.Classifier, format Format) *ReplacerOperator {
	return &ReplacerOperator{
		generator:  generator,
		classifier: classifier,
		format:     format,
	}
}

// Replace returns the placeholder for a value, synthesizing a
// replacement when the value is new.
func (o *ReplacerOperator) Replace(ctx context.Context, entityType, original string, mapping EntityMapping) (string, error) {
	if err := checkReplaceArgs(entityType, original, mapping); err != nil {
		return "", err
	}

	if placeholder, ok := mapping.Lookup(entityType, original); ok {
		return placeholder, nil
	}

	replacement := o.synthesize(ctx, entityType, original)

	var placeholder string
	switch o.format {
	case FormatIndexed:
		placeholder = fmt.Sprintf("<%s_'%s'_%d>", entityType, replacement, mapping.CountForType(entityType))
	default:
		placeholder = fmt.Sprintf("<%s_%s>", entityType, replacement)
	}

	mapping.put(entityType, original, placeholder)
	return placeholder, nil
}

func (o *ReplacerOperator) synthesize(ctx context.Context, entityType, original string) string {
	switch entityType {
	case EntityPerson:
		return o.generator.PersonName(o.bucketFor(ctx, original))
	case EntityLocation:
		return o.generator.Address()
	case EntityPhoneNumber:
		return o.generator.PhoneNumber()
	case EntityEmailAddress:
		return o.generator.Email()
	case EntityIPAddress:
		return o.generator.IPv4()
	default:
		return ""
	}
}

// bucketFor classifies the first token of a detected name. Spans with
// no tokens fall back to the nonbinary bucket.
func (o *ReplacerOperator) bucketFor(ctx context.Context, name string) gender.Bucket {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return gender.BucketNonbinary
	}
	return gender.BucketFor(o.classifier.Classify(ctx, fields[0]))
}
