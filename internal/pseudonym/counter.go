package pseudonym

import (
	"context"
	"fmt"
)

// CounterOperator replaces values with numbered placeholders such as
// <PERSON_0>. The index is the order in which distinct values of a
// type were first seen, counted per type.
type CounterOperator struct{}

// NewCounterOperator creates a counter operator.
func NewCounterOperator() *CounterOperator {
	return &CounterOperator{}
}

// Replace returns the placeholder for a value, assigning the next
// index for its type when the value is new.
func (o *CounterOperator) Replace(ctx context.Context, entityType, original string, mapping EntityMapping) (string, error) {
	if err := checkReplaceArgs(entityType, original, mapping); err != nil {
		return "", err
	}

	if placeholder, ok := mapping.Lookup(entityType, original); ok {
		return placeholder, nil
	}

	placeholder := fmt.Sprintf("<%s_%d>", entityType, mapping.CountForType(entityType))
	mapping.put(entityType, original, placeholder)
	return placeholder, nil
}
