package pseudonym

import (
	"context"
	"errors"

	"github.com/mkaltoft/scrambletron/internal/gender"
)

// Entity labels the replacer knows how to synthesize realistic values
// for. Other labels still get placeholders, just without a synthetic
// value inside them.
const (
	EntityPerson       = "PERSON"
	EntityLocation     = "LOCATION"
	EntityPhoneNumber  = "PHONE_NUMBER"
	EntityEmailAddress = "EMAIL_ADDRESS"
	EntityIPAddress    = "IP_ADDRESS"
)

var (
	// ErrNoEntityType is returned when the entity type is empty.
	ErrNoEntityType = errors.New("entity type must not be empty")

	// ErrNoValue is returned when the value to replace is empty.
	ErrNoValue = errors.New("value must not be empty")

	// ErrNoMapping is returned when no mapping was supplied.
	ErrNoMapping = errors.New("entity mapping must not be nil")
)

// Operator turns a detected value into its placeholder, recording the
// assignment in the mapping. A value already present in the mapping
// gets its existing placeholder back and the mapping is left untouched.
type Operator interface {
	Replace(ctx context.Context, entityType, original string, mapping EntityMapping) (string, error)
}

// ValueGenerator produces the synthetic values the replacer embeds in
// its placeholders.
type ValueGenerator interface {
	PersonName(bucket gender.Bucket) string
	Address() string
	PhoneNumber() string
	Email() string
	IPv4() string
}

// Ensure both operators implement the interface
var (
	_ Operator = (*CounterOperator)(nil)
	_ Operator = (*ReplacerOperator)(nil)
)

func checkReplaceArgs(entityType, original string, mapping EntityMapping) error {
	if entityType == "" {
		return ErrNoEntityType
	}
	if original == "" {
		return ErrNoValue
	}
	if mapping == nil {
		return ErrNoMapping
	}
	return nil
}
