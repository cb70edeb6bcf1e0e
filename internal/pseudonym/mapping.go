package pseudonym

// EntityMapping records, per entity type, which placeholder each
// original value was given. Reusing one mapping across calls is what
// keeps placeholders consistent within a document.
type EntityMapping map[string]map[string]string

// NewEntityMapping creates an empty mapping.
func NewEntityMapping() EntityMapping {
	return make(EntityMapping)
}

// Lookup returns the placeholder already assigned to a value.
func (m EntityMapping) Lookup(entityType, original string) (string, bool) {
	placeholder, ok := m[entityType][original]
	return placeholder, ok
}

// CountForType returns how many distinct values of a type have been
// mapped. It doubles as the next counter index.
func (m EntityMapping) CountForType(entityType string) int {
	return len(m[entityType])
}

// put records a placeholder, creating the per-type table on first use.
func (m EntityMapping) put(entityType, original, placeholder string) {
	forType, ok := m[entityType]
	if !ok {
		forType = make(map[string]string)
		m[entityType] = forType
	}
	forType[original] = placeholder
}
