package observe

// Operation describes one instrumented advisory call.
type Operation struct {
	Name     string // Operation name, e.g. "weather" (required)
	Language string // Response language code (optional)
	Cached   bool   // Whether the operation goes through the cache
}

// SpanName returns the span name for this operation.
// Format: advisor.<name>
func (o Operation) SpanName() string {
	return "advisor." + o.Name
}

// Validate reports ErrMissingOperationName for an unnamed operation.
func (o Operation) Validate() error {
	if o.Name == "" {
		return ErrMissingOperationName
	}
	return nil
}

// Fields returns the log fields describing the operation.
func (o Operation) Fields() []Field {
	fields := []Field{{Key: "op.name", Value: o.Name}}
	if o.Language != "" {
		fields = append(fields, Field{Key: "op.lang", Value: o.Language})
	}
	return fields
}
