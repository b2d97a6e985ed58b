package history

// ParseError reports input to Load that does not match the document
// schema: malformed JSON, a wrong field type, or an invariant violation
// already baked into the serialized data.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return "parsing history document: " + e.Reason + ": " + e.Err.Error()
	}

	return "parsing history document: " + e.Reason
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ValidationError reports an Append (or a document-level validation) that
// would violate an invariant. A failed Append leaves the document unchanged.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid history entry: " + e.Reason
}
