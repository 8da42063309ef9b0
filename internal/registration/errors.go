package registration

// ValidationError reports a missing or invalid required field. Its message
// is client-facing and returned verbatim in 400 responses.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
