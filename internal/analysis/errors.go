package analysis

import "fmt"

// DecodeError reports malformed or empty audio input. Fatal to the attempt;
// never retried.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error: %s", e.Reason)
}

// AnalysisError reports an internal numeric invariant violation (NaN or Inf
// escaping the feature extractors). The extractors floor their edge cases, so
// seeing this is a bug signal, not an input problem.
type AnalysisError struct {
	Reason string
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis error: %s", e.Reason)
}
