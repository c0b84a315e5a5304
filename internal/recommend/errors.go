package recommend

import "fmt"

type ErrorKind string

const (
	KindLLMFailed ErrorKind = "llm_failed"
	KindJSONParse ErrorKind = "json_parse"
)

// GenerationError is the tagged failure returned by Generate. Callers must
// not run the decision step when they receive one.
type GenerationError struct {
	Kind    ErrorKind `json:"error"`
	Details string    `json:"details"`
	Raw     string    `json:"raw_response,omitempty"`
	Err     error     `json:"-"`
}

func (e *GenerationError) Error() string {
	switch e.Kind {
	case KindJSONParse:
		return fmt.Sprintf("recommend: json parsing failed: %s", e.Details)
	default:
		return fmt.Sprintf("recommend: llm processing failed: %s", e.Details)
	}
}

func (e *GenerationError) Unwrap() error { return e.Err }
