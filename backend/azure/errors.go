package azure

import "fmt"

// RequestError is returned when the service answers with a status outside the
// success range and the caller did not allow the miss. The response body is
// kept for diagnostics.
type RequestError struct {
	Verb       string
	Path       string
	StatusCode int
	Body       []byte
}

func (e *RequestError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("azure: %s %s returned %d", e.Verb, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("azure: %s %s returned %d: %s", e.Verb, e.Path, e.StatusCode, e.Body)
}

// FormatError is returned when a response that arrived intact cannot be
// interpreted, e.g. a credential document missing a required field.
type FormatError struct {
	Msg string
}

func (e *FormatError) Error() string {
	return "azure: " + e.Msg
}
