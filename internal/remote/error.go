package remote

import (
	"errors"
	"fmt"
)

// HTTPError is returned when the endpoint answers with a non-2xx status.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("remote returned %s", e.Status)
	}
	return fmt.Sprintf("remote returned %s: %s", e.Status, e.Body)
}

// StatusCode extracts the HTTP status from err, or 0 when err is not an
// *HTTPError.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}
