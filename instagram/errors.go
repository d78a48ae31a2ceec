package instagram

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/odit-bit/expertfinder/retry"
)

// APIError is a non 200 answer of the API.
type APIError struct {
	Status  int
	Type    string
	Message string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("instagram: %d %s: %s", e.Status, e.Type, e.Message)
	}
	return fmt.Sprintf("instagram: status %d", e.Status)
}

// Temporary reports whether retrying the request may succeed.
func (e *APIError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

func newAPIError(res *http.Response) *APIError {
	apiErr := &APIError{Status: res.StatusCode}
	body, err := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	if err != nil {
		return apiErr
	}
	var env envelope
	if json.Unmarshal(body, &env) == nil {
		apiErr.Type = env.Meta.ErrorType
		apiErr.Message = env.Meta.ErrorMessage
	}
	return apiErr
}

// classify wraps errors not worth retrying with retry.Permanent.
func classify(err *APIError) error {
	if err.Temporary() {
		return err
	}
	return retry.Permanent(err)
}
