package client

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
)

const throttledCode = "THROTTLED"

var (
	// ErrThrottled is returned when the API rejected a request with a rate-limit code.
	ErrThrottled = errors.New("catalog api: throttled")
	// ErrRetriesExhausted is returned when a throttled request did not succeed within the retry policy.
	ErrRetriesExhausted = errors.New("catalog api: throttle retries exhausted")
	ErrNotFound         = errors.New("catalog api: not found")
)

type GraphQLError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

// APIError is any non-throttle failure reported by the API.
type APIError struct {
	StatusCode int
	Errors     []GraphQLError
	Body       string
}

func (e *APIError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("catalog api: status %d: %s", e.StatusCode, e.Body)
	}
	messages := make([]string, 0, len(e.Errors))
	for _, gqlErr := range e.Errors {
		if gqlErr.Extensions.Code != "" {
			messages = append(messages, gqlErr.Extensions.Code+": "+gqlErr.Message)
			continue
		}
		messages = append(messages, gqlErr.Message)
	}
	return fmt.Sprintf("catalog api: status %d: %s", e.StatusCode, strings.Join(messages, "; "))
}

func isThrottled(errs []GraphQLError) bool {
	for _, e := range errs {
		if e.Extensions.Code == throttledCode {
			return true
		}
	}
	return false
}
