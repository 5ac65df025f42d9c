package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyQuery signals a blank text query.
	ErrEmptyQuery = errors.New("empty query")
	// ErrInvalidTopN signals a non-positive result count.
	ErrInvalidTopN = errors.New("topN must be greater than 0")
	// ErrEmptyImage signals an image upload without content.
	ErrEmptyImage = errors.New("empty image")

	// ErrBackendUnavailable signals a transport-level failure talking to the search backend.
	ErrBackendUnavailable = errors.New("search backend unavailable")
	// ErrBackendStatus signals a non-2xx response from the search backend.
	ErrBackendStatus = errors.New("search backend returned an error status")
	// ErrBackendResponse signals a response body that could not be decoded.
	ErrBackendResponse = errors.New("invalid search backend response")
	// ErrBackendQuery signals application errors reported in a GraphQL "errors" list.
	ErrBackendQuery = errors.New("search backend query error")
)

// StatusError wraps ErrBackendStatus with the HTTP status code.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", ErrBackendStatus.Error(), e.Code)
	}
	return fmt.Sprintf("%s: status %d: %s", ErrBackendStatus.Error(), e.Code, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrBackendStatus }

// GraphQLError wraps ErrBackendQuery with the messages of a GraphQL "errors" list.
// Error() surfaces the first message.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	if len(e.Messages) == 0 {
		return ErrBackendQuery.Error()
	}
	return e.Messages[0]
}

func (e *GraphQLError) Unwrap() error { return ErrBackendQuery }
