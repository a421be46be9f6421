package docstore

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError carries the store's error taxonomy to callers: a status code
// (404 for a missing document, 409 for a stale revision) and a human-readable
// description.
type StatusError struct {
	Code        int
	Description string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("docstore: %d %s", e.Code, e.Description)
}

func notFound(what string) *StatusError {
	return &StatusError{Code: http.StatusNotFound, Description: what + " not found"}
}

func conflict() *StatusError {
	return &StatusError{Code: http.StatusConflict, Description: "Document update conflict."}
}

// StatusOf returns the status code for err, or 500 when err carries none.
func StatusOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return http.StatusInternalServerError
}

// DescriptionOf returns the store description for err, falling back to the
// error message.
func DescriptionOf(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Description
	}
	return err.Error()
}

func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

func IsConflict(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusConflict
}
