package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error is the envelope returned by every failing endpoint. The Name field
// identifies the error class, Text carries the human-readable detail, and
// Status is the HTTP status code the envelope is written with.
type Error struct {
	Name   string `json:"error"`
	Text   string `json:"text"`
	Status int    `json:"status"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Name, e.Text)
}

// AuthenticationFailure reports bad or missing credentials. The text is
// passed through from the failing verifier (e.g. "Incorrect password.").
func AuthenticationFailure(text string) *Error {
	return &Error{
		Name:   "Authentication failure",
		Text:   text,
		Status: http.StatusUnauthorized,
	}
}

// AuthenticationTypeFailure reports an unrecognized or disabled
// authentication type.
func AuthenticationTypeFailure(authType string) *Error {
	return &Error{
		Name:   "Authentication type failure",
		Text:   fmt.Sprintf("%s is not a valid authentication type", authType),
		Status: http.StatusBadRequest,
	}
}

// BadToken is the single external message for every token failure: absent
// from the registry, malformed, bad signature, expired, wrong issuer, or an
// unknown subject. The cases are deliberately indistinguishable to the
// caller.
func BadToken() *Error {
	return AuthenticationFailure("Bad API token")
}

// ObjectNotFound reports a nonexistent business object.
func ObjectNotFound(kind string) *Error {
	return &Error{
		Name:   "Object not found",
		Text:   fmt.Sprintf("Nonexistent %s", kind),
		Status: http.StatusNotFound,
	}
}

// BadObject reports a structurally invalid request object.
func BadObject(kind, text string) *Error {
	return &Error{
		Name:   "Bad object",
		Text:   fmt.Sprintf("%s: %s", kind, text),
		Status: http.StatusBadRequest,
	}
}

// BadQueryValue reports an unparseable query parameter.
func BadQueryValue(param, value string) *Error {
	return &Error{
		Name:   "Bad query value",
		Text:   fmt.Sprintf("Parameter %s contained invalid value %s", param, value),
		Status: http.StatusBadRequest,
	}
}

// ServerError reports an internal failure (unreachable registry or store).
// The detail stays in the server log; the envelope is generic.
func ServerError() *Error {
	return &Error{
		Name:   "Server error",
		Text:   "Internal server error",
		Status: http.StatusInternalServerError,
	}
}

// WriteError writes the envelope as a JSON response with its own status.
func WriteError(w http.ResponseWriter, e *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	json.NewEncoder(w).Encode(e)
}
