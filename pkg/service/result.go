package service

import "github.com/inkwell-cms/inkwell/pkg/document"

// Code is the envelope result status.
type Code string

const (
	StatusOK    Code = "OK"
	StatusError Code = "Error"
)

// Result is the uniform return shape of every service operation. Exactly
// one of Payload and ErrorMessage is populated, selected by Code.
type Result struct {
	Code         Code   `json:"resultCode"`
	Payload      any    `json:"payload,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// Success wraps a payload in an OK envelope.
func Success(payload any) Result {
	return Result{Code: StatusOK, Payload: payload}
}

// Failure wraps an error message in an Error envelope.
func Failure(message string) Result {
	return Result{Code: StatusError, ErrorMessage: message}
}

// IsOK reports whether the envelope carries a payload.
func (r Result) IsOK() bool {
	return r.Code == StatusOK
}

// Document returns the payload as a single document, or nil when the
// payload is absent or not a document.
func (r Result) Document() document.Document {
	doc, _ := r.Payload.(document.Document)
	return doc
}

// Documents returns the payload as an ordered document sequence, or nil.
func (r Result) Documents() []document.Document {
	docs, _ := r.Payload.([]document.Document)
	return docs
}
