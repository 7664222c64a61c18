// Package httputil provides small HTTP helpers shared by the API layer:
// JSON encoding and decoding, request parsing, and generic middleware.
package httputil
