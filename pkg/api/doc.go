// Package api exposes the content services over HTTP. Every service mounts
// the same six routes under /api/<name>; responses are always the service
// envelope with status 200, so clients branch on resultCode rather than on
// HTTP status. Only malformed requests (bad JSON, bad query parameters) get
// a 400 before reaching a service.
package api
