// Package service implements the generic data-access layer every collection
// service is built from: uniform result envelopes, query-result caching with
// coarse invalidation on mutation, FIFO-serialized creation, sequential id
// allocation through a companion options service, and before/after hook
// pipelines.
//
// A Service is configured, not subclassed: Config carries the collection
// name, validator, hook set and the incremental/cacheable flags, and every
// concrete service (posts, tags, headlines, options, users) is an instance
// of the same type. Callers branch on the envelope's result code, never on
// errors; all store and hook failures terminate at the envelope boundary.
package service
