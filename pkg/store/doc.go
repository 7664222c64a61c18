// Package store defines the document store abstraction consumed by the
// service layer and provides four backends: an in-memory store for tests and
// prototyping, a journaled file store, and SQLite and PostgreSQL stores that
// keep each collection in its own table with a JSON document column.
package store
