// Package observability provides structured JSON logging, Prometheus
// metrics for the service layer, and health check handlers.
//
// Logging is logrus with a JSON formatter; the data-access services log
// through per-service entries and report counters via Metrics. Health
// endpoints follow the liveness/readiness split so the probes can be wired
// independently.
package observability
