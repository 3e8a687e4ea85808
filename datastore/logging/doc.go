// Package logging decorates a datastore.Table with structured logs and
// OpenTelemetry spans, one span per operation.
package logging
