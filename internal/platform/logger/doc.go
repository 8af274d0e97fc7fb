// Package logger configures the process-wide structured logger and carries
// request-scoped loggers through context.Context.
//
// Output is JSON produced by log/slog. Components derive child loggers with a
// "component" attribute; HTTP middleware stores a logger enriched with the
// trace ID in the request context, where stores and services pick it up with
// FromContextOrDefault.
package logger
