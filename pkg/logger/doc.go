// Package logger builds configured slog loggers for the service.
//
// There is no process-wide mutable logger: the factory returns a logger that
// callers inject into their components. Context extractors let request-scoped
// values, like the request id, flow into every log line without threading
// them by hand.
package logger
