// Package logger builds configured slog loggers: JSON for production, text
// for development, with context extractors that stamp request-scoped values
// (tenant ID, request ID) onto every record.
package logger
