package httpserver

import "errors"

var (
	ErrServe    = errors.New("http server failed")
	ErrShutdown = errors.New("failed to shutdown HTTP server gracefully")
)
