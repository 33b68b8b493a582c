// Package log provides secure logging utilities for shopscan.
// It wraps log/slog handlers to sanitize sensitive information such as
// cookies, authorization headers, and credential-bearing URL query
// parameters before records reach the underlying handler.
package log
