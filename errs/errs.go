package errs

import "errors"

// Sentinel errors for common error conditions
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates that input validation failed
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoProvider indicates that no LLM provider is configured
	ErrNoProvider = errors.New("no llm provider configured")

	// ErrMaxIterations indicates that a bounded loop hit its iteration cap
	ErrMaxIterations = errors.New("max iterations reached")

	// ErrInternal indicates an internal error
	ErrInternal = errors.New("internal error")
)
