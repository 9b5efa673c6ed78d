package engine

import "errors"

// Common errors
var (
	ErrTopicNotFound       = errors.New("topic not found")
	ErrFallbackUnavailable = errors.New("similarity fallback unavailable")
)
