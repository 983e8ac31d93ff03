package model

import "errors"

var (
	// ErrDataUnavailable marks a provider failure or an empty/short series.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrInsufficientData marks a series with fewer than two periods.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrInvalidGranularity marks a granularity outside the supported set. It is never degraded.
	ErrInvalidGranularity = errors.New("invalid granularity")
	// ErrInvalidVariant marks an unknown evaluator variant.
	ErrInvalidVariant = errors.New("invalid variant")
)
