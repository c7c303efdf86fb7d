package repository

import "errors"

var (
	// ErrNetwork is returned when the feed could not be retrieved.
	ErrNetwork = errors.New("feed fetch failed")

	// ErrParse is returned when the feed document does not match the expected schema.
	ErrParse = errors.New("feed parse failed")
)
