package domain

import "errors"

// Error kinds surfaced by the encoder and the calendar shift. Callers match
// them with errors.Is; the wrapped message carries the detail.
var (
	// ErrValidation reports malformed or inconsistent weather input.
	ErrValidation = errors.New("validation error")

	// ErrIO reports an output destination that could not be written.
	ErrIO = errors.New("io error")

	// ErrCalendar reports invalid date arithmetic, e.g. Feb 29 moved into a
	// non-leap year.
	ErrCalendar = errors.New("calendar error")

	// ErrSchema reports a calendar record missing its start or end date.
	ErrSchema = errors.New("schema error")
)
