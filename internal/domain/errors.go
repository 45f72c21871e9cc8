package domain

import "errors"

// ErrInvalidArgument marks caller errors: bad day counts, bad catalog entries,
// unknown time steps. Wrap it with fmt.Errorf("%w: ...") and test with errors.Is.
var ErrInvalidArgument = errors.New("invalid argument")
