package opt

import "errors"

// ErrInvalidArgument is wrapped by every validation failure raised from
// Initialize. Use errors.Is(err, ErrInvalidArgument) to check for it.
var ErrInvalidArgument = errors.New("invalid argument")
