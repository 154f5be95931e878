// Package login provides the public account endpoints: login and registration.
package login

import "errors"

// ErrInvalidBody is returned when the submitted JSON cannot be parsed.
var ErrInvalidBody = errors.New("invalid request body")
