package testutil

import "errors"

// ErrSimulated stands in for a failing population store or database call.
var ErrSimulated = errors.New("simulated population lookup failure")
