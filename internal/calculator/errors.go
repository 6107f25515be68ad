package calculator

import "errors"

var (
	// ErrTierNotFound is returned in strict mode when no tier matches the exact dimensions and weight.
	ErrTierNotFound = errors.New("no size tier matches the exact dimensions and weight")
	// ErrInvalidInput is returned when a dimension, weight or distance is negative or not a finite number.
	ErrInvalidInput = errors.New("dimensions, weight and distance must be finite non-negative numbers")
	// ErrNonFiniteCost is returned when extrapolation overflows for extreme inputs.
	ErrNonFiniteCost = errors.New("cost is not a finite number")
)
