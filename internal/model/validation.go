package model

import (
	"errors"
	"regexp"
)

// Validation errors. Every specific error wraps ErrValidation so callers can
// test for the whole family with errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrHourOutOfRange    = wrapValidation("hour value out of bounds")
	ErrNegativeCurrency  = wrapValidation("currency value cannot be negative")
	ErrMissingBaseAmount = wrapValidation("SALARIED policy must provide base_amount")
	ErrMissingBaseRate   = wrapValidation("HOURLY policy must provide base_rate")
	ErrInvalidPeriod     = wrapValidation("period must be YYYY-MM")
	ErrInvalidMode       = wrapValidation("invalid pay mode")
)

type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

func (e *validationError) Unwrap() error { return ErrValidation }

func wrapValidation(msg string) error {
	return &validationError{msg: msg}
}

var periodPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ValidPeriod reports whether s is a YYYY-MM period.
func ValidPeriod(s string) bool {
	return periodPattern.MatchString(s)
}
