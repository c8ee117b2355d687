package query

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMode is returned when a mode or continuity selector is not recognized.
	ErrInvalidMode = errors.New("invalid mode")

	// ErrMissingField is returned when a field required by the selected mode is absent.
	ErrMissingField = errors.New("missing field")

	// ErrMalformedRange is returned for non-numeric, non-finite or inverted bounds,
	// and for dates or months that cannot be parsed.
	ErrMalformedRange = errors.New("malformed range")

	// ErrInjectionRisk is returned when an identifier is not a plain SQL identifier.
	ErrInjectionRisk = errors.New("injection risk")

	// ErrUnsupportedDialect is returned when no parameterized form exists for a dialect.
	ErrUnsupportedDialect = errors.New("unsupported dialect")
)

// FieldError ties one of the sentinel errors above to the offending field.
type FieldError struct {
	Field  string `json:"field"`
	Detail string `json:"detail,omitempty"`
	Err    error  `json:"-"`
}

func (e *FieldError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", e.Err, e.Field)
	}
	return fmt.Sprintf("%s: %s: %s", e.Err, e.Field, e.Detail)
}

// Unwrap allows errors.Is against the sentinel.
func (e *FieldError) Unwrap() error {
	return e.Err
}

func missing(field string) error {
	return &FieldError{Field: field, Err: ErrMissingField}
}

func malformed(field, format string, args ...any) error {
	return &FieldError{Field: field, Detail: fmt.Sprintf(format, args...), Err: ErrMalformedRange}
}
