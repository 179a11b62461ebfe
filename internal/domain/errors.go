package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors. SchemaError, ErrBadRequest and ErrNotFound propagate to the
// API boundary; cache-layer failures never do, they degrade to recomputation.
var (
	// ErrBadRequest marks invalid caller input.
	ErrBadRequest = errors.New("bad request")

	// ErrNotFound marks a missing entity.
	ErrNotFound = errors.New("not found")
)

// SchemaError reports required columns missing from a raw table after
// column-name normalization. Fatal for the request; never retried.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

// BadRequestf wraps ErrBadRequest with a caller-facing message.
func BadRequestf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}

// CountryNotFound reports a country with zero transactions in the cleaned
// table. A country is "not found" only by absence from the data, not from
// any external country list.
func CountryNotFound(name string) error {
	return fmt.Errorf("%w: country %s", ErrNotFound, name)
}
