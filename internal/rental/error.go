package rental

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidRange      = errors.New("invalid date range")
	ErrInvalidGeoParams  = errors.New("invalid geo params")
	ErrInvalidOrdering   = errors.New("invalid ordering")
	ErrInvalidPagination = errors.New("invalid pagination")
	ErrDataIntegrity     = errors.New("data integrity violation")
	ErrListingNotFound   = errors.New("listing not found")
)

// IntegrityError lists every malformed record found in stored data.
type IntegrityError struct {
	problems []string
}

func NewIntegrityError() *IntegrityError {
	//nolint:exhaustruct
	return &IntegrityError{}
}

func IsIntegrityError(err error) *IntegrityError {
	if err == nil {
		return nil
	}

	var integrityError *IntegrityError

	if errors.As(err, &integrityError) {
		return integrityError
	}

	return nil
}

func (e *IntegrityError) Addf(format string, v ...any) {
	e.problems = append(e.problems, fmt.Sprintf(format, v...))
}

func (e *IntegrityError) merge(err error) {
	if other := IsIntegrityError(err); other != nil {
		e.problems = append(e.problems, other.problems...)
	}
}

func (e *IntegrityError) ProblemsCount() int {
	return len(e.problems)
}

func (e *IntegrityError) Problems() []string {
	return e.problems
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%v: %s", ErrDataIntegrity, strings.Join(e.problems, "; "))
}

func (e *IntegrityError) Is(target error) bool {
	return target == ErrDataIntegrity
}
