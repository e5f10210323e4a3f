package search

import (
	"errors"
	"fmt"
)

// InputError collects every problem found in caller-supplied criteria,
// keyed by field. errors.Is matches it against the rental.ErrInvalid* kinds
// it carries.
type InputError struct {
	fields map[string][]string
	kinds  []error
}

func newInputError() *InputError {
	return &InputError{
		fields: make(map[string][]string),
	}
}

func IsInputError(err error) *InputError {
	if err == nil {
		return nil
	}

	var inputError *InputError

	if errors.As(err, &inputError) {
		return inputError
	}

	return nil
}

func (ie *InputError) fieldsCount() int {
	return len(ie.fields)
}

func (ie *InputError) addError(field string, kind error, msg string) {
	ie.fields[field] = append(ie.fields[field], msg)

	for _, k := range ie.kinds {
		if k == kind {
			return
		}
	}

	ie.kinds = append(ie.kinds, kind)
}

func (ie *InputError) Error() string {
	return fmt.Sprintf("%v %+v", ie.kinds, ie.fields)
}

func (ie *InputError) Fields() map[string][]string {
	return ie.fields
}

func (ie *InputError) Is(target error) bool {
	for _, k := range ie.kinds {
		if k == target {
			return true
		}
	}

	return false
}
