package configurator

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfiguration matches every ValidationError via errors.Is.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// FieldError reports a malformed or disallowed value.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CardinalityError reports a customization group with too few or too many selections.
type CardinalityError struct {
	GroupID   string
	GroupName string
	Min       int
	Max       int
	Actual    int
}

func (e *CardinalityError) Error() string {
	switch {
	case e.Min == e.Max:
		return fmt.Sprintf("%s: choose exactly %d, got %d", e.GroupName, e.Min, e.Actual)
	case e.Max < 0:
		return fmt.Sprintf("%s: choose at least %d, got %d", e.GroupName, e.Min, e.Actual)
	default:
		return fmt.Sprintf("%s: choose between %d and %d, got %d", e.GroupName, e.Min, e.Max, e.Actual)
	}
}

// ValidationError aggregates every problem found in one configuration.
type ValidationError struct {
	Errors []error
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Error())
	}
	return ErrInvalidConfiguration.Error() + ": " + strings.Join(msgs, "; ")
}

// Unwrap exposes the individual field and cardinality errors.
func (e *ValidationError) Unwrap() []error { return e.Errors }

// Is lets errors.Is match ErrInvalidConfiguration.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

// Detail is the renderable form of one validation problem.
type Detail struct {
	Field    string `json:"field"`
	Message  string `json:"message"`
	Expected string `json:"expected,omitempty"`
	Actual   *int   `json:"actual,omitempty"`
}

// Details flattens the aggregate into field-level messages for clients.
func (e *ValidationError) Details() []Detail {
	out := make([]Detail, 0, len(e.Errors))
	for _, err := range e.Errors {
		var field *FieldError
		var card *CardinalityError
		switch {
		case errors.As(err, &card):
			actual := card.Actual
			expected := fmt.Sprintf("%d..%d", card.Min, card.Max)
			if card.Max < 0 {
				expected = fmt.Sprintf("%d..", card.Min)
			} else if card.Min == card.Max {
				expected = fmt.Sprintf("%d", card.Min)
			}
			out = append(out, Detail{
				Field:    "selections." + card.GroupName,
				Message:  card.Error(),
				Expected: expected,
				Actual:   &actual,
			})
		case errors.As(err, &field):
			out = append(out, Detail{Field: field.Field, Message: field.Message})
		default:
			out = append(out, Detail{Message: err.Error()})
		}
	}
	return out
}

type collector struct {
	errs []error
}

func (c *collector) field(name, format string, args ...any) {
	c.errs = append(c.errs, &FieldError{Field: name, Message: fmt.Sprintf(format, args...)})
}

func (c *collector) add(err error) {
	c.errs = append(c.errs, err)
}

func (c *collector) result() error {
	if len(c.errs) == 0 {
		return nil
	}
	return &ValidationError{Errors: c.errs}
}
