package tools

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrUnknownTool is returned by Invoke for a name outside the catalog.
var ErrUnknownTool = errors.New("unknown tool")

// Violation is one rejected argument field.
type Violation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ArgumentError reports arguments that failed decoding or validation. The tool
// body never runs when it is returned.
type ArgumentError struct {
	Tool       string
	Violations []Violation
	Err        error
}

// Error implements the error interface.
func (e *ArgumentError) Error() string {
	if len(e.Violations) == 0 {
		return fmt.Sprintf("invalid arguments for %s: %v", e.Tool, e.Err)
	}
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.Field + " " + v.Message
	}
	return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, strings.Join(parts, "; "))
}

// Unwrap returns the decode or validation error.
func (e *ArgumentError) Unwrap() error {
	return e.Err
}

func newArgumentError(tool string, err error) *ArgumentError {
	argErr := &ArgumentError{Tool: tool, Err: err}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return argErr
	}
	for _, fe := range fieldErrs {
		argErr.Violations = append(argErr.Violations, Violation{
			Field:   fieldPath(fe.Namespace()),
			Rule:    fe.Tag(),
			Message: describeRule(fe),
		})
	}
	return argErr
}

// fieldPath drops the argument struct name: "lineItemsArgs.items[0].rate"
// becomes "items[0].rate".
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_if":
		return "is required when " + strings.Replace(fe.Param(), " ", " is ", 1)
	case "email":
		return "must be a valid email address"
	case "datetime":
		return "must be a date formatted YYYY-MM-DD"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "min":
		return "must contain at least " + fe.Param() + " entries"
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	}
	return "failed the " + fe.Tag() + " check"
}
