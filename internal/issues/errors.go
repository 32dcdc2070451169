package issues

import (
	"errors"
	"fmt"
)

// ErrConfiguration marks a fatal configuration problem such as an invalid
// regular expression. Callers test for it with errors.Is.
var ErrConfiguration = errors.New("configuration error")

// IntegrationError reports a failed tracker lookup. It is recoverable: the
// match that triggered it is skipped and retried on its next occurrence.
type IntegrationError struct {
	Kind Kind
	ID   string
	Err  error
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("%s lookup %q: %v", e.Kind, e.ID, e.Err)
}

func (e *IntegrationError) Unwrap() error {
	return e.Err
}
