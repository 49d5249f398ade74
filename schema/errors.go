package schema

import (
	"fmt"
)

// ConnectionError reports a failure to reach or authenticate against the
// target database. It is fatal: extraction never starts.
type ConnectionError struct {
	Vendor string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to %s database: %v", e.Vendor, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
