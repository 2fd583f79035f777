package domain

import "fmt"

// StatusError reports a non-success HTTP response from the membership
// database. It aborts the current reconciliation run and is never
// retried within it.
type StatusError struct {
	Status   int
	Endpoint string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("directory request to %s failed with status %d", e.Endpoint, e.Status)
}
