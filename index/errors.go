package index

import (
	"errors"
	"fmt"
)

// ErrInvalidIdentifier marks a table or field name that is not safe to
// interpolate into DDL.
var ErrInvalidIdentifier = errors.New("invalid identifier")

// QueryError is a failed catalog lookup.
type QueryError struct {
	Table string
	Field string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("catalog lookup for %s.%s: %v", e.Table, e.Field, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// CreateError is a failed index creation. Statement is empty when the
// request was refused before any statement was built.
type CreateError struct {
	Table     string
	Field     string
	Statement string
	Err       error
}

func (e *CreateError) Error() string {
	if e.Statement == "" {
		return fmt.Sprintf("create index on %s.%s: %v", e.Table, e.Field, e.Err)
	}
	return fmt.Sprintf("create index on %s.%s (%s): %v", e.Table, e.Field, e.Statement, e.Err)
}

func (e *CreateError) Unwrap() error { return e.Err }

// EnsureError ties a QueryError or CreateError to the request that failed.
type EnsureError struct {
	Request IndexRequest
	// Position is the 0-based manifest position, -1 outside EnsureAll.
	Position int
	Err      error
}

func (e *EnsureError) Error() string {
	if e.Position >= 0 {
		return fmt.Sprintf("ensure index %s (entry %d): %v", e.Request, e.Position+1, e.Err)
	}
	return fmt.Sprintf("ensure index %s: %v", e.Request, e.Err)
}

func (e *EnsureError) Unwrap() error { return e.Err }
