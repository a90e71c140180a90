package main

import (
	"errors"

	"github.com/agrotomo/bdagro-sync/modules/bdagro/domain/schema"
	"github.com/agrotomo/bdagro-sync/modules/bdagro/infrastructure/spreadsheet"
	"github.com/agrotomo/bdagro-sync/modules/bdagro/services"
)

// Process exit statuses. Anything unclassified exits with 1.
const (
	exitValidation = 2
	exitUsage      = 3
	exitDB         = 4
	exitDBWrite    = 5
)

// statusError pins the exit status of err.
type statusError struct {
	status int
	err    error
}

func (e *statusError) Error() string { return e.err.Error() }
func (e *statusError) Unwrap() error { return e.err }

func withStatus(status int, err error) error {
	if err == nil {
		return nil
	}
	return &statusError{status: status, err: err}
}

// exitStatus maps err to the status the process ends with. Pinned statuses
// win; pipeline sentinels are classified by kind.
func exitStatus(err error) int {
	var se *statusError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &se):
		return se.status
	case errors.Is(err, services.ErrNoSelection):
		return exitUsage
	case errors.Is(err, schema.ErrSchemaViolation), errors.Is(err, spreadsheet.ErrNotSpreadsheet):
		return exitValidation
	default:
		return 1
	}
}
