package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSnapshotNotFound reports a rollback target with no stored snapshot,
// which includes version ids that were never committed.
var ErrSnapshotNotFound = errors.New("catalog snapshot not found")

// ValidationError carries every problem found in a proposal. A proposal that
// fails validation is never partially applied.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("proposal invalid: %s", strings.Join(e.Errors, "; "))
}
