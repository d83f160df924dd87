package services

import (
	"errors"
	"fmt"
)

// ErrInvalidInput marks validation failures on the write path. Handlers map
// it to a 400 response.
var ErrInvalidInput = errors.New("invalid input")

// PartialWriteError reports that a multi-document creation sequence failed
// after an earlier step committed. The store offers no multi-document
// transactions, so nothing is rolled back: the committed document exists but
// is not reachable from one or more back-reference arrays until the
// reconciliation sweep re-issues the appends.
type PartialWriteError struct {
	Op    string // operation that was underway, e.g. "createTask"
	DocID string // id of the document that did commit
	Err   error  // the failing back-reference update
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("%s: document %s committed but back-reference update failed: %v", e.Op, e.DocID, e.Err)
}

func (e *PartialWriteError) Unwrap() error { return e.Err }
