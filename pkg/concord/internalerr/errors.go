package internalerr

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	ErrContextNotFound    = errors.New("context not found")
	ErrMalformedHierarchy = errors.New("malformed hierarchy")
	ErrEmptyCandidatePool = errors.New("empty candidate pool")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrNoStore            = errors.New("no store attached")
)

// ContextNotFoundError reports a resolution request against a level-5
// context id that is absent from the built index.
type ContextNotFoundError struct {
	ContextID string
}

func (e *ContextNotFoundError) Error() string {
	return fmt.Sprintf("context %q not found in hierarchy index", e.ContextID)
}

func (e *ContextNotFoundError) Is(target error) bool {
	return target == ErrContextNotFound
}

// MalformedHierarchyError reports structural problems in the supplied
// reference rows, such as a level-6/7 row whose parent id does not exist
// among the level-5 rows.
type MalformedHierarchyError struct {
	Level    int
	ID       string
	ParentID string
}

func (e *MalformedHierarchyError) Error() string {
	return fmt.Sprintf("level-%d node %q references unknown parent %q", e.Level, e.ID, e.ParentID)
}

func (e *MalformedHierarchyError) Is(target error) bool {
	return target == ErrMalformedHierarchy
}

// EmptyCandidatePoolError reports a bridge build requested with a non-empty
// source set but no candidates to match against.
type EmptyCandidatePoolError struct {
	SourceCount int
}

func (e *EmptyCandidatePoolError) Error() string {
	return fmt.Sprintf("empty candidate pool for %d source entities", e.SourceCount)
}

func (e *EmptyCandidatePoolError) Is(target error) bool {
	return target == ErrEmptyCandidatePool
}
