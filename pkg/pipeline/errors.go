package pipeline

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Summary when no artifact is cached for the
// requested (topic, stage) key.
var ErrNotFound = errors.New("no cached artifact")

// FallbackInvalidError signals that a stage's synthesized fallback
// payload failed its own schema. That is a defect in the stage
// definition, not a runtime condition, so it aborts the run.
type FallbackInvalidError struct {
	Stage string
	Err   error
}

func (e *FallbackInvalidError) Error() string {
	return fmt.Sprintf("stage %s: fallback payload violates its schema (stage definition defect): %v", e.Stage, e.Err)
}

func (e *FallbackInvalidError) Unwrap() error { return e.Err }

// CacheWriteError surfaces a failed artifact write. A silent write
// failure would break the guarantee that retried runs do not re-spend
// generation budget, so it is fatal to the run.
type CacheWriteError struct {
	Stage string
	Err   error
}

func (e *CacheWriteError) Error() string {
	return fmt.Sprintf("stage %s: cache write failed: %v", e.Stage, e.Err)
}

func (e *CacheWriteError) Unwrap() error { return e.Err }
