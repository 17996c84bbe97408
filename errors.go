package phmap

import (
	"fmt"

	pherrors "github.com/tamirms/phmap/errors"
)

// DuplicateKeyError reports two equal keys in the input key set, carrying
// the offending key. It unwraps to errors.ErrDuplicateKey.
type DuplicateKeyError[K any] struct {
	Key K
}

func (e *DuplicateKeyError[K]) Error() string {
	return fmt.Sprintf("%v: %v", pherrors.ErrDuplicateKey, e.Key)
}

func (e *DuplicateKeyError[K]) Unwrap() error { return pherrors.ErrDuplicateKey }

// ConstructionError reports that the displacement solver exhausted all
// global retries. It unwraps to errors.ErrConstructionFailed. Callers can
// loosen the load factors or retry bounds and rebuild, or switch to the
// ordered variants.
type ConstructionError struct {
	Retries       int // global attempts consumed
	LargestBucket int // largest bucket size in the final attempt
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("%v after %d retries (largest bucket: %d keys)",
		pherrors.ErrConstructionFailed, e.Retries, e.LargestBucket)
}

func (e *ConstructionError) Unwrap() error { return pherrors.ErrConstructionFailed }
