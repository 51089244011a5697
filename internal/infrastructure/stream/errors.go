package stream

import (
	"errors"
	"fmt"
)

var (
	ErrAcquisitionFailed = errors.New("transport acquisition failed")
	ErrManagerNotRunning = errors.New("stream manager is not running")
	ErrNilHandler        = errors.New("handler is nil")
	ErrNotFound          = errors.New("connection not found")
)

// AcquisitionError is returned by Connect when no transport could be built for an address.
type AcquisitionError struct {
	Address string
	Err     error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquire transport for %q: %v", e.Address, e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// Is makes every AcquisitionError match ErrAcquisitionFailed.
func (e *AcquisitionError) Is(target error) bool {
	return target == ErrAcquisitionFailed
}
