package models

import (
	"errors"
	"fmt"
)

// ErrNotReady is returned when a frame is requested before the stream has
// valid dimensions. Callers skip the tick.
var ErrNotReady = errors.New("frame source not ready")

// ErrArchiveDisabled is returned by history queries when no archive is configured.
var ErrArchiveDisabled = errors.New("signal archive disabled")

// ErrInvalidRange and ErrRangeTooWide reject history windows. Both are client errors.
var (
	ErrInvalidRange = errors.New("from must be before to")
	ErrRangeTooWide = errors.New("history range too wide")
)

// CameraUnavailableError means the stream could not be acquired.
type CameraUnavailableError struct {
	Source string
	Err    error
}

func (e *CameraUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("camera %s unavailable: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("camera %s unavailable", e.Source)
}

func (e *CameraUnavailableError) Unwrap() error { return e.Err }

// IsCameraUnavailable reports whether err carries a CameraUnavailableError.
func IsCameraUnavailable(err error) bool {
	var ce *CameraUnavailableError
	return errors.As(err, &ce)
}
