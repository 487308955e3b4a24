package core

import (
	"errors"
)

var (
	// ErrMissingData means the asset has no payload chunk to read.
	ErrMissingData = errors.New("missing data chunk")
	// ErrCorruptHeader means the header is unreadable or a length field is malformed.
	ErrCorruptHeader = errors.New("corrupt header")
	// ErrInvalidMetadata means the duration or frame rate is below tolerance.
	ErrInvalidMetadata = errors.New("invalid animation metadata")
	// ErrUnsupportedVersion means the format version is not recognized.
	ErrUnsupportedVersion = errors.New("unsupported format version")
	// ErrBrokenLinkage means a timeline track's parent index does not resolve
	// to a previously seen channel track.
	ErrBrokenLinkage = errors.New("broken track linkage")
	// ErrTypeResolution means an event type could not be found or instantiated.
	// Recovered per entry, never fails a whole load.
	ErrTypeResolution = errors.New("event type resolution failed")
	// ErrPreconditionViolation means an operation ran before both the
	// animation and the skeleton finished loading.
	ErrPreconditionViolation = errors.New("precondition violation")
	// ErrLoadFailed means the asset's last load attempt did not succeed.
	ErrLoadFailed = errors.New("asset load failed")
)
