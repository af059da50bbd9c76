package serialization

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel errors returned by Load.
var (
	// ErrBadMagic means the file does not start with the AXON magic.
	ErrBadMagic = errors.New("not an .axon file (bad magic)")

	// ErrUnsupportedVersion means the file's format version is newer than
	// this library understands.
	ErrUnsupportedVersion = errors.New("unsupported format version")

	// ErrChecksumMismatch means the v2 integrity check failed; the file
	// is truncated or corrupted.
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

// ValidationError reports a structural problem found while validating a
// file's header against its data region.
type ValidationError struct {
	Tensor string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Tensor == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed for tensor %q: %s", e.Tensor, e.Reason)
}
