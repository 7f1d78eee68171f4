package card

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionClosed is returned by every operation on a closed card.
	ErrSessionClosed = errors.New("card session closed")

	// ErrTransmit matches any *TransmitError.
	ErrTransmit = errors.New("transmit failed")
)

// TransmitError carries the error reported by the reader driver.
// It is never retried by this package.
type TransmitError struct {
	Reader string
	Err    error
}

func (e *TransmitError) Error() string {
	return fmt.Sprintf("transmit on %q: %v", e.Reader, e.Err)
}

func (e *TransmitError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrTransmit) true for any TransmitError.
func (e *TransmitError) Is(target error) bool {
	return target == ErrTransmit
}
