package fb

import "errors"

// Sentinel errors for the device interface. Every error returned by a
// bridge operation wraps exactly one of these, so callers can classify
// failures with errors.Is without parsing messages.
var (
	// ErrInvalidArgument reports a nil or out-of-range input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotConnected reports that no session exists for the display, or
	// that the session is not actively streaming.
	ErrNotConnected = errors.New("session not connected")

	// ErrUnsupported reports an operation the display's configured
	// capabilities do not include.
	ErrUnsupported = errors.New("operation not supported")

	// ErrTimeout reports that a bounded wait elapsed before the session
	// became ready.
	ErrTimeout = errors.New("timed out waiting for session")

	// ErrOutOfRange reports a colormap range extending past the palette.
	ErrOutOfRange = errors.New("colormap range out of bounds")

	// ErrBusy reports a display whose session slot is already occupied
	// by a live session.
	ErrBusy = errors.New("display busy")
)
