package errs

import "fmt"

var (
	ErrNotFound      = fmt.Errorf("not found")
	ErrAlreadyExists = fmt.Errorf("already exists")

	// ErrEndOfStream is returned by a receiver once every sender is closed
	// and the buffer is drained.
	ErrEndOfStream = fmt.Errorf("end of stream")

	// ErrDisconnected is returned when submitting after the consumer is gone.
	ErrDisconnected = fmt.Errorf("consumer disconnected")

	// ErrAlreadySubmitted is returned when the same task is submitted twice.
	ErrAlreadySubmitted = fmt.Errorf("already submitted")

	ErrAlreadyStarted = fmt.Errorf("already started")
	ErrClosed         = fmt.Errorf("already closed")
)

func NewErrNotFound(kind string) error {
	return fmt.Errorf("%s %w", kind, ErrNotFound)
}
