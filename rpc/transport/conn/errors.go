package conn

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState is returned when the connection is configured after
	// activation, activated twice, or activated without the required handlers.
	ErrInvalidState = errors.New("invalid connection state")

	// ErrNoProgress is the fault reported when a MessageHandler asks to be called
	// again without having consumed any bytes.
	ErrNoProgress = errors.New("message handler returned continue without consuming data")

	// ErrPipeOverflow is the ingest failure reported when the pipe would grow
	// beyond Config.MaxPipeBytes.
	ErrPipeOverflow = errors.New("pipe buffer limit exceeded")

	// errPipeClosed signals the ingest loop that the dispatch loop is gone.
	errPipeClosed = errors.New("pipe closed by reader")
)

// HandlerPanicError wraps a value recovered from a panicking handler.
type HandlerPanicError struct {
	Handler string
	Value   any
}

func (e *HandlerPanicError) Error() string {
	return fmt.Sprintf("%s handler panicked: %v", e.Handler, e.Value)
}
