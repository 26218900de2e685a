package conn

import "fmt"

// Outcome tells why a loop (and therefore a connection) ended.
type Outcome uint8

const (
	// Completed means the stream ended normally (e.g. the peer closed it).
	Completed Outcome = iota
	// Cancelled means the connection was asked to stop (Close, Cancel or a failed Send).
	Cancelled
	// Failed means an I/O error or a handler fault ended the connection.
	Failed
)

// String returns the string representation of an Outcome.
func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the termination reason of a loop. Err is only set for Failed.
type Result struct {
	Outcome Outcome
	Err     error
}

func completed() Result       { return Result{Outcome: Completed} }
func cancelled() Result       { return Result{Outcome: Cancelled} }
func failed(err error) Result { return Result{Outcome: Failed, Err: err} }

// String returns a short human-readable description of the result
func (r Result) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s: %v", r.Outcome, r.Err)
	}
	return r.Outcome.String()
}

// outranks reports whether r is a more informative termination reason than other.
// Failures beat cancellations, cancellations beat normal completion.
func (r Result) outranks(other Result) bool {
	return r.Outcome > other.Outcome
}
