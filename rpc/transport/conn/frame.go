package conn

import (
	"fmt"
)

// frameProcessor applies the prefix frame (once) and the message frames to the
// bytes handed over by the dispatch loop. It is only used by that loop.
type frameProcessor struct {
	prefixLength int
	prefix       PrefixHandler
	messages     MessageHandler
}

func newFrameProcessor(cfg Config) *frameProcessor {
	return &frameProcessor{
		prefixLength: cfg.PrefixLength,
		prefix:       cfg.PrefixHandler,
		messages:     cfg.MessageHandler,
	}
}

// process consumes as many frames from the front of r as possible.
// On return r holds the leftover bytes. A non-nil error is a handler fault.
func (f *frameProcessor) process(c *Connection, r *Range) error {
	if f.prefixLength > 0 {
		prefix, ok := r.Peek(f.prefixLength)
		if !ok {
			// wait for the rest of the prefix
			return nil
		}
		if err := f.handlePrefix(c, prefix); err != nil {
			return err
		}
		r.Consume(f.prefixLength)
		f.prefixLength = 0
	}

	for r.Len() > 0 {
		before := r.Len()
		more, err := f.handleMessages(c, r)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
		if r.Len() == before {
			return ErrNoProgress
		}
	}
	return nil
}

// handlePrefix calls the prefix handler and turns a panic into an error
func (f *frameProcessor) handlePrefix(c *Connection, prefix []byte) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &HandlerPanicError{Handler: "prefix", Value: v}
		}
	}()

	if err := f.prefix.HandlePrefix(c, prefix); err != nil {
		return fmt.Errorf("prefix handler: %w", err)
	}
	return nil
}

// handleMessages calls the message handler and turns a panic into an error
func (f *frameProcessor) handleMessages(c *Connection, r *Range) (more bool, err error) {
	defer func() {
		if v := recover(); v != nil {
			more, err = false, &HandlerPanicError{Handler: "message", Value: v}
		}
	}()

	more, err = f.messages.HandleMessages(c, r)
	if err != nil {
		return false, fmt.Errorf("message handler: %w", err)
	}
	return more, nil
}
