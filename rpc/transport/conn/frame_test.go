package conn

import (
	"errors"
	"testing"
)

func TestFrameProcessorLeavesPartialFrame(t *testing.T) {
	col := newCollector()
	f := newFrameProcessor(Config{MessageHandler: col.lengthPrefixed()})

	// two complete frames and the first byte of a third one
	r := Range{b: []byte{2, 'a', 3, 'b', 'c', 4}}
	if err := f.process(nil, &r); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	if len(col.messages) != 2 {
		t.Fatalf("Expected 2 frames, got %d", len(col.messages))
	}
	if r.Len() != 1 || r.Bytes()[0] != 4 {
		t.Errorf("Expected the partial frame to be left over, got %v", r.Bytes())
	}
}

func TestFrameProcessorPrefixOnce(t *testing.T) {
	col := newCollector()
	f := newFrameProcessor(Config{
		PrefixLength:   3,
		PrefixHandler:  col.prefixHandler(),
		MessageHandler: col.consumeAll(),
	})

	r := Range{b: []byte{1, 2}}
	if err := f.process(nil, &r); err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if len(col.prefixes) != 0 || r.Len() != 2 {
		t.Fatalf("Incomplete prefix was handled")
	}

	r = Range{b: []byte{1, 2, 3, 4}}
	if err := f.process(nil, &r); err != nil {
		t.Fatalf("process failed: %v", err)
	}
	r = Range{b: []byte{5, 6, 7}}
	if err := f.process(nil, &r); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	if len(col.prefixes) != 1 {
		t.Fatalf("Expected 1 prefix, got %d", len(col.prefixes))
	}
	if got := col.joined(); string(got) != string([]byte{4, 5, 6, 7}) {
		t.Errorf("Expected message bytes [4 5 6 7], got %v", got)
	}
}

func TestFrameProcessorEmptyRange(t *testing.T) {
	f := newFrameProcessor(Config{MessageHandler: MessageHandlerFunc(func(*Connection, *Range) (bool, error) {
		t.Errorf("Message handler called with an empty range")
		return false, nil
	})})

	r := Range{}
	if err := f.process(nil, &r); err != nil {
		t.Fatalf("process failed: %v", err)
	}
}

func TestFrameProcessorNoProgress(t *testing.T) {
	f := newFrameProcessor(Config{MessageHandler: MessageHandlerFunc(func(*Connection, *Range) (bool, error) {
		return true, nil
	})})

	r := Range{b: []byte{1}}
	if err := f.process(nil, &r); !errors.Is(err, ErrNoProgress) {
		t.Errorf("Expected ErrNoProgress, got %v", err)
	}
}

func TestFrameProcessorPanic(t *testing.T) {
	f := newFrameProcessor(Config{
		PrefixLength:   1,
		PrefixHandler:  PrefixHandlerFunc(func(*Connection, []byte) error { panic("prefix") }),
		MessageHandler: newCollector().consumeAll(),
	})

	r := Range{b: []byte{1}}
	err := f.process(nil, &r)

	var pe *HandlerPanicError
	if !errors.As(err, &pe) || pe.Handler != "prefix" || pe.Value != "prefix" {
		t.Errorf("Expected a prefix HandlerPanicError, got %v", err)
	}
}
