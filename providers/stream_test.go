package providers

import (
	"errors"
	"io"
	"testing"
)

type countingCloser struct {
	closed int
}

func (c *countingCloser) Close() error {
	c.closed++
	return nil
}

func TestStream_DrainsToEOF(t *testing.T) {
	chunks := []string{"Hello", ", ", "world"}
	i := 0
	closer := &countingCloser{}

	stream := NewStream(func() (string, error) {
		if i == len(chunks) {
			return "", io.EOF
		}
		chunk := chunks[i]
		i++
		return chunk, nil
	}, closer)

	var got []string
	for {
		chunk, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		got = append(got, chunk)
	}

	if len(got) != 3 {
		t.Fatalf("fragments = %d, want 3", len(got))
	}
	for i, want := range chunks {
		if got[i] != want {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want)
		}
	}
	if closer.closed != 1 {
		t.Errorf("closer.closed = %d, want 1: EOF must release the body", closer.closed)
	}
}

func TestStream_NextAfterEOF(t *testing.T) {
	stream := NewStream(func() (string, error) {
		return "", io.EOF
	}, &countingCloser{})

	if _, err := stream.Next(); err != io.EOF {
		t.Fatalf("Next() error = %v, want io.EOF", err)
	}
	if _, err := stream.Next(); err != io.EOF {
		t.Errorf("Next() after end = %v, want io.EOF", err)
	}
}

func TestStream_MidFlightError(t *testing.T) {
	broken := errors.New("connection reset")
	closer := &countingCloser{}
	calls := 0

	stream := NewStream(func() (string, error) {
		calls++
		if calls == 1 {
			return "partial", nil
		}
		return "", broken
	}, closer)

	chunk, err := stream.Next()
	if err != nil || chunk != "partial" {
		t.Fatalf("Next() = %q, %v, want partial, nil", chunk, err)
	}

	_, err = stream.Next()
	if !errors.Is(err, broken) {
		t.Fatalf("Next() error = %v, want %v", err, broken)
	}
	if closer.closed != 1 {
		t.Errorf("closer.closed = %d, want 1: a failed stream must release the body", closer.closed)
	}
}

func TestStream_CloseIsIdempotent(t *testing.T) {
	closer := &countingCloser{}
	stream := NewStream(func() (string, error) {
		return "chunk", nil
	}, closer)

	if err := stream.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if err := stream.Close(); err != nil {
		t.Fatalf("second Close() = %v", err)
	}
	if closer.closed != 1 {
		t.Errorf("closer.closed = %d, want 1", closer.closed)
	}

	// abandoning mid-stream still ends the sequence
	if _, err := stream.Next(); err != io.EOF {
		t.Errorf("Next() after Close = %v, want io.EOF", err)
	}
}

func TestStream_CloseAfterDrain(t *testing.T) {
	closer := &countingCloser{}
	stream := NewStream(func() (string, error) {
		return "", io.EOF
	}, closer)

	stream.Next()
	if err := stream.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if closer.closed != 1 {
		t.Errorf("closer.closed = %d, want 1: the terminal Next already closed", closer.closed)
	}
}

func TestStream_NilCloser(t *testing.T) {
	stream := NewStream(func() (string, error) {
		return "", io.EOF
	}, nil)

	if _, err := stream.Next(); err != io.EOF {
		t.Fatalf("Next() = %v, want io.EOF", err)
	}
	if err := stream.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}
