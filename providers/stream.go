package providers

import "io"

// Stream is a pull-based sequence of content fragments produced by a
// streaming query. The consumer drives pacing: each Next call reads only
// enough of the underlying body to yield one fragment. Next returns
// io.EOF once the upstream signals completion, and the terminal fragment
// error closes the underlying body, as does Close. A consumer that stops
// pulling early must call Close to release the connection.
type Stream interface {
	// Next returns the next content fragment, or io.EOF at the end of the
	// sequence. Any other error means the stream failed mid-flight; the
	// fragments already delivered remain valid.
	Next() (string, error)

	// Close releases the underlying body. It is idempotent and safe to
	// call after Next has returned an error.
	Close() error
}

// chunkStream adapts a fragment-producing function plus the resource
// backing it into a Stream. Any terminal condition closes the resource so
// an abandoned or drained stream cannot leak its connection.
type chunkStream struct {
	next   func() (string, error)
	closer io.Closer
	done   bool
}

// NewStream builds a Stream from a pull function and the closer that owns
// the underlying body. next must return io.EOF at the end of the sequence.
func NewStream(next func() (string, error), closer io.Closer) Stream {
	return &chunkStream{next: next, closer: closer}
}

func (s *chunkStream) Next() (string, error) {
	if s.done {
		return "", io.EOF
	}
	chunk, err := s.next()
	if err != nil {
		s.done = true
		if s.closer != nil {
			s.closer.Close()
		}
		return "", err
	}
	return chunk, nil
}

func (s *chunkStream) Close() error {
	if s.done {
		return nil
	}
	s.done = true
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
