package providers

import (
	"bufio"
	"io"
	"strings"
)

// SSEEvent is one decoded server-sent event
type SSEEvent struct {
	// Type is the "event:" field, empty for default message events
	Type string
	// Data is the event payload; multiple data lines are joined with newlines
	Data string
}

// SSEScanner incrementally decodes a text/event-stream body. It handles
// the framing this core needs: "data:" and "event:" fields, events
// separated by blank lines, comments and unknown fields ignored.
//
// Usage follows the bufio.Scanner pattern:
//
//	sc := NewSSEScanner(resp.Body)
//	for sc.Next() {
//		ev := sc.Event()
//		...
//	}
//	if err := sc.Err(); err != nil { ... }
type SSEScanner struct {
	reader  *bufio.Reader
	current SSEEvent
	err     error
}

// NewSSEScanner wraps a reader, typically a streaming HTTP response body.
// The scanner does not own the reader; the caller closes it.
func NewSSEScanner(r io.Reader) *SSEScanner {
	return &SSEScanner{reader: bufio.NewReaderSize(r, 64*1024)}
}

// Next advances to the next event. It returns false at end of stream or
// on a read error; consult Err to distinguish the two.
func (s *SSEScanner) Next() bool {
	if s.err != nil {
		return false
	}

	s.current = SSEEvent{}
	var data strings.Builder
	haveData := false

	for {
		line, err := s.reader.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")

		switch {
		case strings.HasPrefix(line, "data:"):
			if haveData {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
			haveData = true
		case strings.HasPrefix(line, "event:"):
			s.current.Type = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case line == "" && err == nil:
			// blank line terminates an event
			if haveData {
				s.current.Data = data.String()
				return true
			}
			s.current.Type = ""
		}

		if err != nil {
			s.err = err
			// a stream may end without a trailing blank line; surface the
			// partial event before reporting the end
			if haveData {
				s.current.Data = data.String()
				return true
			}
			return false
		}
	}
}

// Event returns the event produced by the last successful Next call
func (s *SSEScanner) Event() SSEEvent {
	return s.current
}

// Err returns the first read error encountered. A clean end of stream
// reports nil.
func (s *SSEScanner) Err() error {
	if s.err == io.EOF {
		return nil
	}
	return s.err
}
