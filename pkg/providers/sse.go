package providers

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
)

const maxSSELine = 1 << 20

// ErrStreamTruncated is the cause of the ParseError returned when a body
// ends without the closing "data: [DONE]" frame.
var ErrStreamTruncated = errors.New("stream ended without [DONE]")

// SSEReader reads OpenAI-style Server-Sent Events. Each data line carries
// one JSON event; "data: [DONE]" ends the stream.
type SSEReader struct {
	deployment string
	body       io.ReadCloser
	scanner    *bufio.Scanner

	closeOnce sync.Once
	closeErr  error
	done      bool

	// first line that was not SSE, kept for the truncation error
	stray string
}

// NewSSEReader creates a reader over body.
func NewSSEReader(deployment string, body io.ReadCloser) *SSEReader {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELine)
	return &SSEReader{
		deployment: deployment,
		body:       body,
		scanner:    scanner,
	}
}

// Recv returns the next event's JSON payload. It returns io.EOF at
// "[DONE]" and a *StreamError for an upstream error event. A payload that
// is not JSON, or a body that ends before "[DONE]", is a *ParseError. A
// failed read is a *ConnectionError.
func (s *SSEReader) Recv() ([]byte, error) {
	if s.done {
		return nil, io.EOF
	}

	for s.scanner.Scan() {
		line := s.scanner.Bytes()
		if len(line) == 0 || line[0] == ':' {
			continue
		}

		data, ok := bytes.CutPrefix(line, []byte("data:"))
		if !ok {
			// event:, id:, retry: lines carry nothing we forward; the first
			// other line is kept to explain a body that was not SSE
			if s.stray == "" && !sseField(line) {
				s.stray = truncate(line, 512)
			}
			continue
		}
		data = bytes.TrimSpace(data)

		if bytes.Equal(data, []byte("[DONE]")) {
			s.done = true
			return nil, io.EOF
		}

		if !json.Valid(data) {
			return nil, &ParseError{
				Deployment:  s.deployment,
				RawResponse: truncate(data, 512),
				Cause:       errors.New("stream event is not valid JSON"),
			}
		}

		if msg, isErr := errorEvent(data); isErr {
			return nil, &StreamError{
				Deployment: s.deployment,
				Message:    msg,
				Event:      bytes.Clone(data),
			}
		}

		return bytes.Clone(data), nil
	}

	if err := s.scanner.Err(); err != nil {
		return nil, &ConnectionError{Deployment: s.deployment, Cause: fmt.Errorf("reading stream: %w", err)}
	}
	s.done = true
	return nil, &ParseError{
		Deployment:  s.deployment,
		RawResponse: s.stray,
		Cause:       ErrStreamTruncated,
	}
}

func sseField(line []byte) bool {
	for _, f := range []string{"event:", "id:", "retry:"} {
		if bytes.HasPrefix(line, []byte(f)) {
			return true
		}
	}
	return false
}


// errorEvent reports whether data is an {"error": ...} event and extracts
// its message.
func errorEvent(data []byte) (string, bool) {
	if !bytes.Contains(data, []byte(`"error"`)) {
		return "", false
	}
	var ev struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(data, &ev); err != nil || len(ev.Error) == 0 || string(ev.Error) == "null" {
		return "", false
	}

	var detail struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(ev.Error, &detail); err == nil && detail.Message != "" {
		return detail.Message, true
	}
	var s string
	if err := json.Unmarshal(ev.Error, &s); err == nil && s != "" {
		return s, true
	}
	return string(ev.Error), true
}

// Close closes the underlying body.
func (s *SSEReader) Close() error {
	s.closeOnce.Do(func() {
		s.done = true
		s.closeErr = s.body.Close()
	})
	return s.closeErr
}
