// Package upstreamtest provides a fake OpenAI-style upstream for tests.
package upstreamtest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// Server is a fake upstream backed by httptest. Responses are queued per
// path; once a path's queue is drained its default response is used.
type Server struct {
	server *httptest.Server

	mu        sync.Mutex
	queues    map[string][]Response
	defaults  map[string]Response
	requests  []Request
	connected chan struct{}

	active int
	peak   int
}

// Response configures one upstream reply.
type Response struct {
	StatusCode int
	Body       any
	Delay      time.Duration
	Headers    map[string]string

	// StreamChunks, when set, are written as SSE data frames.
	StreamChunks []string

	// FailAfter aborts the connection after this many chunks. Zero means
	// the stream completes normally.
	FailAfter int

	// Hang blocks before the first chunk until the client goes away.
	Hang bool

	// OmitDone skips the final [DONE] frame.
	OmitDone bool
}

// Request is a recorded inbound request.
type Request struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

// JSON decodes the recorded body into a generic map.
func (r Request) JSON() map[string]any {
	var m map[string]any
	_ = json.Unmarshal(r.Body, &m)
	return m
}

// NewServer starts a fake upstream.
func NewServer() *Server {
	s := &Server{
		queues:    make(map[string][]Response),
		defaults:  make(map[string]Response),
		connected: make(chan struct{}, 64),
	}
	s.server = httptest.NewServer(http.HandlerFunc(s.handler))
	return s
}

// URL returns the server base URL.
func (s *Server) URL() string {
	return s.server.URL
}

// Close shuts the server down.
func (s *Server) Close() {
	s.server.CloseClientConnections()
	s.server.Close()
}

// SetResponse sets the default response for path.
func (s *Server) SetResponse(path string, resp Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaults[path] = resp
}

// Enqueue appends one-shot responses for path, served in order before the
// default.
func (s *Server) Enqueue(path string, resps ...Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queues[path] = append(s.queues[path], resps...)
}

// Requests returns a copy of the recorded requests.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestCount returns the number of requests received.
func (s *Server) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Connected is signalled each time a request reaches the handler.
func (s *Server) Connected() <-chan struct{} {
	return s.connected
}

func (s *Server) next(path string) (Response, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q := s.queues[path]; len(q) > 0 {
		s.queues[path] = q[1:]
		return q[0], true
	}
	resp, ok := s.defaults[path]
	return resp, ok
}

// PeakConcurrency is the largest number of requests the handler served at
// the same time.
func (s *Server) PeakConcurrency() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peak
}

func (s *Server) handler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.active++
	s.peak = max(s.peak, s.active)
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.active--
		s.mu.Unlock()
	}()

	body, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Header: r.Header.Clone(),
		Body:   body,
	})
	s.mu.Unlock()

	select {
	case s.connected <- struct{}{}:
	default:
	}

	resp, ok := s.next(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-r.Context().Done():
			return
		}
	}

	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}

	if len(resp.StreamChunks) > 0 || resp.Hang {
		s.stream(w, r, resp)
		return
	}

	if resp.StatusCode == 0 {
		resp.StatusCode = http.StatusOK
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(resp.StatusCode)

	switch v := resp.Body.(type) {
	case nil:
	case string:
		_, _ = w.Write([]byte(v))
	case []byte:
		_, _ = w.Write(v)
	default:
		_ = json.NewEncoder(w).Encode(v)
	}
}

func (s *Server) stream(w http.ResponseWriter, r *http.Request, resp Response) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	if resp.Hang {
		<-r.Context().Done()
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for i, chunk := range resp.StreamChunks {
		if resp.FailAfter > 0 && i == resp.FailAfter {
			panic(http.ErrAbortHandler)
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", chunk); err != nil {
			return
		}
		flusher.Flush()

		select {
		case <-r.Context().Done():
			return
		case <-time.After(5 * time.Millisecond):
		}
	}

	if resp.FailAfter > 0 && resp.FailAfter >= len(resp.StreamChunks) {
		panic(http.ErrAbortHandler)
	}
	if !resp.OmitDone {
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}
}
