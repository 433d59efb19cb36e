package openaicompat

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rhuss/runnerchat/pkg/api"
	"github.com/rhuss/runnerchat/pkg/debug"
	"github.com/rhuss/runnerchat/pkg/observability"
)

// doneSentinel is the payload OpenAI-style servers send after the last chunk.
const doneSentinel = "[DONE]"

// maxEventSize bounds a single SSE line.
const maxEventSize = 1 << 20

// ErrStreamClosed is the cause recorded when the caller closes a stream
// before it reached a terminal chunk.
var ErrStreamClosed = errors.New("stream closed by caller")

// StreamState is the state of a StreamConsumer.
type StreamState int

const (
	// StreamOpen accepts chunks.
	StreamOpen StreamState = iota
	// StreamClosed is terminal: a finish_reason chunk or [DONE] was seen.
	StreamClosed
)

// String returns the state name.
func (s StreamState) String() string {
	switch s {
	case StreamOpen:
		return "open"
	case StreamClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// StreamConsumer folds streamed chunks into an accumulated answer.
//
// There is no usage accessor: servers do not report token
// counts mid-stream and none are estimated.
type StreamConsumer struct {
	state        StreamState
	answer       strings.Builder
	finishReason string
}

// NewStreamConsumer returns a consumer in the StreamOpen state.
func NewStreamConsumer() *StreamConsumer {
	return &StreamConsumer{state: StreamOpen}
}

// Consume folds one chunk and returns the text fragment it carried, or ""
// when it carried none. A chunk whose finish_reason is set moves the
// consumer to StreamClosed after its own content is appended. Chunks
// arriving after close are ignored.
func (c *StreamConsumer) Consume(chunk *ChatCompletionChunk) string {
	if c.state == StreamClosed || chunk == nil || len(chunk.Choices) == 0 {
		return ""
	}

	choice := chunk.Choices[0]

	var fragment string
	if choice.Delta.Content != nil && *choice.Delta.Content != "" {
		fragment = *choice.Delta.Content
		c.answer.WriteString(fragment)
	}

	if choice.FinishReason != nil && *choice.FinishReason != "" {
		c.finishReason = *choice.FinishReason
		c.state = StreamClosed
	}

	return fragment
}

// MarkDone closes the consumer on the end-of-stream sentinel.
func (c *StreamConsumer) MarkDone() {
	c.state = StreamClosed
}

// Interrupt reports that the transport ended while the consumer was still
// open. It returns a stream_interrupted APIError carrying the partial
// answer, or nil if the consumer is already closed.
func (c *StreamConsumer) Interrupt(cause error) error {
	if c.state == StreamClosed {
		return nil
	}
	return api.NewStreamInterruptedError(c.answer.String(), cause)
}

// State returns the current state.
func (c *StreamConsumer) State() StreamState { return c.state }

// Answer returns the concatenation of all fragments emitted so far.
func (c *StreamConsumer) Answer() string { return c.answer.String() }

// FinishReason returns the finish_reason of the terminal chunk, if any.
func (c *StreamConsumer) FinishReason() string { return c.finishReason }

// Stream pulls Chat Completions SSE chunks from a response body. It is
// meant for a single consumer goroutine.
//
// SSE format expected:
//
//	data: {"id":"...","choices":[...]}\n
//	\n
//	data: [DONE]\n
//	\n
//
// The [DONE] line is optional; a finish_reason chunk ends the stream too.
// Malformed chunks are logged and skipped.
type Stream struct {
	ctx      context.Context
	body     io.ReadCloser
	scanner  *bufio.Scanner
	consumer *StreamConsumer

	model     string
	start     time.Time
	fragments int
	err       error
	closeOnce sync.Once
}

// NewStream wraps body. The stream owns body and releases it on Close.
func NewStream(ctx context.Context, body io.ReadCloser, model string) *Stream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)

	observability.StreamsActive.Inc()

	return &Stream{
		ctx:      ctx,
		body:     body,
		scanner:  scanner,
		consumer: NewStreamConsumer(),
		model:    model,
		start:    time.Now(),
	}
}

// Recv blocks until the next non-empty text fragment arrives and returns
// it. It returns io.EOF once the stream is closed, and a stream_interrupted
// *api.APIError when the transport ends (or the context is cancelled)
// before a terminal chunk. Errors are sticky.
func (s *Stream) Recv() (string, error) {
	if s.err != nil {
		return "", s.err
	}

	for {
		if s.consumer.State() == StreamClosed {
			s.err = io.EOF
			return "", io.EOF
		}

		if err := s.ctx.Err(); err != nil {
			s.err = s.consumer.Interrupt(err)
			return "", s.err
		}

		if !s.scanner.Scan() {
			cause := s.scanner.Err()
			if ctxErr := s.ctx.Err(); ctxErr != nil {
				cause = ctxErr
			}
			if cause == nil {
				cause = io.ErrUnexpectedEOF
			}
			s.err = s.consumer.Interrupt(cause)
			return "", s.err
		}

		payload, ok := dataPayload(s.scanner.Text())
		if !ok {
			continue
		}
		debug.Trace("stream", "sse event", "data", payload)

		if payload == doneSentinel {
			s.consumer.MarkDone()
			continue
		}

		var chunk ChatCompletionChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			slog.Warn("skipping malformed SSE chunk",
				"error", err.Error(),
				"data", Truncate(payload, 200),
			)
			continue
		}

		if fragment := s.consumer.Consume(&chunk); fragment != "" {
			s.observeFragment()
			return fragment, nil
		}
	}
}

// Fragments returns an iterator over the remaining fragments. Iteration
// stops silently at io.EOF; any other error is yielded once as the last
// element.
func (s *Stream) Fragments() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for {
			fragment, err := s.Recv()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield("", err)
				return
			}
			if !yield(fragment, nil) {
				return
			}
		}
	}
}

// Answer returns the concatenation of all fragments received so far.
func (s *Stream) Answer() string { return s.consumer.Answer() }

// FinishReason returns the finish_reason of the terminal chunk, if any.
func (s *Stream) FinishReason() string { return s.consumer.FinishReason() }

// State returns the consumer state.
func (s *Stream) State() StreamState { return s.consumer.State() }

// Close releases the underlying connection. It is safe to call more than
// once and before the stream is exhausted; later Recv calls then fail with
// a stream_interrupted error unless the stream had already closed.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.body.Close()

		var outcome error
		if s.consumer.State() != StreamClosed {
			if s.err == nil {
				s.err = s.consumer.Interrupt(ErrStreamClosed)
			}
			outcome = s.err
		}

		observability.StreamsActive.Dec()
		observability.ObserveRequest(observability.ModeStream, s.model, outcome, s.start)
	})
	return err
}

func (s *Stream) observeFragment() {
	if s.fragments == 0 {
		observability.TimeToFirstFragment.WithLabelValues(s.model).Observe(time.Since(s.start).Seconds())
	}
	s.fragments++
	observability.StreamFragmentsTotal.WithLabelValues(s.model).Inc()
}

// dataPayload returns the payload of an SSE "data:" line. Other lines
// (blank separators, comments starting with ":", event/id fields) are
// reported as not ok.
func dataPayload(line string) (string, bool) {
	payload, ok := strings.CutPrefix(line, "data:")
	if !ok {
		return "", false
	}
	return strings.TrimPrefix(payload, " "), true
}
