package openaicompat

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/rhuss/runnerchat/pkg/api"
)

func textChunk(content string) *ChatCompletionChunk {
	return &ChatCompletionChunk{Choices: []ChatChunkChoice{{Delta: ChatChunkDelta{Content: &content}}}}
}

func finishChunk(content, reason string) *ChatCompletionChunk {
	return &ChatCompletionChunk{Choices: []ChatChunkChoice{{Delta: ChatChunkDelta{Content: &content}, FinishReason: &reason}}}
}

// collectFragments drains a Stream over sseData and returns the emitted
// fragments and the terminal error (io.EOF on a clean close).
func collectFragments(t *testing.T, ctx context.Context, sseData string) ([]string, *Stream, error) {
	t.Helper()
	s := NewStream(ctx, io.NopCloser(strings.NewReader(sseData)), "test-model")
	t.Cleanup(func() { s.Close() })

	var fragments []string
	for {
		fragment, err := s.Recv()
		if err != nil {
			return fragments, s, err
		}
		fragments = append(fragments, fragment)
	}
}

func TestStreamConsumer_HelloSequence(t *testing.T) {
	c := NewStreamConsumer()

	var emitted []string
	for _, chunk := range []*ChatCompletionChunk{textChunk("Hel"), textChunk("lo"), finishChunk("", "stop")} {
		if c.State() != StreamOpen {
			t.Fatalf("state = %s before chunk, want open", c.State())
		}
		if f := c.Consume(chunk); f != "" {
			emitted = append(emitted, f)
		}
	}

	if strings.Join(emitted, "|") != "Hel|lo" {
		t.Errorf("emitted = %q, want [Hel lo]", emitted)
	}
	if c.Answer() != "Hello" {
		t.Errorf("Answer() = %q, want Hello", c.Answer())
	}
	if c.State() != StreamClosed {
		t.Errorf("state = %s, want closed", c.State())
	}
	if c.FinishReason() != "stop" {
		t.Errorf("FinishReason() = %q, want stop", c.FinishReason())
	}
	if err := c.Interrupt(io.ErrUnexpectedEOF); err != nil {
		t.Errorf("Interrupt after close = %v, want nil", err)
	}
}

func TestStreamConsumer_FinishChunkWithContent(t *testing.T) {
	c := NewStreamConsumer()
	c.Consume(textChunk("Hi"))

	if f := c.Consume(finishChunk("!", "length")); f != "!" {
		t.Errorf("fragment = %q, want !", f)
	}
	if c.State() != StreamClosed {
		t.Errorf("state = %s, want closed", c.State())
	}
	if f := c.Consume(textChunk("ignored")); f != "" {
		t.Errorf("fragment after close = %q, want empty", f)
	}
	if c.Answer() != "Hi!" {
		t.Errorf("Answer() = %q, want Hi!", c.Answer())
	}
}

func TestStreamConsumer_EmptyAndChoicelessChunks(t *testing.T) {
	c := NewStreamConsumer()

	for _, chunk := range []*ChatCompletionChunk{
		{},
		{Choices: []ChatChunkChoice{{Delta: ChatChunkDelta{Role: "assistant"}}}},
		textChunk(""),
		nil,
	} {
		if f := c.Consume(chunk); f != "" {
			t.Errorf("fragment = %q, want empty", f)
		}
	}
	if c.State() != StreamOpen {
		t.Errorf("state = %s, want open", c.State())
	}
}

func TestStreamConsumer_Interrupt(t *testing.T) {
	c := NewStreamConsumer()
	c.Consume(textChunk("Hel"))

	err := c.Interrupt(io.ErrUnexpectedEOF)

	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *api.APIError, got %T", err)
	}
	if apiErr.Type != api.ErrorTypeStreamInterrupted {
		t.Errorf("Type = %q, want stream_interrupted", apiErr.Type)
	}
	if apiErr.Partial != "Hel" {
		t.Errorf("Partial = %q, want Hel", apiErr.Partial)
	}
}

func TestStream_TextDeltas(t *testing.T) {
	sseData := `data: {"id":"chatcmpl-1","object":"chat.completion.chunk","model":"m","choices":[{"index":0,"delta":{"role":"assistant"},"finish_reason":null}]}

data: {"id":"chatcmpl-1","object":"chat.completion.chunk","model":"m","choices":[{"index":0,"delta":{"content":"Hel"},"finish_reason":null}]}

data: {"id":"chatcmpl-1","object":"chat.completion.chunk","model":"m","choices":[{"index":0,"delta":{"content":"lo"},"finish_reason":null}]}

data: {"id":"chatcmpl-1","object":"chat.completion.chunk","model":"m","choices":[{"index":0,"delta":{"content":""},"finish_reason":"stop"}]}

data: [DONE]
`
	fragments, s, err := collectFragments(t, context.Background(), sseData)

	if err != io.EOF {
		t.Fatalf("terminal error = %v, want io.EOF", err)
	}
	if strings.Join(fragments, "|") != "Hel|lo" {
		t.Errorf("fragments = %q, want [Hel lo]", fragments)
	}
	if s.Answer() != "Hello" {
		t.Errorf("Answer() = %q, want Hello", s.Answer())
	}
	if s.State() != StreamClosed {
		t.Errorf("state = %s, want closed", s.State())
	}
	if s.FinishReason() != "stop" {
		t.Errorf("FinishReason() = %q, want stop", s.FinishReason())
	}
}

func TestStream_FinishWithoutDoneSentinel(t *testing.T) {
	// The runner ends the stream right after the finish chunk.
	sseData := "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"Hi\"},\"finish_reason\":null}]}\n\n" +
		"data: {\"choices\":[{\"index\":0,\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n"

	fragments, _, err := collectFragments(t, context.Background(), sseData)

	if err != io.EOF {
		t.Fatalf("terminal error = %v, want io.EOF", err)
	}
	if len(fragments) != 1 || fragments[0] != "Hi" {
		t.Errorf("fragments = %q, want [Hi]", fragments)
	}
}

func TestStream_DoneSentinelCloses(t *testing.T) {
	sseData := "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"Hi\"}}]}\n\ndata: [DONE]\n\n"

	_, s, err := collectFragments(t, context.Background(), sseData)

	if err != io.EOF {
		t.Fatalf("terminal error = %v, want io.EOF", err)
	}
	if s.State() != StreamClosed {
		t.Errorf("state = %s, want closed", s.State())
	}
}

func TestStream_StopsReadingAfterClose(t *testing.T) {
	sseData := "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"A\"},\"finish_reason\":\"stop\"}]}\n\n" +
		"data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"B\"}}]}\n\n"

	fragments, s, err := collectFragments(t, context.Background(), sseData)

	if err != io.EOF {
		t.Fatalf("terminal error = %v, want io.EOF", err)
	}
	if s.Answer() != "A" || len(fragments) != 1 {
		t.Errorf("Answer() = %q fragments = %q, want only A", s.Answer(), fragments)
	}
}

func TestStream_Interrupted(t *testing.T) {
	sseData := "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"Hel\"},\"finish_reason\":null}]}\n\n"

	fragments, s, err := collectFragments(t, context.Background(), sseData)

	if len(fragments) != 1 || fragments[0] != "Hel" {
		t.Errorf("fragments = %q, want [Hel]", fragments)
	}

	var apiErr *api.APIError
	if !errors.As(err, &apiErr) || apiErr.Type != api.ErrorTypeStreamInterrupted {
		t.Fatalf("expected stream_interrupted, got %v", err)
	}
	if apiErr.Partial != "Hel" {
		t.Errorf("Partial = %q, want Hel", apiErr.Partial)
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected cause io.ErrUnexpectedEOF, got %v", apiErr.Err)
	}

	// Errors are sticky.
	if _, again := s.Recv(); again != err {
		t.Errorf("second Recv error = %v, want the same error", again)
	}
}

func TestStream_MalformedChunkSkipped(t *testing.T) {
	sseData := `data: {"choices":[{"index":0,"delta":{"content":"Hi"},"finish_reason":null}]}

data: {this is not valid json}

data: {"choices":[{"index":0,"delta":{"content":"!"},"finish_reason":null}]}

data: {"choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}
`
	fragments, _, err := collectFragments(t, context.Background(), sseData)

	if err != io.EOF {
		t.Fatalf("terminal error = %v, want io.EOF", err)
	}
	if strings.Join(fragments, "") != "Hi!" {
		t.Errorf("fragments = %q, want [Hi !]", fragments)
	}
}

func TestStream_IgnoresNonDataLines(t *testing.T) {
	sseData := ": keep-alive comment\n" +
		"event: message\n" +
		"id: 7\n" +
		"data:{\"choices\":[{\"index\":0,\"delta\":{\"content\":\"no space\"}}]}\n\n" +
		"data: {\"choices\":[],\"usage\":{\"prompt_tokens\":1,\"completion_tokens\":2,\"total_tokens\":3}}\n\n" +
		"data: {\"choices\":[{\"index\":0,\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n"

	fragments, _, err := collectFragments(t, context.Background(), sseData)

	if err != io.EOF {
		t.Fatalf("terminal error = %v, want io.EOF", err)
	}
	if len(fragments) != 1 || fragments[0] != "no space" {
		t.Errorf("fragments = %q, want [no space]", fragments)
	}
}

func TestStream_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sseData := "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"A\"}}]}\n\n" +
		"data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"B\"}}]}\n\n"

	s := NewStream(ctx, io.NopCloser(strings.NewReader(sseData)), "test-model")
	defer s.Close()

	if f, err := s.Recv(); err != nil || f != "A" {
		t.Fatalf("first Recv = %q, %v; want A, nil", f, err)
	}

	cancel()

	_, err := s.Recv()
	if !api.IsErrorType(err, api.ErrorTypeStreamInterrupted) {
		t.Fatalf("expected stream_interrupted, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected cause context.Canceled, got %v", err)
	}
}

type trackingBody struct {
	io.Reader
	closed int
}

func (b *trackingBody) Close() error {
	b.closed++
	return nil
}

func TestStream_CloseEarlyReleasesBody(t *testing.T) {
	body := &trackingBody{Reader: strings.NewReader(
		"data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"A\"}}]}\n\n" +
			"data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"B\"}}]}\n\n")}

	s := NewStream(context.Background(), body, "test-model")
	if _, err := s.Recv(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close() = %v", err)
	}
	if body.closed != 1 {
		t.Errorf("body closed %d times, want 1", body.closed)
	}

	_, err := s.Recv()
	if !errors.Is(err, ErrStreamClosed) {
		t.Errorf("Recv after Close = %v, want ErrStreamClosed cause", err)
	}
}

func TestStream_Fragments(t *testing.T) {
	sseData := "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"Hel\"}}]}\n\n" +
		"data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"lo\"}}]}\n\n" +
		"data: {\"choices\":[{\"index\":0,\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n"

	s := NewStream(context.Background(), io.NopCloser(strings.NewReader(sseData)), "test-model")
	defer s.Close()

	var got []string
	for fragment, err := range s.Fragments() {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = append(got, fragment)
	}

	if strings.Join(got, "|") != "Hel|lo" {
		t.Errorf("fragments = %q, want [Hel lo]", got)
	}
}

func TestStream_FragmentsYieldsInterruption(t *testing.T) {
	sseData := "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"Hel\"}}]}\n\n"

	s := NewStream(context.Background(), io.NopCloser(strings.NewReader(sseData)), "test-model")
	defer s.Close()

	var last error
	for _, err := range s.Fragments() {
		last = err
	}
	if !api.IsErrorType(last, api.ErrorTypeStreamInterrupted) {
		t.Errorf("last error = %v, want stream_interrupted", last)
	}
}

func TestStreamState_String(t *testing.T) {
	if StreamOpen.String() != "open" || StreamClosed.String() != "closed" || StreamState(9).String() != "unknown" {
		t.Error("unexpected state names")
	}
}
