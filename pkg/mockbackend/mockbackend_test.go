package mockbackend

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rhuss/runnerchat/pkg/provider/openaicompat"
)

func strPtr(s string) *string { return &s }

func postChat(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/v1/chat/completions", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestReplyTokens(t *testing.T) {
	tests := []struct {
		name     string
		messages []openaicompat.ChatMessage
		want     string
	}{
		{
			"default",
			[]openaicompat.ChatMessage{{Role: "user", Content: strPtr("hi")}},
			"Hello, nice day!",
		},
		{
			"count",
			[]openaicompat.ChatMessage{{Role: "user", Content: strPtr("Please count from 1 to 5")}},
			"1, 2, 3, 4, 5",
		},
		{
			"system prompt",
			[]openaicompat.ChatMessage{
				{Role: "system", Content: strPtr("You are a pirate.")},
				{Role: "user", Content: strPtr("hi")},
			},
			"Ahoy there, matey! Welcome aboard!",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := strings.Join(ReplyTokens(tt.messages), ""); got != tt.want {
				t.Errorf("reply = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPromptTokens(t *testing.T) {
	messages := []openaicompat.ChatMessage{
		{Role: "system", Content: strPtr("You are a helpful assistant.")},
		{Role: "user", Content: strPtr("What is Rust?")},
		{Role: "user", Content: nil},
	}
	if got := PromptTokens(messages); got != 8 {
		t.Errorf("PromptTokens() = %d, want 8", got)
	}
}

func TestBlockingResponse(t *testing.T) {
	srv := httptest.NewServer(New(Options{}).Handler())
	defer srv.Close()

	resp := postChat(t, srv, `{"model":"m","messages":[{"role":"user","content":"hi there"}],"n":1,"stream":false}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var chatResp openaicompat.ChatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	if len(chatResp.Choices) != 1 {
		t.Fatalf("expected 1 choice, got %d", len(chatResp.Choices))
	}
	if got := *chatResp.Choices[0].Message.Content; got != "Hello, nice day!" {
		t.Errorf("content = %q", got)
	}
	u := chatResp.Usage
	if u.PromptTokens != 2 || u.CompletionTokens != 6 || u.TotalTokens != 8 {
		t.Errorf("usage = %+v, want 2/6/8", *u)
	}
}

func TestBlockingResponse_MaxTokensTruncates(t *testing.T) {
	srv := httptest.NewServer(New(Options{}).Handler())
	defer srv.Close()

	resp := postChat(t, srv, `{"model":"m","messages":[{"role":"user","content":"hi"}],"max_tokens":2,"stream":false}`)

	var chatResp openaicompat.ChatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if got := *chatResp.Choices[0].Message.Content; got != "Hello, " {
		t.Errorf("content = %q, want %q", got, "Hello, ")
	}
	if chatResp.Choices[0].FinishReason != "length" {
		t.Errorf("finish_reason = %q, want length", chatResp.Choices[0].FinishReason)
	}
}

func TestStreamingResponse(t *testing.T) {
	tests := []struct {
		name       string
		opts       Options
		wantDone   bool
		wantFinish bool
		wantChunks int
	}{
		{"runner style", Options{}, false, true, 7},
		{"openai style", Options{SendDone: true, SendRoleChunk: true}, true, true, 8},
		{"dropped", Options{DropAfter: 2}, false, false, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(New(tt.opts).Handler())
			defer srv.Close()

			resp := postChat(t, srv, `{"model":"m","messages":[{"role":"user","content":"hi"}],"stream":true}`)
			if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
				t.Errorf("Content-Type = %q", ct)
			}

			var chunks int
			var sawDone, sawFinish bool
			scanner := bufio.NewScanner(resp.Body)
			for scanner.Scan() {
				payload, ok := strings.CutPrefix(scanner.Text(), "data: ")
				if !ok {
					continue
				}
				if payload == "[DONE]" {
					sawDone = true
					continue
				}
				var chunk openaicompat.ChatCompletionChunk
				if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
					t.Fatalf("malformed chunk %q: %v", payload, err)
				}
				chunks++
				if chunk.Choices[0].FinishReason != nil {
					sawFinish = true
				}
			}

			if chunks != tt.wantChunks {
				t.Errorf("chunks = %d, want %d", chunks, tt.wantChunks)
			}
			if sawDone != tt.wantDone {
				t.Errorf("saw [DONE] = %v, want %v", sawDone, tt.wantDone)
			}
			if sawFinish != tt.wantFinish {
				t.Errorf("saw finish chunk = %v, want %v", sawFinish, tt.wantFinish)
			}
		})
	}
}

func TestUnknownModel(t *testing.T) {
	srv := httptest.NewServer(New(Options{KnownModels: []string{"llama4:scout"}}).Handler())
	defer srv.Close()

	resp := postChat(t, srv, `{"model":"missing","messages":[{"role":"user","content":"hi"}]}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	if !strings.Contains(body["error"], "missing") {
		t.Errorf("error = %q", body["error"])
	}
}

func TestInvalidBody(t *testing.T) {
	srv := httptest.NewServer(New(Options{}).Handler())
	defer srv.Close()

	resp := postChat(t, srv, `{not json`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(New(Options{}).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestModels(t *testing.T) {
	srv := httptest.NewServer(New(Options{KnownModels: []string{"llama4:scout", "mistral:latest"}}).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/models")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	var list struct {
		Object string `json:"object"`
		Data   []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if list.Object != "list" || len(list.Data) != 2 || list.Data[0].ID != "llama4:scout" {
		t.Errorf("models = %+v", list)
	}
}
