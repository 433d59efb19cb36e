// Package mockbackend provides a deterministic Chat Completions server that
// behaves like the local LLM runner. It returns predictable replies based on
// the conversation, so blocking and streamed answers can be compared.
package mockbackend

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/rhuss/runnerchat/pkg/provider/openaicompat"
)

// Options controls how the server answers.
type Options struct {
	// SendDone appends "data: [DONE]" after the finish chunk, as OpenAI
	// does. The runner itself ends the stream after the finish chunk.
	SendDone bool

	// SendRoleChunk sends a role-only chunk before the content chunks.
	SendRoleChunk bool

	// DropAfter, when positive, ends the stream after that many content
	// chunks without a finish chunk, simulating a dropped connection.
	DropAfter int

	// KnownModels restricts the accepted models. Empty accepts any model.
	KnownModels []string
}

// Server is a deterministic Chat Completions backend.
type Server struct {
	opts Options
}

// New creates a Server.
func New(opts Options) *Server {
	return &Server{opts: opts}
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", s.handleChatCompletions)
	mux.HandleFunc("GET /v1/models", s.handleModels)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req openaicompat.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest,
			map[string]any{"error": map[string]any{"message": "invalid request", "type": "invalid_request_error"}})
		return
	}

	if len(s.opts.KnownModels) > 0 && !slices.Contains(s.opts.KnownModels, req.Model) {
		// The runner reports errors as {"error": "<text>"}.
		writeJSON(w, http.StatusNotFound, map[string]string{"error": fmt.Sprintf("model %q not found", req.Model)})
		return
	}

	tokens := ReplyTokens(req.Messages)
	if req.MaxTokens != nil && *req.MaxTokens > 0 && *req.MaxTokens < len(tokens) {
		tokens = tokens[:*req.MaxTokens]
	}

	if req.Stream {
		s.handleStreaming(w, &req, tokens)
		return
	}

	text := strings.Join(tokens, "")
	promptTokens := PromptTokens(req.Messages)
	resp := openaicompat.ChatCompletionResponse{
		ID:     "chatcmpl-mock-text",
		Object: "chat.completion",
		Model:  req.Model,
		Choices: []openaicompat.ChatChoice{
			{
				Index:        0,
				Message:      openaicompat.ChatMessage{Role: "assistant", Content: &text},
				FinishReason: finishReason(&req, tokens),
			},
		},
		Usage: &openaicompat.ChatUsage{
			PromptTokens:     promptTokens,
			CompletionTokens: len(tokens),
			TotalTokens:      promptTokens + len(tokens),
		},
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	ids := s.opts.KnownModels
	if len(ids) == 0 {
		ids = []string{"mock-model"}
	}

	data := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		data = append(data, map[string]any{"id": id, "object": "model", "owned_by": "local"})
	}
	writeJSON(w, http.StatusOK, map[string]any{"object": "list", "data": data})
}

// --- Streaming ---

func (s *Server) handleStreaming(w http.ResponseWriter, req *openaicompat.ChatCompletionRequest, tokens []string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	if s.opts.SendRoleChunk {
		writeSSEChunk(w, req.Model, openaicompat.ChatChunkDelta{Role: "assistant"}, nil)
		flusher.Flush()
	}

	for i, token := range tokens {
		if s.opts.DropAfter > 0 && i >= s.opts.DropAfter {
			slog.Debug("mock backend dropping stream", "after", i)
			return
		}
		content := token
		writeSSEChunk(w, req.Model, openaicompat.ChatChunkDelta{Content: &content}, nil)
		flusher.Flush()
	}

	reason := finishReason(req, tokens)
	writeSSEChunk(w, req.Model, openaicompat.ChatChunkDelta{}, &reason)
	flusher.Flush()

	if s.opts.SendDone {
		fmt.Fprintf(w, "data: [DONE]\n\n")
		flusher.Flush()
	}
}

func writeSSEChunk(w http.ResponseWriter, model string, delta openaicompat.ChatChunkDelta, reason *string) {
	chunk := openaicompat.ChatCompletionChunk{
		ID:     "chatcmpl-mock-stream",
		Object: "chat.completion.chunk",
		Model:  model,
		Choices: []openaicompat.ChatChunkChoice{
			{Index: 0, Delta: delta, FinishReason: reason},
		},
	}

	data, _ := json.Marshal(chunk)
	fmt.Fprintf(w, "data: %s\n\n", data)
}

// --- Replies ---

// ReplyTokens returns the deterministic reply for a conversation, split
// into the chunks the server streams.
func ReplyTokens(messages []openaicompat.ChatMessage) []string {
	lastMsg := strings.ToLower(lastUserMessage(messages))

	switch {
	case strings.Contains(lastMsg, "count from 1 to 5"):
		return []string{"1", ", ", "2", ", ", "3", ", ", "4", ", ", "5"}
	case strings.Contains(lastMsg, "poem"):
		return splitWords("Lines of code at midnight glow, bugs retreat where tests now grow.")
	case hasSystemPrompt(messages):
		return splitWords("Ahoy there, matey! Welcome aboard!")
	default:
		return []string{"Hello", ", ", "nice", " ", "day", "!"}
	}
}

// PromptTokens counts whitespace-separated words across all messages, the
// way the runner estimates prompt usage.
func PromptTokens(messages []openaicompat.ChatMessage) int {
	n := 0
	for _, m := range messages {
		if m.Content != nil {
			n += len(strings.Fields(*m.Content))
		}
	}
	return n
}

func finishReason(req *openaicompat.ChatCompletionRequest, tokens []string) string {
	if len(ReplyTokens(req.Messages)) > len(tokens) {
		return "length"
	}
	return "stop"
}

// splitWords splits s into words, keeping each separating space attached
// to the following word.
func splitWords(s string) []string {
	words := strings.Fields(s)
	for i := 1; i < len(words); i++ {
		words[i] = " " + words[i]
	}
	return words
}

func lastUserMessage(messages []openaicompat.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" && messages[i].Content != nil {
			return *messages[i].Content
		}
	}
	return ""
}

func hasSystemPrompt(messages []openaicompat.ChatMessage) bool {
	for _, msg := range messages {
		if msg.Role == "system" {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
