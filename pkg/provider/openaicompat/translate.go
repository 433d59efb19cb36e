package openaicompat

import (
	"github.com/rhuss/runnerchat/pkg/chat"
)

// TranslateToChat converts a chat.Request into a ChatCompletionRequest
// suitable for the /chat/completions endpoint. stream overrides the
// request's own streaming flag.
//
// N is always 1: only the first choice is ever surfaced (see FirstChoice).
// Streamed usage reporting is never requested.
func TranslateToChat(req chat.Request, stream bool) ChatCompletionRequest {
	cr := ChatCompletionRequest{
		Model:  req.Model(),
		Stop:   req.Stop(),
		N:      1,
		Stream: stream,
	}

	if t, ok := req.Temperature(); ok {
		cr.Temperature = &t
	}
	if p, ok := req.TopP(); ok {
		cr.TopP = &p
	}
	if n, ok := req.MaxTokens(); ok {
		cr.MaxTokens = &n
	}

	for _, m := range req.Messages() {
		content := m.Content
		cr.Messages = append(cr.Messages, ChatMessage{
			Role:    string(m.Role),
			Content: &content,
		})
	}

	return cr
}
