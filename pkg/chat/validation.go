package chat

import (
	"fmt"

	"github.com/rhuss/runnerchat/pkg/api"
)

// Validate checks the request for validity. It returns an *api.APIError
// describing the first failure, or nil. The zero Request is invalid.
func (r Request) Validate() error {
	if r.model == "" {
		return api.NewInvalidRequestError("model", "model is required")
	}

	if len(r.messages) == 0 {
		return api.NewInvalidRequestError("messages", "messages must contain at least one message")
	}

	for i, m := range r.messages {
		if !m.Role.Valid() {
			return api.NewInvalidRequestError(fmt.Sprintf("messages[%d].role", i),
				fmt.Sprintf("unknown role %q", m.Role))
		}
		if m.Role == api.RoleSystem && i != 0 {
			return api.NewInvalidRequestError(fmt.Sprintf("messages[%d].role", i),
				"a system message is only allowed as the first message")
		}
	}

	if t := r.opts.Temperature; t != nil && (*t < 0.0 || *t > 2.0) {
		return api.NewInvalidRequestError("temperature", "temperature must be between 0.0 and 2.0")
	}

	if n := r.opts.MaxTokens; n != nil && *n <= 0 {
		return api.NewInvalidRequestError("max_tokens", "max_tokens must be positive")
	}

	if p := r.opts.TopP; p != nil && (*p < 0.0 || *p > 1.0) {
		return api.NewInvalidRequestError("top_p", "top_p must be between 0.0 and 1.0")
	}

	for i, s := range r.opts.Stop {
		if s == "" {
			return api.NewInvalidRequestError(fmt.Sprintf("stop[%d]", i), "stop sequences must not be empty")
		}
	}

	return nil
}
