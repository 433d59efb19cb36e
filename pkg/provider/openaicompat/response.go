package openaicompat

import (
	"log/slog"

	"github.com/rhuss/runnerchat/pkg/api"
)

// Completion is the consumed result of a blocking chat completion.
type Completion struct {
	ID           string
	Model        string
	Answer       string
	FinishReason string

	// Usage is nil when the server omitted it.
	Usage *api.Usage
}

// ChoiceSelector picks the choice to surface from a response. It reports
// false when no choice is usable.
type ChoiceSelector func(choices []ChatChoice) (ChatChoice, bool)

// FirstChoice surfaces choices[0] and ignores the rest. Requests are always
// sent with n=1, so a server returning more than one choice is answering a
// question nobody asked.
func FirstChoice(choices []ChatChoice) (ChatChoice, bool) {
	if len(choices) == 0 {
		return ChatChoice{}, false
	}
	return choices[0], true
}

// ConsumeResponse extracts the answer and usage from a blocking response
// using the FirstChoice policy.
func ConsumeResponse(resp *ChatCompletionResponse) (*Completion, error) {
	return ConsumeResponseWith(resp, FirstChoice)
}

// ConsumeResponseWith extracts the answer and usage from a blocking response,
// surfacing the choice picked by sel. It returns a malformed_response
// APIError when no choice is available or the choice has no content.
func ConsumeResponseWith(resp *ChatCompletionResponse, sel ChoiceSelector) (*Completion, error) {
	if resp == nil {
		return nil, api.NewMalformedResponseError("empty response")
	}

	choice, ok := sel(resp.Choices)
	if !ok {
		return nil, api.NewMalformedResponseError("response contains no choices")
	}
	if choice.Message.Content == nil {
		return nil, api.NewMalformedResponseError("choice message has no content")
	}

	c := &Completion{
		ID:           resp.ID,
		Model:        resp.Model,
		Answer:       *choice.Message.Content,
		FinishReason: choice.FinishReason,
	}

	if resp.Usage != nil {
		u := api.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
		if !u.Consistent() {
			slog.Warn("backend usage totals do not add up",
				"prompt_tokens", u.PromptTokens,
				"completion_tokens", u.CompletionTokens,
				"total_tokens", u.TotalTokens,
			)
		}
		c.Usage = &u
	}

	return c, nil
}
