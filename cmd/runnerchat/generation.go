package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rhuss/runnerchat/pkg/api"
	"github.com/rhuss/runnerchat/pkg/chat"
	"github.com/rhuss/runnerchat/pkg/config"
)

// generationFlags are the per-call flags shared by complete and stream.
// Unset flags fall back to the generation section of the config.
type generationFlags struct {
	system      string
	temperature float64
	maxTokens   int
	topP        float64
	stop        []string
}

func (g *generationFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&g.system, "system", "s", "", "System prompt")
	cmd.Flags().Float64VarP(&g.temperature, "temperature", "t", 0, "Sampling temperature (0-2)")
	cmd.Flags().IntVar(&g.maxTokens, "max-tokens", 0, "Maximum tokens to generate")
	cmd.Flags().Float64Var(&g.topP, "top-p", 0, "Nucleus sampling probability mass (0-1)")
	cmd.Flags().StringSliceVar(&g.stop, "stop", nil, "Stop sequence (repeatable)")
}

// request builds a validated chat request for prompt.
func (g *generationFlags) request(cmd *cobra.Command, cfg *config.Config, prompt string) (chat.Request, error) {
	system := cfg.Generation.SystemPrompt
	if cmd.Flags().Changed("system") {
		system = g.system
	}

	var messages []api.Message
	if system != "" {
		messages = append(messages, api.SystemMessage(system))
	}
	messages = append(messages, api.UserMessage(prompt))

	var opts []chat.Option
	switch {
	case cmd.Flags().Changed("temperature"):
		opts = append(opts, chat.WithTemperature(g.temperature))
	case cfg.Generation.Temperature != nil:
		opts = append(opts, chat.WithTemperature(*cfg.Generation.Temperature))
	}
	switch {
	case cmd.Flags().Changed("max-tokens"):
		opts = append(opts, chat.WithMaxTokens(g.maxTokens))
	case cfg.Generation.MaxTokens != nil:
		opts = append(opts, chat.WithMaxTokens(*cfg.Generation.MaxTokens))
	}
	if cmd.Flags().Changed("top-p") {
		opts = append(opts, chat.WithTopP(g.topP))
	}
	if len(g.stop) > 0 {
		opts = append(opts, chat.WithStop(g.stop...))
	}

	return chat.NewRequest(cfg.Backend.Model, messages, opts...)
}

// readPrompt joins args, or reads stdin when no args are given.
func readPrompt(cmd *cobra.Command, args []string) (string, error) {
	prompt := strings.Join(args, " ")
	if len(args) == 0 {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("reading prompt from stdin: %w", err)
		}
		prompt = string(data)
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("a prompt is required, as arguments or on stdin")
	}
	return prompt, nil
}
