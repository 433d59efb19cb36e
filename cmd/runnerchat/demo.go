package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rhuss/runnerchat/pkg/api"
	"github.com/rhuss/runnerchat/pkg/chat"
)

const demoLongDesc string = `Run the two canonical examples against the configured endpoint: a
blocking completion with a system prompt, followed by a streamed poem.`

const demoShortDesc string = "Run the blocking and streaming examples"

func newDemoCmd(root *rootCommander) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: demoShortDesc,
		Long:  demoLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd, root)
		},
	}
}

func runDemo(cmd *cobra.Command, root *rootCommander) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	model := root.cfg.Backend.Model

	fmt.Fprint(out, "=== Chat Completion Example ===\n\n")

	req, err := chat.NewRequest(model, []api.Message{
		api.SystemMessage("You are a helpful assistant."),
		api.UserMessage("What is Rust programming language?"),
	}, chat.WithTemperature(0.7), chat.WithMaxTokens(500))
	if err != nil {
		return err
	}

	completion, err := root.client.Complete(ctx, req)
	if err != nil {
		return fmt.Errorf("chat completion example: %w", err)
	}
	printCompletion(out, completion)

	fmt.Fprint(out, "\n=== Streaming Example ===\n\n")

	req, err = chat.NewRequest(model, []api.Message{
		api.UserMessage("Write a short poem about coding"),
	})
	if err != nil {
		return err
	}

	stream, err := root.client.Stream(ctx, req)
	if err != nil {
		return fmt.Errorf("streaming example: %w", err)
	}
	defer stream.Close()

	err = printStream(out, stream)
	fmt.Fprint(out, "\n\n")
	if err != nil {
		return fmt.Errorf("streaming example: %w", err)
	}
	return nil
}
