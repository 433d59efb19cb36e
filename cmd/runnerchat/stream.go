package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rhuss/runnerchat/pkg/provider/openaicompat"
)

const streamLongDesc string = `Send a prompt and print the answer as it is generated.

No token count is printed: the server does not report usage for
streamed answers.

Examples:
  runnerchat stream "Write a short poem about coding"
  runnerchat stream --max-tokens 50 "List three Go proverbs"`

const streamShortDesc string = "Print the answer as it streams"

type streamCommander struct {
	root *rootCommander
	gen  generationFlags
}

func newStreamCmd(root *rootCommander) *cobra.Command {
	cmder := &streamCommander{root: root}

	cmd := &cobra.Command{
		Use:   "stream [prompt...]",
		Short: streamShortDesc,
		Long:  streamLongDesc,
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args)
		},
	}

	cmder.gen.register(cmd)

	return cmd
}

func (c *streamCommander) run(cmd *cobra.Command, args []string) error {
	prompt, err := readPrompt(cmd, args)
	if err != nil {
		return err
	}

	req, err := c.gen.request(cmd, c.root.cfg, prompt)
	if err != nil {
		return err
	}

	stream, err := c.root.client.Stream(cmd.Context(), req)
	if err != nil {
		return err
	}
	defer stream.Close()

	err = printStream(cmd.OutOrStdout(), stream)
	fmt.Fprintln(cmd.OutOrStdout())
	return err
}

// printStream writes each fragment as soon as it arrives. On interruption
// the fragments already printed stay on screen and the error is returned.
func printStream(w io.Writer, stream *openaicompat.Stream) error {
	for fragment, err := range stream.Fragments() {
		if err != nil {
			return err
		}
		if _, err := io.WriteString(w, fragment); err != nil {
			return err
		}
	}
	return nil
}
