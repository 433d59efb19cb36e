package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rhuss/runnerchat/pkg/provider/openaicompat"
)

const completeLongDesc string = `Send a prompt and print the complete answer followed by the total
token count reported by the server.

Examples:
  runnerchat complete "What is Rust programming language?"
  runnerchat complete --system "You are a helpful assistant." -t 0.7 --max-tokens 500 "What is Rust?"
  echo "Explain ownership" | runnerchat complete`

const completeShortDesc string = "Get a complete answer in one response"

type completeCommander struct {
	root *rootCommander
	gen  generationFlags
}

func newCompleteCmd(root *rootCommander) *cobra.Command {
	cmder := &completeCommander{root: root}

	cmd := &cobra.Command{
		Use:   "complete [prompt...]",
		Short: completeShortDesc,
		Long:  completeLongDesc,
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args)
		},
	}

	cmder.gen.register(cmd)

	return cmd
}

func (c *completeCommander) run(cmd *cobra.Command, args []string) error {
	prompt, err := readPrompt(cmd, args)
	if err != nil {
		return err
	}

	req, err := c.gen.request(cmd, c.root.cfg, prompt)
	if err != nil {
		return err
	}

	completion, err := c.root.client.Complete(cmd.Context(), req)
	if err != nil {
		return err
	}

	printCompletion(cmd.OutOrStdout(), completion)
	return nil
}

// printCompletion writes the answer, a blank line and the token total.
func printCompletion(w io.Writer, completion *openaicompat.Completion) {
	fmt.Fprintln(w, completion.Answer)
	if completion.Usage != nil {
		fmt.Fprintf(w, "\nTokens used: %d\n", completion.Usage.TotalTokens)
	} else {
		fmt.Fprintln(w, "\nTokens used: unknown")
	}
}
