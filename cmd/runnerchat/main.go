// Command runnerchat talks to an OpenAI-compatible Chat Completions
// endpoint, such as a local LLM runner.
//
// Configuration is read from runnerchat.yaml, a .env file and RUNNERCHAT_*
// environment variables; see package config.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rhuss/runnerchat/pkg/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// execute runs the command tree and flushes metrics whether or not the
// command succeeded.
func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	root := &rootCommander{}
	cmd := newRootCmd(root)
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)

	if root.client != nil {
		root.client.Close()
	}
	if root.cfg != nil && root.cfg.Metrics.Textfile != "" {
		if werr := observability.WriteTextfile(root.cfg.Metrics.Textfile); werr != nil {
			slog.Warn("failed to write metrics textfile", "path", root.cfg.Metrics.Textfile, "error", werr)
		}
	}

	return err
}
