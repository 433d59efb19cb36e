package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rhuss/runnerchat/pkg/config"
	"github.com/rhuss/runnerchat/pkg/debug"
	"github.com/rhuss/runnerchat/pkg/provider/openaicompat"
)

const rootLongDesc string = `runnerchat sends chat completion requests to an OpenAI-compatible
endpoint and prints the answer, either in one piece or as it streams.

Examples:
  runnerchat complete "What is Rust programming language?"
  runnerchat stream --model llama4:scout "Write a short poem about coding"
  runnerchat --base-url http://gpu-box:11434/v1 demo`

const rootShortDesc string = "Chat with an OpenAI-compatible LLM runner"

// rootCommander holds the persistent flags and the state built from them
// before any subcommand runs.
type rootCommander struct {
	configPath string
	baseURL    string
	apiKey     string
	model      string
	debug      bool

	cfg    *config.Config
	client *openaicompat.Client
}

func newRootCmd(root *rootCommander) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "runnerchat",
		Short:         rootShortDesc,
		Long:          rootLongDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return root.setup(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&root.configPath, "config", "c", "", "Path to config file")
	flags.StringVar(&root.baseURL, "base-url", "", "Endpoint root, e.g. http://localhost:11434/v1")
	flags.StringVar(&root.apiKey, "api-key", "", "API key sent as a bearer token")
	flags.StringVarP(&root.model, "model", "m", "", "Model name")
	flags.BoolVar(&root.debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(
		newCompleteCmd(root),
		newStreamCmd(root),
		newDemoCmd(root),
	)

	return cmd
}

// setup loads configuration, applies flag overrides, installs the logger
// and builds the client.
func (r *rootCommander) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(r.configPath)
	if err != nil {
		return err
	}

	if r.baseURL != "" {
		cfg.Backend.BaseURL = r.baseURL
	}
	if r.apiKey != "" {
		cfg.Backend.APIKey = r.apiKey
	}
	if r.model != "" {
		cfg.Backend.Model = r.model
	}
	if r.debug {
		if cfg.Log.Level != "trace" {
			cfg.Log.Level = "debug"
		}
		if cfg.Log.Debug == "" {
			cfg.Log.Debug = "all"
		}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	debug.Init(cfg.Log.Debug, cfg.SlogLevel(), cmd.ErrOrStderr())

	debug.Log("config", "configuration loaded",
		"categories", debug.Categories(),
		"base_url", cfg.Backend.BaseURL,
		"model", cfg.Backend.Model,
		"timeout", cfg.Backend.Timeout,
	)

	r.cfg = cfg
	r.client = openaicompat.NewClient(cfg.Backend.BaseURL, cfg.Backend.APIKey, cfg.Backend.Timeout)
	return nil
}
