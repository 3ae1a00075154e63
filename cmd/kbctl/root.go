package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"traffic-advisor-ai/internal/app"
	"traffic-advisor-ai/internal/config"
	"traffic-advisor-ai/internal/contextutil"
	"traffic-advisor-ai/internal/llm"
	"traffic-advisor-ai/internal/rag"
)

// cli holds state shared by the subcommands of one invocation.
type cli struct {
	loadConfig func() (*config.Config, error)

	kbDir   string
	lexical bool
	jsonOut bool

	ctx    context.Context
	engine *rag.Engine
}

func newRootCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	c := &cli{loadConfig: loadConfig}

	root := &cobra.Command{
		Use:   "kbctl",
		Short: "Inspect the knowledge base and test retrieval",
		Long: `kbctl loads the Markdown knowledge base the same way the API server does
and runs retrieval against it. Configuration comes from the environment and .env.`,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
	}
	root.PersistentFlags().StringVar(&c.kbDir, "kb-dir", "", "knowledge base directory (overrides KB_DIR)")
	root.PersistentFlags().BoolVar(&c.lexical, "lexical", false, "skip the embedding backend and use lexical retrieval")
	root.PersistentFlags().BoolVar(&c.jsonOut, "json", false, "output as JSON")

	root.AddCommand(c.newQueryCmd(), c.newStatsCmd(), c.newChunksCmd())
	return root
}

// setup loads configuration and builds the engine before any subcommand runs.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if c.kbDir != "" {
		cfg.KBDir = c.kbDir
	}

	logger := app.NewLogger(cfg, cmd.ErrOrStderr())
	slog.SetDefault(logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	c.ctx = contextutil.WithLogger(ctx, logger)

	backend := llm.Unavailable("lexical retrieval requested")
	if !c.lexical {
		backend = app.ProbeEmbeddings(c.ctx, cfg)
	}
	c.engine = app.NewEngine(c.ctx, cfg, backend)
	return nil
}

func (c *cli) printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
