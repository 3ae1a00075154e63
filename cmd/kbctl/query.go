package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func (c *cli) newQueryCmd() *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "query [text]",
		Short: "Retrieve the chunks most relevant to a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			hits, err := c.engine.Hits(c.ctx, query, topK)
			if err != nil {
				return fmt.Errorf("retrieval failed: %w", err)
			}
			if c.jsonOut {
				return c.printJSON(cmd, hits)
			}

			status := c.engine.Status()
			if len(hits) == 0 {
				cmd.Println("No results found.")
				return nil
			}
			cmd.Printf("Strategy: %s\n\n", status.Strategy)
			for i, hit := range hits {
				cmd.Printf("[%d] %s (chunk %d)\n", i+1, hit.Source, hit.Index)
				cmd.Println(truncate(hit.Text, 300))
				cmd.Println()
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "number of chunks to return (0 uses TOP_K)")
	return cmd
}

// truncate shortens text to at most n runes.
func truncate(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
