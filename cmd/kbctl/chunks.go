package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"traffic-advisor-ai/internal/indexer"
)

func (c *cli) newChunksCmd() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "chunks",
		Short: "List chunks in collection order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			chunks, err := c.engine.Chunks(c.ctx)
			if err != nil {
				return fmt.Errorf("failed to load knowledge base: %w", err)
			}

			selected := indexer.Collection{}
			for _, chunk := range chunks {
				if source == "" || chunk.Source == source {
					selected = append(selected, chunk)
				}
			}
			if c.jsonOut {
				return c.printJSON(cmd, selected)
			}

			for _, chunk := range selected {
				cmd.Printf("#%d %s [%d] %s\n", chunk.Index, chunk.Source, chunk.Ordinal, truncate(chunk.Text, 80))
			}
			cmd.Printf("%d chunks\n", len(selected))
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "only chunks from this document ID")
	return cmd
}
