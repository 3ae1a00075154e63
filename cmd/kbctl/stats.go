package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"traffic-advisor-ai/internal/indexer"
	"traffic-advisor-ai/internal/rag"
)

type statsOutput struct {
	Collection indexer.CollectionStats `json:"collection"`
	Engine     rag.Status              `json:"engine"`
}

func (c *cli) newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show knowledge base statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := c.engine.Stats(c.ctx)
			if err != nil {
				return fmt.Errorf("failed to load knowledge base: %w", err)
			}
			status := c.engine.Status()
			if c.jsonOut {
				return c.printJSON(cmd, statsOutput{Collection: stats, Engine: status})
			}

			cmd.Printf("Documents:      %d (%d without text)\n", stats.Documents, stats.DocsWith0Chunks)
			cmd.Printf("Chunks:         %d\n", stats.Chunks)
			cmd.Printf("Words/chunk:    min %d, max %d, mean %.1f, p95 %d\n",
				stats.ChunkWordStats.Min, stats.ChunkWordStats.Max, stats.ChunkWordStats.Mean, stats.ChunkWordStats.P95)
			cmd.Printf("Max words:      %d\n", stats.MaxWords)
			cmd.Printf("Index version:  %s (%s)\n", stats.IndexVersion, stats.ChunkerVersion)
			cmd.Printf("Strategy:       %s\n", status.Strategy)
			if status.IndexKind != "" {
				cmd.Printf("Vector index:   %s (dimension %d)\n", status.IndexKind, status.Dimension)
			}
			if status.DegradedReason != "" {
				cmd.Printf("Embeddings off: %s\n", status.DegradedReason)
			}
			return nil
		},
	}
}
