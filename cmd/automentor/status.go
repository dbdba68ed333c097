package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "查看索引状态",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		p, err := newPipeline(ctx)
		if err != nil {
			return err
		}
		defer p.Close()

		fmt.Printf("Collection:      %s\n", p.cfg.Qdrant.Collection)

		meta, err := p.metaRepo.GetMeta(p.cfg.Qdrant.Collection)
		if err != nil {
			return fmt.Errorf("failed to read index meta: %w", err)
		}
		if meta == nil {
			fmt.Println("Index:           not built (run 'automentor ingest')")
			return nil
		}

		fmt.Printf("Embedding model: %s\n", meta.EmbeddingModel)
		fmt.Printf("Vector dim:      %d\n", meta.VectorDim)
		fmt.Printf("Documents:       %d\n", meta.DocumentCount)
		fmt.Printf("Chunks:          %d\n", meta.ChunkCount)
		if meta.BuiltAt > 0 {
			fmt.Printf("Built at:        %s\n", time.Unix(meta.BuiltAt, 0).Format(time.RFC3339))
		}

		points, err := p.index.CountPoints(ctx)
		if err != nil {
			return fmt.Errorf("failed to count qdrant points: %w", err)
		}
		fmt.Printf("Qdrant points:   %d\n", points)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
