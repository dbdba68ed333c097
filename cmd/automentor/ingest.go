package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/automentor/backend/internal/domain/knowledge"
)

var (
	ingestDir     string
	ingestRebuild bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "摄取源文档目录",
	Long:  "扫描目录下的 pdf/txt/csv 文档，切分、向量化并写入索引。默认增量摄取，--rebuild 清空集合后全量重建。",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		p, err := newPipeline(ctx)
		if err != nil {
			return err
		}
		defer p.Close()

		mode := knowledge.IngestModeAppend
		if ingestRebuild {
			mode = knowledge.IngestModeRebuild
		}

		dir := ingestDir
		if dir == "" {
			dir = p.cfg.Ingest.SourceDocsDir
		}
		fmt.Printf("Ingesting %s (mode: %s)\n", dir, mode)

		report, err := p.ingest.IngestDirectory(ctx, ingestDir, mode)
		if err != nil {
			return err
		}

		fmt.Printf("Documents found:     %d\n", report.DocumentsFound)
		fmt.Printf("Documents indexed:   %d\n", report.DocumentsRead)
		fmt.Printf("Documents unchanged: %d\n", report.DocumentsUnchanged)
		fmt.Printf("Chunks indexed:      %d\n", report.ChunksIndexed)
		fmt.Printf("Duration:            %dms\n", report.DurationMs)
		for _, skipped := range report.DocumentsSkipped {
			fmt.Printf("Skipped: %s\n", skipped)
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestDir, "dir", "", "源文档目录，默认使用配置中的目录")
	ingestCmd.Flags().BoolVar(&ingestRebuild, "rebuild", false, "清空集合后全量重建")
	rootCmd.AddCommand(ingestCmd)
}
