// Package main 是 automentor 命令行工具入口
// 不经过守护进程，直接在进程内构建摄取和问答管线，
// 适合脚本化批量建索引和快速验证
package main

import (
	"os"

	"github.com/spf13/cobra"

	applog "github.com/automentor/backend/internal/infrastructure/log"
)

var rootCmd = &cobra.Command{
	Use:   "automentor",
	Short: "汽车知识库命令行工具",
	Long: `automentor 在本进程内直接操作知识库，不依赖守护进程。

常见用法：
  automentor ingest --dir ./manuals      摄取目录下的 pdf/txt/csv 文档
  automentor ingest --rebuild            清空索引后全量重建
  automentor ask -q "刹车片多久更换一次"  单次提问
  automentor ask                         进入交互式问答
  automentor status                      查看索引状态`,
	SilenceUsage: true,
}

func main() {
	applog.Init(nil)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
