package assistant

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/automentor/backend/internal/domain/knowledge"
)

// pdftotextBinary 提取 PDF 文本的外部工具
// 由 poppler-utils 提供，需在 PATH 中可用
const pdftotextBinary = "pdftotext"

// execRunner CommandRunner 的生产实现
type execRunner struct{}

// Run 执行命令并返回标准输出
// 失败时把标准错误的首行带入错误信息，便于定位外部工具的问题
func (r *execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if idx := strings.IndexByte(msg, '\n'); idx >= 0 {
			msg = msg[:idx]
		}
		if msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}

	return stdout.Bytes(), nil
}

// loadPDF 通过 pdftotext 提取 PDF 文本
// -layout 保持原始排版，"-" 输出到标准输出
func (l *DocumentLoader) loadPDF(ctx context.Context, path string) ([]*knowledge.Document, error) {
	out, err := l.runner.Run(ctx, pdftotextBinary, "-layout", path, "-")
	if err != nil {
		return nil, fmt.Errorf("failed to extract pdf text: %w", err)
	}

	text := sanitizeText(string(out))
	if strings.TrimSpace(text) == "" {
		// 扫描版 PDF 没有文本层，产出零文档
		return nil, nil
	}

	return []*knowledge.Document{
		{
			Text: text,
			Meta: knowledge.DocumentMeta{
				SourcePath: path,
				SourceType: knowledge.SourceTypePDF,
			},
		},
	}, nil
}
