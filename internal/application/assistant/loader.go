package assistant

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"log/slog"

	"github.com/automentor/backend/internal/domain/knowledge"
	"github.com/automentor/backend/internal/infrastructure/log"
)

// loadFunc 按来源类型加载单个文件
type loadFunc func(ctx context.Context, path string) ([]*knowledge.Document, error)

// LoadResult 一次目录扫描的加载统计
type LoadResult struct {
	// Found 发现的受支持文件数
	Found int
	// Read 成功读取的文件数
	Read int
	// Skipped 读取失败被跳过的文件及原因
	Skipped []string
}

// DocumentLoader 文档加载器
// 按扩展名把文件分派给对应类型的加载函数，类型注册表是封闭的
type DocumentLoader struct {
	loaders map[knowledge.SourceType]loadFunc
	runner  CommandRunner
	logger  *slog.Logger
}

// NewDocumentLoader 创建文档加载器
// runner 为 nil 时使用 exec.CommandContext 执行外部命令
func NewDocumentLoader(runner CommandRunner) *DocumentLoader {
	if runner == nil {
		runner = &execRunner{}
	}

	l := &DocumentLoader{
		runner: runner,
		logger: log.NewModuleLogger("assistant", "loader"),
	}
	l.loaders = map[knowledge.SourceType]loadFunc{
		knowledge.SourceTypeTXT: l.loadTXT,
		knowledge.SourceTypeCSV: l.loadCSV,
		knowledge.SourceTypePDF: l.loadPDF,
	}
	return l
}

// LoadDirectory 递归加载目录下所有受支持的文件
// 单个文件读取失败只记录警告并跳过，全部失败或目录为空时返回 ErrNoDocuments
func (l *DocumentLoader) LoadDirectory(ctx context.Context, dir string) ([]*knowledge.Document, *LoadResult, error) {
	result := &LoadResult{}
	var docs []*knowledge.Document

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == dir {
				return err
			}
			result.Skipped = append(result.Skipped, fmt.Sprintf("%s: %v", filepath.Base(path), err))
			l.logger.Warn("failed to access path, skipping", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !knowledge.IsSupportedSource(path) {
			return nil
		}

		result.Found++

		loaded, err := l.LoadFile(ctx, path)
		if err != nil {
			result.Skipped = append(result.Skipped, fmt.Sprintf("%s: %v", filepath.Base(path), err))
			l.logger.Warn("failed to load file, skipping", "path", path, "error", err)
			return nil
		}

		result.Read++
		docs = append(docs, loaded...)
		return nil
	})
	if walkErr != nil {
		return nil, nil, fmt.Errorf("failed to scan directory: %w", walkErr)
	}

	if len(docs) == 0 {
		return nil, result, fmt.Errorf("%w: directory %s", knowledge.ErrNoDocuments, dir)
	}

	l.logger.Info("directory loaded",
		"dir", dir,
		"files_found", result.Found,
		"files_read", result.Read,
		"documents", len(docs),
	)

	return docs, result, nil
}

// LoadFile 加载单个文件
// 不支持的扩展名返回 ErrUnsupportedSourceType，错误信息携带文件名
func (l *DocumentLoader) LoadFile(ctx context.Context, path string) ([]*knowledge.Document, error) {
	sourceType, err := knowledge.ParseSourceType(path)
	if err != nil {
		return nil, err
	}

	load, ok := l.loaders[sourceType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", knowledge.ErrUnsupportedSourceType, filepath.Base(path))
	}

	docs, err := load(ctx, path)
	if err != nil {
		return nil, err
	}

	// 过滤空白文档，避免向索引写入无意义的片段
	filtered := docs[:0]
	for _, doc := range docs {
		if strings.TrimSpace(doc.Text) != "" {
			filtered = append(filtered, doc)
		}
	}

	return filtered, nil
}

// loadTXT 加载纯文本文件
func (l *DocumentLoader) loadTXT(ctx context.Context, path string) ([]*knowledge.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read text file: %w", err)
	}

	text := sanitizeText(string(data))
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	return []*knowledge.Document{
		{
			Text: text,
			Meta: knowledge.DocumentMeta{
				SourcePath: path,
				SourceType: knowledge.SourceTypeTXT,
			},
		},
	}, nil
}

// loadCSV 加载 CSV 文件
// 首行作为表头，之后每行渲染为 "表头: 值" 的多行文本，一行对应一个文档
func (l *DocumentLoader) loadCSV(ctx context.Context, path string) ([]*knowledge.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	var docs []*knowledge.Document
	row := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse csv row: %w", err)
		}

		row++
		lines := make([]string, 0, len(record))
		for i, value := range record {
			name := fmt.Sprintf("column_%d", i+1)
			if i < len(header) && strings.TrimSpace(header[i]) != "" {
				name = strings.TrimSpace(header[i])
			}
			lines = append(lines, fmt.Sprintf("%s: %s", name, sanitizeText(value)))
		}

		docs = append(docs, &knowledge.Document{
			Text: strings.Join(lines, "\n"),
			Meta: knowledge.DocumentMeta{
				SourcePath: path,
				SourceType: knowledge.SourceTypeCSV,
				Row:        row,
			},
		})
	}

	return docs, nil
}

// sanitizeText 清理文本
// 去掉无效 UTF-8 字节，统一换行符，换页符转为段落边界
func sanitizeText(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\f", "\n\n")
	return s
}
