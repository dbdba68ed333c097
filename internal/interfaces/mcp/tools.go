package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/automentor/backend/internal/domain/knowledge"
)

// AskInput 问答工具输入
type AskInput struct {
	Question string `json:"question" jsonschema:"The question in natural language (required)"`
}

// AskOutput 问答工具输出
type AskOutput struct {
	Answer  string   `json:"answer" jsonschema:"Generated answer grounded on retrieved passages"`
	Sources []string `json:"sources" jsonschema:"Source documents the answer was grounded on, ordered by relevance"`
}

// askTool 问答工具实现
// 懒初始化助手，索引为空时返回可操作的错误提示
func (s *MCPServer) askTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	var output AskOutput

	if input.Question == "" {
		return nil, output, fmt.Errorf("question is required")
	}

	a, err := s.service.GetOrInit(ctx)
	if err != nil {
		return nil, output, fmt.Errorf("assistant not ready: %w. Ingest documents first, e.g. with the ingest_directory tool", err)
	}

	answer, err := a.Ask(ctx, input.Question)
	if err != nil {
		return nil, output, fmt.Errorf("failed to answer: %w", err)
	}

	output.Answer = answer.Answer
	output.Sources = answer.Sources
	return nil, output, nil
}

// SearchInput 语义搜索工具输入
type SearchInput struct {
	Query string `json:"query" jsonschema:"Natural language search query (required)"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of passages to return, defaults to 5, max 10"`
}

// SearchResult 单条检索结果
type SearchResult struct {
	Source string  `json:"source" jsonschema:"Source document label, e.g. 'e46_manual.pdf' or 'service_log.csv (row 12)'"`
	Score  float32 `json:"score" jsonschema:"Cosine similarity score"`
	Text   string  `json:"text" jsonschema:"Passage text"`
}

// SearchOutput 语义搜索工具输出
type SearchOutput struct {
	Results    []*SearchResult `json:"results" jsonschema:"Passages ordered by similarity"`
	TotalCount int             `json:"total_count" jsonschema:"Number of passages returned"`
}

// searchTool 语义搜索工具实现
func (s *MCPServer) searchTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	output := SearchOutput{
		Results: []*SearchResult{},
	}

	if input.Query == "" {
		return nil, output, fmt.Errorf("query is required")
	}

	// 默认 5 条，最多 10 条，避免上下文过载
	limit := input.Limit
	if limit <= 0 {
		limit = 5
	}
	if limit > 10 {
		limit = 10
	}

	a, err := s.service.GetOrInit(ctx)
	if err != nil {
		return nil, output, fmt.Errorf("assistant not ready: %w. Ingest documents first, e.g. with the ingest_directory tool", err)
	}

	scored, err := a.Search(ctx, input.Query, limit)
	if err != nil {
		return nil, output, fmt.Errorf("search failed: %w", err)
	}

	output.Results = make([]*SearchResult, 0, len(scored))
	for _, sc := range scored {
		output.Results = append(output.Results, &SearchResult{
			Source: sc.Chunk.SourceLabel(),
			Score:  sc.Score,
			Text:   sc.Chunk.Text,
		})
	}
	output.TotalCount = len(output.Results)
	return nil, output, nil
}

// IngestDirectoryInput 目录摄取工具输入
type IngestDirectoryInput struct {
	Dir  string `json:"dir,omitempty" jsonschema:"Directory to scan, defaults to the configured source documents directory"`
	Mode string `json:"mode,omitempty" jsonschema:"Ingest mode: append (default) or rebuild"`
}

// IngestDirectoryOutput 目录摄取工具输出
type IngestDirectoryOutput struct {
	Mode               string   `json:"mode" jsonschema:"Effective ingest mode"`
	DocumentsFound     int      `json:"documents_found" jsonschema:"Supported files discovered"`
	DocumentsRead      int      `json:"documents_read" jsonschema:"Files successfully read and indexed"`
	DocumentsUnchanged int      `json:"documents_unchanged" jsonschema:"Files skipped because content was unchanged (append mode)"`
	DocumentsSkipped   []string `json:"documents_skipped,omitempty" jsonschema:"Files skipped due to read failures, with reasons"`
	ChunksIndexed      int      `json:"chunks_indexed" jsonschema:"Chunks written to the vector index"`
	DurationMs         int64    `json:"duration_ms" jsonschema:"Ingestion duration in milliseconds"`
}

// ingestDirectoryTool 目录摄取工具实现
func (s *MCPServer) ingestDirectoryTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input IngestDirectoryInput,
) (*mcp.CallToolResult, IngestDirectoryOutput, error) {
	var output IngestDirectoryOutput

	mode, ok := knowledge.ParseIngestMode(input.Mode)
	if !ok {
		return nil, output, fmt.Errorf("unknown ingest mode %q, use 'append' or 'rebuild'", input.Mode)
	}

	report, err := s.ingest.IngestDirectory(ctx, input.Dir, mode)
	if err != nil {
		return nil, output, fmt.Errorf("ingestion failed: %w", err)
	}

	output.Mode = string(report.Mode)
	output.DocumentsFound = report.DocumentsFound
	output.DocumentsRead = report.DocumentsRead
	output.DocumentsUnchanged = report.DocumentsUnchanged
	output.DocumentsSkipped = report.DocumentsSkipped
	output.ChunksIndexed = report.ChunksIndexed
	output.DurationMs = report.DurationMs
	return nil, output, nil
}

// IndexStatusInput 索引状态工具输入（无参数）
type IndexStatusInput struct{}

// IndexStatusOutput 索引状态工具输出
type IndexStatusOutput struct {
	Collection     string `json:"collection" jsonschema:"Qdrant collection name"`
	DocumentCount  int    `json:"document_count" jsonschema:"Indexed source documents"`
	ChunkCount     int    `json:"chunk_count" jsonschema:"Indexed chunks"`
	EmbeddingModel string `json:"embedding_model,omitempty" jsonschema:"Embedding model the index was built with"`
	BuiltAt        string `json:"built_at,omitempty" jsonschema:"Last index build time (RFC 3339)"`
	AssistantState string `json:"assistant_state" jsonschema:"Assistant state: not_ready, ready or answering"`
}

// indexStatusTool 索引状态工具实现
func (s *MCPServer) indexStatusTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input IndexStatusInput,
) (*mcp.CallToolResult, IndexStatusOutput, error) {
	output := IndexStatusOutput{
		Collection:     s.cfg.Qdrant.Collection,
		AssistantState: s.service.State(),
	}

	meta, err := s.metaRepo.GetMeta(s.cfg.Qdrant.Collection)
	if err != nil {
		return nil, output, fmt.Errorf("failed to read index meta: %w", err)
	}
	if meta != nil {
		output.DocumentCount = meta.DocumentCount
		output.ChunkCount = meta.ChunkCount
		output.EmbeddingModel = meta.EmbeddingModel
		if meta.BuiltAt > 0 {
			output.BuiltAt = time.Unix(meta.BuiltAt, 0).Format(time.RFC3339)
		}
	}

	return nil, output, nil
}
