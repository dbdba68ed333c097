package mcp

import (
	"net/http"

	"github.com/google/wire"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/automentor/backend/internal/application/assistant"
	"github.com/automentor/backend/internal/domain/knowledge"
	"github.com/automentor/backend/internal/infrastructure/config"
)

// MCPServer MCP 服务器
// 把问答助手暴露为 MCP 工具，供 IDE 等 MCP 客户端通过 SSE 调用
type MCPServer struct {
	server   *mcp.Server
	handler  http.Handler
	cfg      *config.Config
	service  *assistant.AssistantService
	ingest   *assistant.IngestService
	metaRepo knowledge.IndexMetaRepository
}

// NewServer 创建 MCP 服务器
func NewServer(
	cfg *config.Config,
	service *assistant.AssistantService,
	ingest *assistant.IngestService,
	metaRepo knowledge.IndexMetaRepository,
) *MCPServer {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "automentor-daemon",
			Version: "0.1.0",
		},
		nil, // 使用默认能力
	)

	mcpServer := &MCPServer{
		server:   server,
		cfg:      cfg,
		service:  service,
		ingest:   ingest,
		metaRepo: metaRepo,
	}

	// 注册工具：ask_automentor
	mcp.AddTool(server, &mcp.Tool{
		Name: "ask_automentor",
		Description: `Ask the automotive knowledge assistant a question. The assistant retrieves relevant passages from indexed repair manuals, spec sheets, and maintenance records, then generates a grounded answer.

Parameters:
- question (string, required): The question in natural language, e.g., "What is the torque spec for the M54 cylinder head bolts?"

Returns: answer text and the list of source documents the answer was grounded on.`,
	}, mcpServer.askTool)

	// 注册工具：search_manuals
	mcp.AddTool(server, &mcp.Tool{
		Name: "search_manuals",
		Description: `Semantic search over the indexed automotive documents without LLM generation. Use this to locate raw passages when you want to read the source material yourself.

Parameters:
- query (string, required): Natural language search query
- limit (int, optional): Maximum number of passages to return (1-10, default: 5)

Returns: List of passages with source label, similarity score, and text.`,
	}, mcpServer.searchTool)

	// 注册工具：ingest_directory
	mcp.AddTool(server, &mcp.Tool{
		Name: "ingest_directory",
		Description: `Scan a directory for pdf/txt/csv documents and index them into the knowledge base.

Parameters:
- dir (string, optional): Directory to scan, defaults to the configured source documents directory
- mode (string, optional): "append" (default) indexes only new or changed files, "rebuild" drops the collection and re-indexes everything

Returns: Ingestion report with document and chunk counts.`,
	}, mcpServer.ingestDirectoryTool)

	// 注册工具：get_index_status
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_index_status",
		Description: "Get the status of the knowledge index and the assistant. No parameters required. Returns: collection name, indexed document and chunk counts, embedding model, and assistant state.",
	}, mcpServer.indexStatusTool)

	// 创建 SSE Handler
	handler := mcp.NewSSEHandler(
		func(r *http.Request) *mcp.Server {
			// 每个请求返回同一个服务器实例
			return server
		},
		nil, // SSEOptions，使用默认值
	)

	mcpServer.handler = handler
	return mcpServer
}

// GetHandler 获取 HTTP Handler（用于集成到 HTTP 服务器）
func (s *MCPServer) GetHandler() http.Handler {
	return s.handler
}

// Start 启动服务器（HTTP/SSE 模式）
// MCP 服务器通过 HTTP Handler 提供服务，不需要单独启动
func (s *MCPServer) Start() error {
	return nil
}

// Stop 停止服务器
func (s *MCPServer) Stop() error {
	// HTTP/SSE 模式下，由 HTTP 服务器统一管理生命周期
	return nil
}

// ProviderSet MCP 接口层 ProviderSet
var ProviderSet = wire.NewSet(
	NewServer,
)
