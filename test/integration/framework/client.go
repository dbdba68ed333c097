//go:build integration
// +build integration

// APIClient 基于 resty 封装的 HTTP 客户端，直接复用业务结构体
package framework

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/automentor/backend/internal/domain/knowledge"
)

// APIClient 测试用 HTTP 客户端
type APIClient struct {
	client  *resty.Client
	baseURL string
}

// NewAPIClient 创建测试用 HTTP 客户端
func NewAPIClient(baseURL string) *APIClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Content-Type", "application/json")

	return &APIClient{
		client:  client,
		baseURL: baseURL,
	}
}

// --- 通用响应结构 ---

// APIResponse 通用 API 响应（复用 response.Response 的 JSON 结构）
type APIResponse[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
}

// --- 各接口 Data 结构（与 handler 返回的 gin.H 对应） ---

// StatusData GET /api/v1/status 响应 data
type StatusData struct {
	AssistantState string `json:"assistant_state"`
	Initialized    bool   `json:"initialized"`
	QdrantAlive    bool   `json:"qdrant_alive"`
	Collection     string `json:"collection"`
	ChunkCount     int    `json:"chunk_count"`
	DocumentCount  int    `json:"document_count"`
}

// DocumentsData GET /api/v1/documents 响应 data
type DocumentsData struct {
	Documents []map[string]interface{} `json:"documents"`
	Total     int                      `json:"total"`
}

// do 执行请求并统一处理成功/错误响应的 JSON 解析
// resty 的 SetResult 仅在 2xx 时解析，SetError 在 4xx/5xx 时解析
// 由于两者的 code/message 字段一致，用同类型接收即可
func do[T any](r *resty.Request, result *APIResponse[T]) *resty.Request {
	return r.SetResult(result).SetError(result)
}

// --- 健康检查 ---

// HealthCheck 健康检查
func (c *APIClient) HealthCheck() error {
	resp, err := c.client.R().Get("/health")
	if err != nil {
		return err
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("health check failed: status %d", resp.StatusCode())
	}
	return nil
}

// --- 问答 ---

// Query 提问，返回回答和 HTTP 状态码
func (c *APIClient) Query(question string) (*knowledge.ChatTurn, int, error) {
	var answer struct {
		Answer  string   `json:"answer"`
		Sources []string `json:"sources"`
	}
	resp, err := c.client.R().
		SetBody(map[string]string{"question": question}).
		SetResult(&answer).
		Post("/query")
	if err != nil {
		return nil, 0, err
	}
	return &knowledge.ChatTurn{
		Question: question,
		Answer:   answer.Answer,
		Sources:  answer.Sources,
	}, resp.StatusCode(), nil
}

// --- 摄取 ---

// UploadFile multipart 上传单个文件
func (c *APIClient) UploadFile(filename string, content []byte) (*resty.Response, error) {
	return c.client.R().
		SetFileReader("files", filename, bytes.NewReader(content)).
		Post("/ingest")
}

// Scan 触发目录摄取
func (c *APIClient) Scan(mode string) (*APIResponse[knowledge.IngestReport], int, error) {
	var result APIResponse[knowledge.IngestReport]
	resp, err := do(c.client.R().SetBody(map[string]string{"mode": mode}), &result).
		Post("/api/v1/ingest/scan")
	if err != nil {
		return nil, 0, err
	}
	return &result, resp.StatusCode(), nil
}

// --- 状态 ---

// Status 索引与助手状态
func (c *APIClient) Status() (*APIResponse[StatusData], error) {
	var result APIResponse[StatusData]
	_, err := do(c.client.R(), &result).Get("/api/v1/status")
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Documents 已索引文档列表
func (c *APIClient) Documents() (*APIResponse[DocumentsData], error) {
	var result APIResponse[DocumentsData]
	_, err := do(c.client.R(), &result).Get("/api/v1/documents")
	if err != nil {
		return nil, err
	}
	return &result, nil
}
