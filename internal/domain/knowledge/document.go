package knowledge

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SourceType 文档来源类型
// 只允许受支持的封闭枚举值，新增类型必须同时扩展加载器注册表
type SourceType string

const (
	SourceTypePDF SourceType = "pdf"
	SourceTypeTXT SourceType = "txt"
	SourceTypeCSV SourceType = "csv"
)

// SupportedSourceTypes 返回所有受支持的来源类型
func SupportedSourceTypes() []SourceType {
	return []SourceType{SourceTypePDF, SourceTypeTXT, SourceTypeCSV}
}

// ParseSourceType 根据文件扩展名解析来源类型
// 扩展名匹配不区分大小写，不支持的扩展名返回 ErrUnsupportedSourceType
func ParseSourceType(path string) (SourceType, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		return SourceTypePDF, nil
	case ".txt":
		return SourceTypeTXT, nil
	case ".csv":
		return SourceTypeCSV, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedSourceType, filepath.Base(path))
	}
}

// IsSupportedSource 检查文件扩展名是否受支持
func IsSupportedSource(path string) bool {
	_, err := ParseSourceType(path)
	return err == nil
}

// DocumentMeta 文档元数据
// 随文档一起流经切分、向量化和检索，用于回答时的来源引用
type DocumentMeta struct {
	SourcePath string     // 源文件绝对路径
	SourceType SourceType // 来源类型
	Row        int        // CSV 行号（从 1 开始），非 CSV 为 0
}

// Document 已加载的文档
// 一个文件通常对应一个 Document，CSV 每行对应一个 Document
type Document struct {
	Text string       // 纯文本内容
	Meta DocumentMeta // 元数据
}

// SourceName 返回来源文件名（不含目录）
func (d *Document) SourceName() string {
	return filepath.Base(d.Meta.SourcePath)
}
