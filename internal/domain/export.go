package domain

import "fmt"

// ExportFormat 导出格式，调用方传入的原始字符串，未必合法
type ExportFormat string

const (
	FormatJSON ExportFormat = "json"
	FormatCSV  ExportFormat = "csv"
)

// Valid 是否为支持的格式 (大小写敏感)
func (f ExportFormat) Valid() bool {
	return f == FormatJSON || f == FormatCSV
}

// ContentType 对应的 MIME 类型
func (f ExportFormat) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatCSV:
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}

// ExportFilename 约定的文件名: {username}_profile.{format}
func ExportFilename(username string, f ExportFormat) string {
	return fmt.Sprintf("%s_profile.%s", username, f)
}

// ExportFile 一次导出的结果
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}
