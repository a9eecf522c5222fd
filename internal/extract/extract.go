// Package extract is the text-extraction boundary. Plain text formats are
// read directly; binary document and image formats return a placeholder
// string, since decoding them is owned by an external collaborator.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Text returns the extracted text for the file at path. It never fails the
// caller: unreadable or unsupported files yield a placeholder string.
func Text(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".json", ".js", ".html", ".css":
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Sprintf("[文件解析失败: %v]", err)
		}
		return string(data)
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp":
		return fmt.Sprintf("[图片文件: %s]", filepath.Base(path))
	default:
		return fmt.Sprintf("[不支持的文件格式: %s]", filepath.Ext(path))
	}
}
