package json

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/neko233-com/csv233-go/internal/fsutil"
	"github.com/neko233-com/csv233-go/pkg/csv233/dto"
)

// JsonTableHandler JSON 表处理器
// 文件内容即 dto.TableDto 的 JSON 形式：{"tableName", "type", "suffix", "header", "rows"}
type JsonTableHandler struct{}

// TypeName 返回处理器类型名
// 返回值:
//
//	string: "json"
func (h *JsonTableHandler) TypeName() string {
	return "json"
}

func (h *JsonTableHandler) Suffixes() []string {
	return []string{"json"}
}

// ReadToDto 读取 JSON 表文件
// 空文件返回空表；文件中的 tableName 为空时使用参数 tableName
func (h *JsonTableHandler) ReadToDto(tableName, path string) (*dto.TableDto, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	result := &dto.TableDto{}
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return nil, fmt.Errorf("解析JSON表失败: %w", err)
		}
	}
	if result.TableName == "" {
		result.TableName = tableName
	}
	result.Type = h.TypeName()
	result.Suffix = "json"
	return result, nil
}

// WriteFromDto 写入 JSON 表文件
func (h *JsonTableHandler) WriteFromDto(d *dto.TableDto, path string) error {
	out := *d
	out.Type = h.TypeName()
	out.Suffix = "json"

	content, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化JSON表失败: %w", err)
	}
	content = append(content, '\n')

	return fsutil.WriteFile(path, content)
}
