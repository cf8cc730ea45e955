package csv233

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/neko233-com/csv233-go/pkg/csv233/excel"
	jsonhandler "github.com/neko233-com/csv233-go/pkg/csv233/json"
	"github.com/neko233-com/csv233-go/pkg/csv233/sqlite"
)

// Registry 扩展名到处理器的映射
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]TableHandler
}

// NewRegistry 创建空的处理器注册表
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]TableHandler)}
}

// NewDefaultRegistry 创建包含全部内置处理器的注册表
// 参数:
//
//	sep: csv/txt 文件使用的分隔符，为 0 时使用 ','
func NewDefaultRegistry(sep byte) *Registry {
	r := NewRegistry()
	r.Register(&CsvTableHandler{Sep: sep})
	r.Register(NewTsvTableHandler())
	r.Register(&excel.ExcelTableHandler{})
	r.Register(&jsonhandler.JsonTableHandler{})
	r.Register(&sqlite.SqliteTableHandler{})
	return r
}

// Register 注册处理器，已存在的同扩展名处理器会被替换
func (r *Registry) Register(handler TableHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, suffix := range handler.Suffixes() {
		r.handlers[strings.ToLower(suffix)] = handler
	}
}

// HandlerFor 根据文件扩展名查找处理器
func (r *Registry) HandlerFor(path string) (TableHandler, bool) {
	suffix := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[suffix]
	return h, ok
}

// Suffixes 返回已注册的全部扩展名（排序后）
func (r *Registry) Suffixes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for suffix := range r.handlers {
		out = append(out, suffix)
	}
	sort.Strings(out)
	return out
}

// ReadTable 按扩展名读取任意格式的表文件
// 返回的表使用 sep 作为分隔符，读取过程中会校验每一行的宽度
func (r *Registry) ReadTable(path string, sep byte) (*Table, error) {
	h, ok := r.HandlerFor(path)
	if !ok {
		return nil, fmt.Errorf("不支持的文件类型: %s", path)
	}
	d, err := h.ReadToDto(TableNameOf(path), path)
	if err != nil {
		return nil, err
	}
	t := NewTableWithSeparator(sep)
	if err := t.FromDto(d); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// WriteTable 按扩展名将表写入任意格式的文件
func (r *Registry) WriteTable(t *Table, path string) error {
	h, ok := r.HandlerFor(path)
	if !ok {
		return fmt.Errorf("不支持的文件类型: %s", path)
	}
	return h.WriteFromDto(t.ToDto(TableNameOf(path)), path)
}

// Convert 读取 src 并按 dst 的扩展名写出
func (r *Registry) Convert(src, dst string, sep byte) error {
	t, err := r.ReadTable(src, sep)
	if err != nil {
		return err
	}
	if err := r.WriteTable(t, dst); err != nil {
		return err
	}
	getLogger().Info("表转换完成", "src", src, "dst", dst, "rows", t.Len())
	return nil
}

// TableNameOf 取不含路径和扩展名的文件名作为表名
func TableNameOf(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
