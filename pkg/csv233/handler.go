package csv233

import (
	"github.com/neko233-com/csv233-go/pkg/csv233/dto"
)

// TableHandler 表格式处理器接口
// 定义不同格式表文件（CSV、Excel、JSON、SQLite 等）的读取和写入接口
// 每个处理器负责一种格式，与统一的 dto.TableDto 互相转换
type TableHandler interface {
	// TypeName 处理器类型名，如 "csv", "excel", "json"
	TypeName() string

	// Suffixes 处理器支持的文件扩展名（小写，不含点）
	Suffixes() []string

	// ReadToDto 读取表文件
	// 参数:
	//   tableName: 表名
	//   path: 文件完整路径
	// 返回值:
	//   *dto.TableDto: 表数据
	//   error: 读取或解析失败时的错误
	ReadToDto(tableName, path string) (*dto.TableDto, error)

	// WriteFromDto 将表数据写入文件
	WriteFromDto(d *dto.TableDto, path string) error
}

// CsvTableHandler CSV 处理器，直接使用 Table 的 Load/Save
type CsvTableHandler struct {
	Sep byte // 为 0 时使用 ','
}

func (h *CsvTableHandler) TypeName() string {
	return "csv"
}

func (h *CsvTableHandler) Suffixes() []string {
	return []string{"csv", "txt"}
}

func (h *CsvTableHandler) ReadToDto(tableName, path string) (*dto.TableDto, error) {
	t := NewTableWithSeparator(h.separator())
	if err := t.Load(path); err != nil {
		return nil, err
	}
	d := t.ToDto(tableName)
	d.Type = h.TypeName()
	return d, nil
}

func (h *CsvTableHandler) WriteFromDto(d *dto.TableDto, path string) error {
	t := NewTableWithSeparator(h.separator())
	if err := t.FromDto(d); err != nil {
		return err
	}
	return t.Save(path)
}

func (h *CsvTableHandler) separator() byte {
	if h.Sep == 0 {
		return DefaultSeparator
	}
	return h.Sep
}

// TsvTableHandler TSV (Tab-Separated Values) 处理器
type TsvTableHandler struct {
	CsvTableHandler
}

// NewTsvTableHandler 创建以制表符分隔的处理器
func NewTsvTableHandler() *TsvTableHandler {
	return &TsvTableHandler{CsvTableHandler{Sep: '\t'}}
}

func (h *TsvTableHandler) TypeName() string {
	return "tsv"
}

func (h *TsvTableHandler) Suffixes() []string {
	return []string{"tsv"}
}

func (h *TsvTableHandler) ReadToDto(tableName, path string) (*dto.TableDto, error) {
	d, err := h.CsvTableHandler.ReadToDto(tableName, path)
	if err != nil {
		return nil, err
	}
	d.Type = h.TypeName()
	d.Suffix = "tsv"
	return d, nil
}
