package csv233

import (
	"github.com/neko233-com/csv233-go/pkg/csv233/dto"
)

// DefaultSeparator 默认字段分隔符
const DefaultSeparator byte = ','

// Table 内存中的 CSV 表
// 由一行表头和若干数据行组成，所有单元格均以字符串存储
// 每一行的字段数必须等于表头字段数
// Table 不是并发安全的，多个 goroutine 共享时需要调用方自行加锁
type Table struct {
	sep    byte       // 字段分隔符，构造后不可修改
	header []string   // 表头
	rows   [][]string // 数据行（不含表头）
}

// NewTable 创建使用默认分隔符 ',' 的空表
func NewTable() *Table {
	return NewTableWithSeparator(DefaultSeparator)
}

// NewTableWithSeparator 创建使用自定义分隔符的空表
// 参数:
//
//	sep: 字段分隔符，单字节
//
// 返回值:
//
//	*Table: 新创建的空表
func NewTableWithSeparator(sep byte) *Table {
	return &Table{sep: sep}
}

// Separator 返回构造时指定的分隔符
func (t *Table) Separator() byte {
	return t.sep
}

// Reserve 预分配行容量，只影响性能，不影响语义
func (t *Table) Reserve(rowCount int) {
	if rowCount <= cap(t.rows) {
		return
	}
	rows := make([][]string, len(t.rows), rowCount)
	copy(rows, t.rows)
	t.rows = rows
}

// Clear 清空表头和所有数据行，分隔符保持不变
func (t *Table) Clear() {
	t.header = nil
	t.rows = nil
}

// SetHeader 设置表头
// 表中已有数据行且新表头宽度不同时拒绝修改，返回 *SizeMismatchError，原表头保留
// 参数:
//
//	columns: 按顺序排列的列名
//
// 返回值:
//
//	error: 宽度不一致时的错误
func (t *Table) SetHeader(columns []string) error {
	if len(t.rows) > 0 && len(columns) != len(t.rows[0]) {
		return &SizeMismatchError{Row: 0, Got: len(t.rows[0]), Want: len(columns)}
	}
	t.header = cloneRow(columns)
	return nil
}

// Header 返回当前表头，调用方不应修改返回的切片
func (t *Table) Header() []string {
	return t.header
}

// AddRow 追加一行数据
// 行字段数与表头不一致时返回 *SizeMismatchError，且不追加
func (t *Table) AddRow(row []string) error {
	if len(row) != len(t.header) {
		return &SizeMismatchError{Row: -1, Got: len(row), Want: len(t.header)}
	}
	t.rows = append(t.rows, cloneRow(row))
	return nil
}

// Row 返回第 idx 行数据（0 为第一行数据，不含表头）
// 索引越界时返回 *OutOfRangeError
func (t *Table) Row(idx int) ([]string, error) {
	if idx < 0 || idx >= len(t.rows) {
		return nil, &OutOfRangeError{Index: idx, Len: len(t.rows)}
	}
	return t.rows[idx], nil
}

// Rows 返回全部数据行，调用方不应修改返回的切片
func (t *Table) Rows() [][]string {
	return t.rows
}

// Len 返回数据行数
func (t *Table) Len() int {
	return len(t.rows)
}

// Clone 深拷贝整张表
func (t *Table) Clone() *Table {
	c := &Table{sep: t.sep, header: cloneRow(t.header)}
	if t.rows != nil {
		c.rows = make([][]string, len(t.rows))
		for i, row := range t.rows {
			c.rows[i] = cloneRow(row)
		}
	}
	return c
}

// ToDto 转换为格式无关的数据传输对象
func (t *Table) ToDto(tableName string) *dto.TableDto {
	c := t.Clone()
	return &dto.TableDto{
		TableName: tableName,
		Type:      "csv",
		Suffix:    "csv",
		Header:    c.header,
		Rows:      c.rows,
	}
}

// FromDto 用数据传输对象替换表内容
// 任意一行宽度与表头不一致时返回错误，表内容保持不变
func (t *Table) FromDto(d *dto.TableDto) error {
	tmp := NewTableWithSeparator(t.sep)
	tmp.header = cloneRow(d.Header)
	tmp.Reserve(len(d.Rows))
	for i, row := range d.Rows {
		if len(row) != len(tmp.header) {
			return &SizeMismatchError{Row: i, Got: len(row), Want: len(tmp.header)}
		}
		tmp.rows = append(tmp.rows, cloneRow(row))
	}
	t.swap(tmp)
	return nil
}

func (t *Table) swap(other *Table) {
	t.header = other.header
	t.rows = other.rows
}

func cloneRow(row []string) []string {
	if row == nil {
		return nil
	}
	out := make([]string, len(row))
	copy(out, row)
	return out
}
