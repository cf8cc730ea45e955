package csv233

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/neko233-com/csv233-go/internal/fsutil"
)

// Load 从文件加载表，替换当前表头和全部数据行
// 先解析到临时表，全部成功后再替换；失败时当前表内容不变
// 参数:
//
//	path: CSV 文件路径
//
// 返回值:
//
//	error: 文件无法打开时为 *IOError；某行宽度与表头不一致时为包裹 *SizeMismatchError 的 *IOError
func (t *Table) Load(path string) error {
	file, err := os.Open(path)
	if err != nil {
		getLogger().Error(err, "打开CSV文件失败", "path", path)
		return &IOError{Op: "load", Path: path, Err: err}
	}
	defer file.Close()

	if err := t.Decode(file); err != nil {
		getLogger().Error(err, "解析CSV文件失败", "path", path)
		return &IOError{Op: "load", Path: path, Err: err}
	}

	getLogger().V(1).Info("CSV加载完成", "path", path, "columns", len(t.header), "rows", len(t.rows))
	return nil
}

// Decode 从 r 读取全部内容并解析为表
// 第一行为表头，列数等于第一行中分隔符个数加一，空行为零列
func (t *Table) Decode(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	tmp := NewTableWithSeparator(t.sep)
	// 换行符个数只作为容量提示
	tmp.Reserve(bytes.Count(data, []byte{'\n'}))

	if len(data) == 0 {
		t.swap(tmp)
		return nil
	}

	lines := bytes.Split(data, []byte{'\n'})
	// 以换行结尾的文件最后会多出一个空片段，它不是一行
	if len(lines[len(lines)-1]) == 0 {
		lines = lines[:len(lines)-1]
	}

	columnCount := countColumns(lines[0], t.sep)
	tmp.header = splitLine(lines[0], t.sep, columnCount)

	for i, line := range lines[1:] {
		if got := countColumns(line, t.sep); got != columnCount {
			return &SizeMismatchError{Row: i, Got: got, Want: columnCount}
		}
		tmp.rows = append(tmp.rows, splitLine(line, t.sep, columnCount))
	}

	t.swap(tmp)
	return nil
}

// Save 将表头和全部数据行写入文件
// 字段原样写出，不做任何转义；字段内含分隔符或换行时重新加载会破坏表结构
// 写入先落到同目录临时文件再重命名，失败时不会留下半截文件
// 新文件权限与直接创建一致（0666 &^ umask）；目录不可写时退回为直接覆盖写入
func (t *Table) Save(path string) error {
	var buf bytes.Buffer
	if err := t.Encode(&buf); err != nil {
		return &IOError{Op: "save", Path: path, Err: err}
	}
	if err := fsutil.WriteFile(path, buf.Bytes()); err != nil {
		getLogger().Error(err, "写入CSV文件失败", "path", path)
		return &IOError{Op: "save", Path: path, Err: err}
	}

	getLogger().V(1).Info("CSV保存完成", "path", path, "columns", len(t.header), "rows", len(t.rows))
	return nil
}

// Encode 将表序列化写入 w，每行以 '\n' 结尾
func (t *Table) Encode(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if err := writeLine(bw, t.header, t.sep); err != nil {
		return err
	}
	for _, row := range t.rows {
		if err := writeLine(bw, row, t.sep); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// countColumns 统计一行的字段数：分隔符个数加一，空行为零
func countColumns(line []byte, sep byte) int {
	if len(line) == 0 {
		return 0
	}
	return bytes.Count(line, []byte{sep}) + 1
}

// splitLine 从左到右依次截取 columnCount 个字段
// 每个字段取到下一个分隔符为止（最后一个字段取到行尾），不识别引号
func splitLine(line []byte, sep byte, columnCount int) []string {
	row := make([]string, columnCount)
	pos := 0
	for col := 0; col < columnCount; col++ {
		if pos > len(line) {
			break
		}
		end := bytes.IndexByte(line[pos:], sep)
		if end < 0 || col == columnCount-1 {
			row[col] = string(line[pos:])
			pos = len(line) + 1
			continue
		}
		row[col] = string(line[pos : pos+end])
		pos += end + 1
	}
	return row
}

func writeLine(w *bufio.Writer, fields []string, sep byte) error {
	for i, field := range fields {
		if i > 0 {
			if err := w.WriteByte(sep); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(field); err != nil {
			return err
		}
	}
	if err := w.WriteByte('\n'); err != nil {
		return fmt.Errorf("write line terminator: %w", err)
	}
	return nil
}
