package excel

import (
	"fmt"
	"strings"

	"github.com/neko233-com/csv233-go/pkg/csv233/dto"

	"github.com/xuri/excelize/v2"
)

// ExcelTableHandler Excel 表处理器
// 读取第一个工作表：第 1 行为表头，之后为数据行
// 写入时创建一个以表名命名的工作表，并记录工作表范围
type ExcelTableHandler struct{}

// TypeName 返回处理器类型名
// 返回值:
//
//	string: "excel"
func (h *ExcelTableHandler) TypeName() string {
	return "excel"
}

func (h *ExcelTableHandler) Suffixes() []string {
	return []string{"xlsx"}
}

// ReadToDto 读取 Excel 文件
// excelize 会裁掉行尾的空单元格和末尾的空行，按工作表范围（dimension）补齐；比表头宽的行视为错误
// 参数:
//
//	tableName: 表名
//	path: Excel 文件的完整路径
//
// 返回值:
//
//	*dto.TableDto: 表数据
//	error: 打开或读取失败时的错误
func (h *ExcelTableHandler) ReadToDto(tableName, path string) (*dto.TableDto, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("打开Excel文件失败: %w", err)
	}
	defer f.Close()

	result := &dto.TableDto{
		TableName: tableName,
		Type:      h.TypeName(),
		Suffix:    "xlsx",
	}

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return result, nil
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("读取工作表失败: %w", err)
	}
	dimCols, dimRows, err := sheetExtent(f, sheets[0])
	if err != nil {
		return nil, fmt.Errorf("读取工作表范围失败: %w", err)
	}
	// 空工作表的默认范围为 A1
	if len(rows) == 0 && dimCols <= 1 && dimRows <= 1 {
		return result, nil
	}
	// GetRows 会丢掉末尾的全空行，按工作表范围补齐
	for len(rows) < dimRows {
		rows = append(rows, nil)
	}

	width := dimCols
	if len(rows[0]) > width {
		width = len(rows[0])
	}
	result.Header = padRow(rows[0], width)
	for i, row := range rows[1:] {
		if len(row) > width {
			return nil, fmt.Errorf("第 %d 行有 %d 列，表头只有 %d 列", i+2, len(row), width)
		}
		result.Rows = append(result.Rows, padRow(row, width))
	}
	return result, nil
}

// sheetExtent 返回工作表范围（dimension）右下角的列号和行号，未记录或无法解析时为 0
func sheetExtent(f *excelize.File, sheet string) (int, int, error) {
	ref, err := f.GetSheetDimension(sheet)
	if err != nil || ref == "" {
		return 0, 0, err
	}
	parts := strings.Split(ref, ":")
	col, row, err := excelize.CellNameToCoordinates(parts[len(parts)-1])
	if err != nil {
		return 0, 0, nil
	}
	return col, row, nil
}

func padRow(row []string, width int) []string {
	padded := make([]string, width)
	copy(padded, row)
	return padded
}

// WriteFromDto 写入 Excel 文件，已存在的文件会被覆盖
func (h *ExcelTableHandler) WriteFromDto(d *dto.TableDto, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := SheetName(d.TableName)
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return fmt.Errorf("设置工作表名失败: %w", err)
		}
	}

	if err := writeRow(f, sheet, 1, d.Header); err != nil {
		return err
	}
	for i, row := range d.Rows {
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}

	// 记录完整范围，读取时据此恢复末尾的空行和空列
	dimension := ""
	if len(d.Header) > 0 {
		end, err := excelize.CoordinatesToCellName(len(d.Header), len(d.Rows)+1)
		if err != nil {
			return err
		}
		dimension = "A1:" + end
	}
	if err := f.SetSheetDimension(sheet, dimension); err != nil {
		return fmt.Errorf("设置工作表范围失败: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("保存Excel文件失败: %w", err)
	}
	return nil
}

// SheetName 将表名转换为合法的工作表名
// 非法字符 :\/?*[] 替换为 '_'，去掉首尾单引号，超过 31 个字符时截断，结果为空时使用 "Sheet1"
func SheetName(tableName string) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '_'
		}
		return r
	}, tableName)
	if runes := []rune(name); len(runes) > excelize.MaxSheetNameLength {
		name = string(runes[:excelize.MaxSheetNameLength])
	}
	name = strings.Trim(name, "'")
	if name == "" || strings.EqualFold(name, "Sheet1") {
		return "Sheet1"
	}
	return name
}

func writeRow(f *excelize.File, sheet string, rowNum int, row []string) error {
	if len(row) == 0 {
		return nil
	}
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	values := make([]interface{}, len(row))
	for i, v := range row {
		values[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("写入第 %d 行失败: %w", rowNum, err)
	}
	return nil
}
