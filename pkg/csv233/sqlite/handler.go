package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/neko233-com/csv233-go/pkg/csv233/dto"

	_ "modernc.org/sqlite"
)

// SqliteTableHandler SQLite 表处理器
// 每张表对应数据库中同名的一张表，每个表头字段对应一个 TEXT 列
// 数据库文件可以同时保存多张表
// 表头中有空列名或重复列名（不区分大小写）的表无法写入
type SqliteTableHandler struct{}

// TypeName 返回处理器类型名
// 返回值:
//
//	string: "sqlite"
func (h *SqliteTableHandler) TypeName() string {
	return "sqlite"
}

func (h *SqliteTableHandler) Suffixes() []string {
	return []string{"db", "sqlite"}
}

// ReadToDto 读取数据库中名为 tableName 的表，按 rowid 顺序返回
// 数据库文件不存在时返回错误，不会创建空库
func (h *SqliteTableHandler) ReadToDto(tableName, path string) (*dto.TableDto, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("打开SQLite数据库失败: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("打开SQLite数据库失败: %w", err)
	}
	defer db.Close()

	rows, err := db.Query("SELECT * FROM " + quoteIdent(tableName) + " ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("查询表 %s 失败: %w", tableName, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &dto.TableDto{
		TableName: tableName,
		Type:      h.TypeName(),
		Suffix:    "db",
		Header:    columns,
	}

	for rows.Next() {
		values := make([]sql.NullString, len(columns))
		dest := make([]interface{}, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("读取表 %s 数据失败: %w", tableName, err)
		}
		row := make([]string, len(columns))
		for i, v := range values {
			row[i] = v.String
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// WriteFromDto 在一个事务中删除并重建表，然后写入全部数据行
// 表头字段即列名：不能为空，且不能重复（SQLite 列名不区分大小写）
func (h *SqliteTableHandler) WriteFromDto(d *dto.TableDto, path string) error {
	if d.TableName == "" {
		return fmt.Errorf("写入SQLite需要表名")
	}
	if len(d.Header) == 0 {
		return fmt.Errorf("表 %s 没有表头，无法建表", d.TableName)
	}
	if err := checkColumnNames(d.Header); err != nil {
		return fmt.Errorf("表 %s 无法建表: %w", d.TableName, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("打开SQLite数据库失败: %w", err)
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	table := quoteIdent(d.TableName)
	if _, err := tx.Exec("DROP TABLE IF EXISTS " + table); err != nil {
		return fmt.Errorf("删除旧表失败: %w", err)
	}

	columns := make([]string, len(d.Header))
	placeholders := make([]string, len(d.Header))
	for i, name := range d.Header {
		columns[i] = quoteIdent(name) + " TEXT"
		placeholders[i] = "?"
	}
	if _, err := tx.Exec("CREATE TABLE " + table + " (" + strings.Join(columns, ", ") + ")"); err != nil {
		return fmt.Errorf("建表失败: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO " + table + " VALUES (" + strings.Join(placeholders, ", ") + ")")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, row := range d.Rows {
		if len(row) != len(d.Header) {
			return fmt.Errorf("第 %d 行有 %d 列，表头有 %d 列", i, len(row), len(d.Header))
		}
		args := make([]interface{}, len(row))
		for j, v := range row {
			args[j] = v
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("写入第 %d 行失败: %w", i, err)
		}
	}

	return tx.Commit()
}

func checkColumnNames(header []string) error {
	seen := make(map[string]int, len(header))
	for i, name := range header {
		if name == "" {
			return fmt.Errorf("第 %d 列列名为空", i+1)
		}
		key := strings.ToLower(name)
		if prev, dup := seen[key]; dup {
			return fmt.Errorf("第 %d 列列名 %q 与第 %d 列重复", i+1, name, prev+1)
		}
		seen[key] = i
	}
	return nil
}

// quoteIdent 用双引号包裹 SQLite 标识符
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
