package dto

// TableDto 表数据传输对象
// 各格式处理器之间交换表数据的统一格式
type TableDto struct {
	// TableName 表名，通常是不含路径和扩展名的文件名
	TableName string `json:"tableName"`
	// Type 来源格式，如 "csv", "excel", "json", "sqlite"
	Type string `json:"type"`
	// Suffix 文件扩展名，如 "csv", "xlsx", "json", "db"
	Suffix string `json:"suffix"`
	// Header 表头
	Header []string `json:"header"`
	// Rows 数据行，每行字段数与表头一致
	Rows [][]string `json:"rows"`
}
