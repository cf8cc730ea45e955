// Package csv233 提供了 CSV 表的一次性加载、保存，以及多格式转换和目录热重载功能。
//
// # 功能特性
//
//   - Table：一行表头加若干数据行，所有单元格均为字符串
//   - 单字节分隔符，构造时指定，默认 ','
//   - 不支持引号和转义：字段内的分隔符总是被当作字段边界
//   - 加载失败时表内容保持不变
//   - 多格式处理器（CSV, TSV, Excel, JSON, SQLite）
//   - TableManager：目录并行加载，文件变化时批量热重载
//
// # 快速开始
//
//	t := csv233.NewTable()
//	if err := t.SetHeader([]string{"id", "name"}); err != nil {
//	    return err
//	}
//	if err := t.AddRow([]string{"1", "neko"}); err != nil {
//	    return err
//	}
//	if err := t.Save("student.csv"); err != nil {
//	    return err
//	}
//
//	loaded := csv233.NewTable()
//	if err := loaded.Load("student.csv"); err != nil {
//	    return err
//	}
//
// # 错误
//
// 所有错误均可用 errors.Is 判断类别：ErrIO, ErrSizeMismatch, ErrOutOfRange。
// Load 中某一行宽度不一致时返回的 *IOError 包裹了 *SizeMismatchError。
//
// # 目录热重载
//
//	manager := csv233.NewTableManager("./tables")
//	if err := manager.LoadAll(ctx); err != nil {
//	    return err
//	}
//	manager.StartWatching()
//	defer manager.Close()
//
//	student, ok := manager.Get("student")
//
// # 日志集成
//
// 支持 logr 接口：
//
//	csv233.SetLogger(yourLogger)
package csv233
