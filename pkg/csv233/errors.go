package csv233

import (
	"errors"
	"fmt"
)

var (
	// ErrIO 文件无法打开、创建或读写
	ErrIO = errors.New("csv233: io error")
	// ErrSizeMismatch 行字段数与表头字段数不一致
	ErrSizeMismatch = errors.New("csv233: row size mismatch")
	// ErrOutOfRange 行索引越界
	ErrOutOfRange = errors.New("csv233: row index out of range")
)

// IOError 文件读写错误，携带操作名和路径
type IOError struct {
	Op   string // "load" 或 "save"
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("csv233: %s %q: %v", e.Op, e.Path, e.Err)
}

// Unwrap 返回底层错误，使 errors.Is / errors.As 可以穿透
func (e *IOError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *IOError) Is(target error) bool {
	return target == ErrIO
}

// SizeMismatchError 行字段数与表头不一致
// Row 为数据行索引（0 为第一行数据，不含表头）；AddRow 触发时为 -1
type SizeMismatchError struct {
	Row  int
	Got  int
	Want int
}

func (e *SizeMismatchError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("csv233: row has different size than header (%d != %d)", e.Got, e.Want)
	}
	return fmt.Sprintf("csv233: row[%d] has different size than header (%d != %d)", e.Row, e.Got, e.Want)
}

func (e *SizeMismatchError) Is(target error) bool {
	return target == ErrSizeMismatch
}

// OutOfRangeError 行索引越界
type OutOfRangeError struct {
	Index int
	Len   int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("csv233: index (%d) out of bounds, row count %d", e.Index, e.Len)
}

func (e *OutOfRangeError) Is(target error) bool {
	return target == ErrOutOfRange
}
