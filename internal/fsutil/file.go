// Package fsutil 文件写入工具
package fsutil

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/natefinch/atomic"
)

// WriteFile 原子写入文件：先写同目录临时文件再重命名
// 目标文件不存在时先以 0666 创建（受 umask 约束），重命名后保留该权限
// 目录不可写导致临时文件无法创建时，退回为直接截断写入目标文件
func WriteFile(path string, data []byte) error {
	created := false
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0666)
		if err != nil && !errors.Is(err, os.ErrExist) {
			return err
		}
		if err == nil {
			created = true
			if err := f.Close(); err != nil {
				return err
			}
		}
	}

	atomicErr := atomic.WriteFile(path, bytes.NewReader(data))
	if atomicErr == nil {
		return nil
	}
	if err := os.WriteFile(path, data, 0666); err != nil {
		if created {
			_ = os.Remove(path)
		}
		return fmt.Errorf("%w; on non-atomic retry: %v", atomicErr, err)
	}
	return nil
}

// FileExists 文件是否存在
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
