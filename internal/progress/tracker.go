package progress

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Tracker 批量转换进度
type Tracker struct {
	bar       *progressbar.ProgressBar
	out       io.Writer
	current   atomic.Int64
	failed    atomic.Int64
	startTime time.Time
}

// New 创建进度条，out 为 nil 时输出到 stderr
func New(total int, description string, out io.Writer) *Tracker {
	if out == nil {
		out = os.Stderr
	}
	return &Tracker{
		out:       out,
		startTime: time.Now(),
		bar: progressbar.NewOptions(
			total,
			progressbar.OptionSetWriter(out),
			progressbar.OptionSetDescription(description),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("files"),
			progressbar.OptionSetRenderBlankState(true),
		),
	}
}

// Done 记录一个文件处理完成
func (t *Tracker) Done(ok bool) {
	t.current.Add(1)
	if !ok {
		t.failed.Add(1)
	}
	_ = t.bar.Add(1)
}

// Current 已处理的文件数
func (t *Tracker) Current() int64 {
	return t.current.Load()
}

// Failed 失败的文件数
func (t *Tracker) Failed() int64 {
	return t.failed.Load()
}

// Finish 结束进度条并打印汇总
func (t *Tracker) Finish() {
	_ = t.bar.Finish()

	elapsed := time.Since(t.startTime)
	fmt.Fprintln(t.out)
	fmt.Fprintf(t.out, "Converted %d files (%d failed) in %s\n",
		t.current.Load()-t.failed.Load(), t.failed.Load(), elapsed.Round(time.Millisecond))
}
