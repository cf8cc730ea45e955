package csv233

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	// ReloadBatchDelay 批量重载延迟时间（收集变更文件）
	ReloadBatchDelay = 500 * time.Millisecond

	// ReloadCooldown 重载冷却时间（避免频繁重载）
	ReloadCooldown = 300 * time.Millisecond
)

// hotReloadState 热重载状态管理
type hotReloadState struct {
	mutex          sync.Mutex
	pendingReloads map[string]bool // 待重载的表名集合
	timer          *time.Timer     // 批量重载定时器
	lastReloadTime time.Time       // 上次重载时间
	isReloading    bool            // 是否正在重载
	stopped        bool
	batchDelay     time.Duration
	cooldown       time.Duration
	reload         func(names []string)
}

func newHotReloadState(batchDelay, cooldown time.Duration, reload func(names []string)) *hotReloadState {
	return &hotReloadState{
		pendingReloads: make(map[string]bool),
		batchDelay:     batchDelay,
		cooldown:       cooldown,
		reload:         reload,
	}
}

// addPendingReload 添加待重载的表，并重新开始批量延迟计时
func (hrs *hotReloadState) addPendingReload(name string) {
	hrs.mutex.Lock()
	defer hrs.mutex.Unlock()

	if hrs.stopped {
		return
	}
	hrs.pendingReloads[name] = true

	if hrs.timer != nil {
		hrs.timer.Stop()
	}
	hrs.timer = time.AfterFunc(hrs.batchDelay, hrs.triggerBatchReload)

	getLogger().V(1).Info("添加待重载表", "table", name, "pendingCount", len(hrs.pendingReloads))
}

// triggerBatchReload 触发批量重载
func (hrs *hotReloadState) triggerBatchReload() {
	hrs.mutex.Lock()
	if hrs.stopped {
		hrs.mutex.Unlock()
		return
	}

	// 检查冷却时间
	sinceLast := time.Since(hrs.lastReloadTime)
	if sinceLast < hrs.cooldown {
		remaining := hrs.cooldown - sinceLast
		getLogger().V(1).Info("热重载冷却中，延迟重载", "remainingMs", remaining.Milliseconds())
		hrs.timer = time.AfterFunc(remaining, hrs.triggerBatchReload)
		hrs.mutex.Unlock()
		return
	}

	if hrs.isReloading {
		hrs.timer = time.AfterFunc(100*time.Millisecond, hrs.triggerBatchReload)
		hrs.mutex.Unlock()
		return
	}

	names := make([]string, 0, len(hrs.pendingReloads))
	for name := range hrs.pendingReloads {
		names = append(names, name)
	}
	hrs.pendingReloads = make(map[string]bool)
	hrs.isReloading = true
	hrs.mutex.Unlock()

	if len(names) > 0 {
		start := time.Now()
		hrs.reload(names)
		getLogger().Info("批量热重载完成", "tableCount", len(names), "elapsedMs", time.Since(start).Milliseconds())
	}

	hrs.mutex.Lock()
	hrs.lastReloadTime = time.Now()
	hrs.isReloading = false
	hrs.mutex.Unlock()
}

func (hrs *hotReloadState) stop() {
	hrs.mutex.Lock()
	defer hrs.mutex.Unlock()
	hrs.stopped = true
	if hrs.timer != nil {
		hrs.timer.Stop()
	}
}

// StartWatching 启动文件监听（带批量重载和冷却机制）
// 特性：
// - 批量重载：收集 batchDelay 内的所有变更，一次性重载
// - 冷却机制：两次重载之间至少间隔 cooldown
// - 重载已发现的表文件，新增的表文件也会被加载，忽略临时文件
// - 递归监听所有子目录
// 返回值:
//
//	error: 启动监听过程中的错误
func (m *TableManager) StartWatching() error {
	m.watchMutex.Lock()
	defer m.watchMutex.Unlock()

	if m.watcher != nil {
		getLogger().Info("文件监听已启动")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("创建文件监听器失败: %w", err)
	}

	err = filepath.WalkDir(m.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		_ = watcher.Close()
		return fmt.Errorf("添加监听目录失败: %w", err)
	}

	m.watcher = watcher
	m.hotReload = newHotReloadState(m.batchDelay, m.cooldown, func(names []string) {
		m.ReloadTables(names)
	})
	m.done = make(chan struct{})

	go m.watchLoop(watcher, m.hotReload, m.done)

	getLogger().Info("文件监听已启动（批量重载模式）",
		"dir", m.dir,
		"batchDelay", m.batchDelay.Milliseconds(),
		"cooldown", m.cooldown.Milliseconds())
	return nil
}

func (m *TableManager) watchLoop(watcher *fsnotify.Watcher, hrs *hotReloadState, done chan struct{}) {
	defer close(done)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if isTempFile(event.Name) {
				continue
			}
			if _, ok := m.registry.HandlerFor(event.Name); !ok {
				continue
			}

			file := filepath.Clean(event.Name)
			name := TableNameOf(file)
			m.mutex.Lock()
			path, known := m.paths[name]
			if !known {
				m.paths[name] = file
				path = file
			}
			m.mutex.Unlock()

			// 同名表以先发现的文件为准
			if filepath.Clean(path) != file {
				continue
			}
			if known {
				getLogger().Info("检测到表文件变化", "file", event.Name, "table", name)
			} else {
				getLogger().Info("检测到新表文件", "file", event.Name, "table", name)
			}
			hrs.addPendingReload(name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			getLogger().Error(err, "文件监听错误")
		}
	}
}

// Close 停止文件监听，未启动监听时直接返回
func (m *TableManager) Close() error {
	m.watchMutex.Lock()
	defer m.watchMutex.Unlock()

	if m.watcher == nil {
		return nil
	}
	m.hotReload.stop()
	err := m.watcher.Close()
	<-m.done

	m.watcher = nil
	m.hotReload = nil
	return err
}

// isTempFile 编辑器和 Office 产生的临时文件
func isTempFile(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, "~$") ||
		strings.HasPrefix(base, ".") ||
		strings.Contains(base, "~") ||
		strings.Contains(base, "#")
}
