package csv233

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"
)

// TableValidator 表校验函数，返回 nil 表示校验通过
// 校验失败的表不会替换已加载的旧表
type TableValidator func(t *Table) error

// TableManager 目录表管理器，支持并行加载和热重载
// 目录中每个受支持格式的文件对应一张表，表名为不含扩展名的文件名
// 对外只返回表的副本，内部表不会被调用方修改
type TableManager struct {
	mutex       sync.RWMutex
	tables      map[string]*Table           // 表名 -> 表
	paths       map[string]string           // 表名 -> 文件路径
	validators  map[string][]TableValidator // 表名 -> 校验函数
	reloadFuncs []func(names []string)      // 重载完成回调
	dir         string
	registry    *Registry
	sep         byte
	parallelism int
	batchDelay  time.Duration
	cooldown    time.Duration

	watchMutex sync.Mutex
	watcher    *fsnotify.Watcher
	hotReload  *hotReloadState
	done       chan struct{}
}

// ManagerOption 表管理器选项
type ManagerOption func(*TableManager)

// WithSeparator 设置 csv/txt 文件的分隔符
func WithSeparator(sep byte) ManagerOption {
	return func(m *TableManager) { m.sep = sep }
}

// WithParallelism 设置并行加载的最大 goroutine 数
func WithParallelism(n int) ManagerOption {
	return func(m *TableManager) {
		if n > 0 {
			m.parallelism = n
		}
	}
}

// WithReloadTiming 设置热重载的批量延迟和冷却时间
func WithReloadTiming(batchDelay, cooldown time.Duration) ManagerOption {
	return func(m *TableManager) {
		if batchDelay > 0 {
			m.batchDelay = batchDelay
		}
		if cooldown >= 0 {
			m.cooldown = cooldown
		}
	}
}

// WithRegistry 使用自定义的处理器注册表
func WithRegistry(r *Registry) ManagerOption {
	return func(m *TableManager) { m.registry = r }
}

// NewTableManager 创建新的表管理器
// 不会自动加载，需要调用 LoadAll
// 参数:
//
//	dir: 表文件所在目录
//	opts: 可选配置
//
// 返回值:
//
//	*TableManager: 新创建的表管理器
func NewTableManager(dir string, opts ...ManagerOption) *TableManager {
	m := &TableManager{
		tables:      make(map[string]*Table),
		paths:       make(map[string]string),
		validators:  make(map[string][]TableValidator),
		dir:         dir,
		sep:         DefaultSeparator,
		parallelism: runtime.NumCPU(),
		batchDelay:  ReloadBatchDelay,
		cooldown:    ReloadCooldown,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = NewDefaultRegistry(m.sep)
	}
	return m
}

// Dir 返回管理的目录
func (m *TableManager) Dir() string {
	return m.dir
}

// LoadAll 从目录并行加载所有受支持格式的表
// 单个文件加载失败会记录日志并跳过，不影响其他文件；只有遍历目录失败或 ctx 取消时返回错误
// 返回值:
//
//	error: 遍历目录的错误或 ctx 的错误
func (m *TableManager) LoadAll(ctx context.Context) error {
	files := make(map[string]string)
	err := filepath.WalkDir(m.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || isTempFile(path) {
			return nil
		}
		if _, ok := m.registry.HandlerFor(path); !ok {
			return nil
		}
		name := TableNameOf(path)
		if prev, dup := files[name]; dup {
			getLogger().Info("表名重复，忽略后者", "table", name, "kept", prev, "ignored", path)
			return nil
		}
		files[name] = path
		return nil
	})
	if err != nil {
		return fmt.Errorf("遍历表目录失败: %w", err)
	}

	// 加载失败的文件也记录路径，修复后可以被热重载
	m.mutex.Lock()
	for name, path := range files {
		if _, ok := m.paths[name]; !ok {
			m.paths[name] = path
		}
	}
	m.mutex.Unlock()

	loaded := m.loadFiles(ctx, files)
	if err := ctx.Err(); err != nil {
		return err
	}

	getLogger().Info("表目录加载完成", "dir", m.dir, "total", len(files), "success", len(loaded))
	m.notifyReload(loaded)
	return nil
}

// ReloadTables 重新加载指定的表
// 只重载 LoadAll 发现过或监听到的文件，未知表名会被忽略；返回成功重载的表名
func (m *TableManager) ReloadTables(names []string) []string {
	files := make(map[string]string, len(names))
	m.mutex.RLock()
	for _, name := range names {
		if path, ok := m.paths[name]; ok {
			files[name] = path
		}
	}
	m.mutex.RUnlock()

	loaded := m.loadFiles(context.Background(), files)
	getLogger().Info("批量重载完成", "total", len(names), "success", len(loaded), "failed", len(names)-len(loaded))
	m.notifyReload(loaded)
	return loaded
}

// loadFiles 并行读取文件，全部校验通过的表在锁内一次性替换
func (m *TableManager) loadFiles(ctx context.Context, files map[string]string) []string {
	type result struct {
		name  string
		path  string
		table *Table
	}

	results := make(chan result, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.parallelism)

	for name, path := range files {
		name, path := name, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			t, err := m.registry.ReadTable(path, m.sep)
			if err != nil {
				getLogger().Error(err, "加载表失败", "table", name, "path", path)
				return nil
			}
			if err := m.validate(name, t); err != nil {
				getLogger().Error(err, "表校验失败", "table", name, "path", path)
				return nil
			}
			results <- result{name: name, path: path, table: t}
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	loaded := make([]string, 0, len(files))
	m.mutex.Lock()
	for r := range results {
		m.tables[r.name] = r.table
		m.paths[r.name] = r.path
		loaded = append(loaded, r.name)
		getLogger().V(1).Info("表加载完成", "table", r.name, "rows", r.table.Len())
	}
	m.mutex.Unlock()

	sort.Strings(loaded)
	return loaded
}

func (m *TableManager) validate(name string, t *Table) error {
	m.mutex.RLock()
	validators := append([]TableValidator(nil), m.validators[name]...)
	m.mutex.RUnlock()

	for _, v := range validators {
		if err := v(t); err != nil {
			return err
		}
	}
	return nil
}

func (m *TableManager) notifyReload(names []string) {
	if len(names) == 0 {
		return
	}
	m.mutex.RLock()
	var funcs []func([]string)
	funcs = append(funcs, m.reloadFuncs...)
	m.mutex.RUnlock()

	for _, fn := range funcs {
		// 每个回调拿到独立副本，防止数据污染
		namesCopy := make([]string, len(names))
		copy(namesCopy, names)
		fn(namesCopy)
	}
}

// RegisterValidator 为指定表注册校验函数
func (m *TableManager) RegisterValidator(name string, v TableValidator) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.validators[name] = append(m.validators[name], v)
}

// RegisterReloadFunc 注册加载/重载完成后的回调，参数为本次成功加载的表名
func (m *TableManager) RegisterReloadFunc(fn func(names []string)) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.reloadFuncs = append(m.reloadFuncs, fn)
}

// Get 获取表的副本
func (m *TableManager) Get(name string) (*Table, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	t, ok := m.tables[name]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// Names 返回已加载的表名（排序后）
func (m *TableManager) Names() []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	names := make([]string, 0, len(m.tables))
	for name := range m.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RowCount 返回表的数据行数，表不存在时为 0
func (m *TableManager) RowCount(name string) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if t, ok := m.tables[name]; ok {
		return t.Len()
	}
	return 0
}
