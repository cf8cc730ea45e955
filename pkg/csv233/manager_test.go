package csv233

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTables(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return dir
}

func TestTableManager_LoadAll(t *testing.T) {
	dir := writeTables(t, map[string]string{
		"Student.csv":        "id,name\n1,test1\n2,test2\n",
		"Item.tsv":           "id\tname\tvalue\n1\ttest1\t100\n",
		"sub/Kv.json":        `{"header":["key","value"],"rows":[["a","1"]]}`,
		"Broken.csv":         "x,y\n1\n",
		"readme.md":          "not a table",
		"~$Student.xlsx":     "temp",
		"Student.csv~backup": "temp",
	})

	manager := NewTableManager(dir, WithParallelism(2))
	require.NoError(t, manager.LoadAll(context.Background()))

	assert.Equal(t, []string{"Item", "Kv", "Student"}, manager.Names())
	assert.Equal(t, 2, manager.RowCount("Student"))
	assert.Equal(t, 1, manager.RowCount("Item"))
	assert.Equal(t, 0, manager.RowCount("Broken"))

	item, ok := manager.Get("Item")
	require.True(t, ok)
	assert.Equal(t, []string{"id", "name", "value"}, item.Header())

	_, ok = manager.Get("Broken")
	assert.False(t, ok)
}

func TestTableManager_GetReturnsCopy(t *testing.T) {
	dir := writeTables(t, map[string]string{"Student.csv": "id,name\n1,test1\n"})
	manager := NewTableManager(dir)
	require.NoError(t, manager.LoadAll(context.Background()))

	first, ok := manager.Get("Student")
	require.True(t, ok)
	require.NoError(t, first.AddRow([]string{"2", "test2"}))
	first.Rows()[0][1] = "changed"

	second, ok := manager.Get("Student")
	require.True(t, ok)
	assert.Equal(t, [][]string{{"1", "test1"}}, second.Rows())
}

func TestTableManager_Separator(t *testing.T) {
	dir := writeTables(t, map[string]string{"Semi.csv": "a;b\n1;2\n"})
	manager := NewTableManager(dir, WithSeparator(';'))
	require.NoError(t, manager.LoadAll(context.Background()))

	semi, ok := manager.Get("Semi")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, semi.Header())
	assert.Equal(t, byte(';'), semi.Separator())
}

func TestTableManager_Validator(t *testing.T) {
	dir := writeTables(t, map[string]string{
		"Student.csv": "id,name\n1,test1\n",
		"Item.csv":    "id\n1\n",
	})
	manager := NewTableManager(dir)
	manager.RegisterValidator("Student", func(t *Table) error {
		if len(t.Header()) == 0 || t.Header()[0] != "uid" {
			return errors.New("first column must be uid")
		}
		return nil
	})
	require.NoError(t, manager.LoadAll(context.Background()))

	assert.Equal(t, []string{"Item"}, manager.Names())
}

func TestTableManager_ReloadTables(t *testing.T) {
	dir := writeTables(t, map[string]string{"Student.csv": "id,name\n1,test1\n"})
	manager := NewTableManager(dir)

	var mu sync.Mutex
	var calls [][]string
	manager.RegisterReloadFunc(func(names []string) {
		mu.Lock()
		defer mu.Unlock()
		calls = append(calls, names)
	})
	require.NoError(t, manager.LoadAll(context.Background()))

	path := filepath.Join(dir, "Student.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,name\n1,test1\n2,test2\n"), 0644))
	assert.Equal(t, []string{"Student"}, manager.ReloadTables([]string{"Student", "Unknown"}))
	assert.Equal(t, 2, manager.RowCount("Student"))

	// 重载失败时保留旧表
	require.NoError(t, os.WriteFile(path, []byte("id,name\n1\n"), 0644))
	assert.Empty(t, manager.ReloadTables([]string{"Student"}))
	assert.Equal(t, 2, manager.RowCount("Student"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, [][]string{{"Student"}, {"Student"}}, calls)
}

func TestTableManager_LoadAllMissingDir(t *testing.T) {
	manager := NewTableManager(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, manager.LoadAll(context.Background()))
}

func TestTableManager_LoadAllCanceled(t *testing.T) {
	dir := writeTables(t, map[string]string{"Student.csv": "id\n1\n"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	manager := NewTableManager(dir)
	err := manager.LoadAll(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestTableManager_ConcurrentReadWrite(t *testing.T) {
	dir := writeTables(t, map[string]string{
		"A.csv": "id\n1\n",
		"B.csv": "id\n1\n2\n",
	})
	manager := NewTableManager(dir)
	require.NoError(t, manager.LoadAll(context.Background()))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = manager.Names()
				if tbl, ok := manager.Get("B"); ok {
					_ = tbl.Len()
				}
			}
		}()
	}
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			manager.ReloadTables([]string{"A", "B"})
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, manager.RowCount("B"))
}

func TestTableManager_StartWatchingReloads(t *testing.T) {
	dir := writeTables(t, map[string]string{"Student.csv": "id,name\n1,test1\n"})
	manager := NewTableManager(dir, WithReloadTiming(50*time.Millisecond, 0))
	require.NoError(t, manager.LoadAll(context.Background()))

	reloaded := make(chan []string, 4)
	manager.RegisterReloadFunc(func(names []string) { reloaded <- names })

	require.NoError(t, manager.StartWatching())
	require.NoError(t, manager.StartWatching())
	defer manager.Close()

	table := NewTable()
	require.NoError(t, table.SetHeader([]string{"id", "name"}))
	require.NoError(t, table.AddRow([]string{"1", "test1"}))
	require.NoError(t, table.AddRow([]string{"2", "test2"}))
	require.NoError(t, table.Save(filepath.Join(dir, "Student.csv")))

	select {
	case names := <-reloaded:
		assert.Equal(t, []string{"Student"}, names)
	case <-time.After(5 * time.Second):
		t.Fatal("表未被热重载")
	}
	assert.Equal(t, 2, manager.RowCount("Student"))

	require.NoError(t, manager.Close())
	require.NoError(t, manager.Close())
}

func TestTableManager_WatchLoadsFixedAndNewFiles(t *testing.T) {
	dir := writeTables(t, map[string]string{
		"Student.csv": "id,name\n1,test1\n",
		"Broken.csv":  "id,name\n1\n",
	})
	manager := NewTableManager(dir, WithReloadTiming(50*time.Millisecond, 0))
	require.NoError(t, manager.LoadAll(context.Background()))
	require.Equal(t, []string{"Student"}, manager.Names())

	require.NoError(t, manager.StartWatching())
	defer manager.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "Broken.csv"), []byte("id,name\n1,fixed\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Item.csv"), []byte("id\n1\n2\n"), 0644))

	require.Eventually(t, func() bool {
		return manager.RowCount("Broken") == 1 && manager.RowCount("Item") == 2
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, []string{"Broken", "Item", "Student"}, manager.Names())
}
