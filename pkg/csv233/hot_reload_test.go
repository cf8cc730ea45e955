package csv233

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reloadRecorder struct {
	mu    sync.Mutex
	calls [][]string
	at    []time.Time
}

func (r *reloadRecorder) reload(names []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	r.calls = append(r.calls, sorted)
	r.at = append(r.at, time.Now())
}

func (r *reloadRecorder) snapshot() ([][]string, []time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.calls...), append([]time.Time(nil), r.at...)
}

func TestHotReloadState_AddPending(t *testing.T) {
	rec := &reloadRecorder{}
	hrs := newHotReloadState(time.Hour, 0, rec.reload)
	defer hrs.stop()

	names := []string{"Table1", "Table2", "Table3"}
	for _, name := range names {
		hrs.addPendingReload(name)
	}
	hrs.addPendingReload("Table1")

	hrs.mutex.Lock()
	defer hrs.mutex.Unlock()
	assert.Len(t, hrs.pendingReloads, 3)
	for _, name := range names {
		assert.True(t, hrs.pendingReloads[name], name)
	}
}

func TestHotReloadState_Batching(t *testing.T) {
	rec := &reloadRecorder{}
	hrs := newHotReloadState(50*time.Millisecond, 0, rec.reload)
	defer hrs.stop()

	hrs.addPendingReload("A")
	hrs.addPendingReload("B")
	hrs.addPendingReload("A")

	require.Eventually(t, func() bool {
		calls, _ := rec.snapshot()
		return len(calls) == 1
	}, 2*time.Second, 10*time.Millisecond)

	calls, _ := rec.snapshot()
	assert.Equal(t, [][]string{{"A", "B"}}, calls)
}

func TestHotReloadState_Cooldown(t *testing.T) {
	rec := &reloadRecorder{}
	cooldown := 200 * time.Millisecond
	hrs := newHotReloadState(10*time.Millisecond, cooldown, rec.reload)
	defer hrs.stop()

	hrs.addPendingReload("A")
	require.Eventually(t, func() bool {
		calls, _ := rec.snapshot()
		return len(calls) == 1
	}, 2*time.Second, 5*time.Millisecond)

	hrs.addPendingReload("B")
	require.Eventually(t, func() bool {
		calls, _ := rec.snapshot()
		return len(calls) == 2
	}, 2*time.Second, 5*time.Millisecond)

	calls, at := rec.snapshot()
	assert.Equal(t, [][]string{{"A"}, {"B"}}, calls)
	// 第二次重载的开始时间距第一次重载结束不少于冷却时间
	assert.GreaterOrEqual(t, at[1].Sub(at[0]), cooldown)
}

func TestHotReloadState_Stop(t *testing.T) {
	rec := &reloadRecorder{}
	hrs := newHotReloadState(20*time.Millisecond, 0, rec.reload)

	hrs.addPendingReload("A")
	hrs.stop()
	hrs.addPendingReload("B")

	time.Sleep(100 * time.Millisecond)
	calls, _ := rec.snapshot()
	assert.Empty(t, calls)
}

func TestIsTempFile(t *testing.T) {
	assert.True(t, isTempFile("/x/~$Item.xlsx"))
	assert.True(t, isTempFile("Item.csv~"))
	assert.True(t, isTempFile("#Item.csv#"))
	assert.True(t, isTempFile(".Item.csv.swp"))
	assert.False(t, isTempFile("/x/Item.csv"))
}
