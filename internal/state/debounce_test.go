package state

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder 收集去抖动回调的触发记录。
type recorder struct {
	mu     sync.Mutex
	values []string
}

func (r *recorder) record(value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, value)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.values))
	copy(out, r.values)
	return out
}

func TestDebouncer_CoalescesRapidSets(t *testing.T) {
	rec := &recorder{}
	d := NewDebouncer(20*time.Millisecond, rec.record)
	defer d.Stop()

	for i := 0; i < 10; i++ {
		d.Set("v" + string(rune('0'+i)))
	}

	assert.Eventually(t, func() bool {
		return len(rec.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"v9"}, rec.snapshot())

	// 计时器到期后不再重复触发
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, []string{"v9"}, rec.snapshot())
}

func TestDebouncer_FlushFiresImmediately(t *testing.T) {
	rec := &recorder{}
	d := NewDebouncer(time.Hour, rec.record)
	defer d.Stop()

	d.Set("pending write")
	d.Flush()

	assert.Equal(t, []string{"pending write"}, rec.snapshot())

	// 没有未决写入时 Flush 是空操作
	d.Flush()
	assert.Equal(t, []string{"pending write"}, rec.snapshot())
}

func TestDebouncer_StopDiscardsPendingWrite(t *testing.T) {
	rec := &recorder{}
	d := NewDebouncer(10*time.Millisecond, rec.record)

	d.Set("discarded")
	d.Stop()

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, rec.snapshot())

	// Stop 之后 Flush 也不触发
	d.Flush()
	assert.Empty(t, rec.snapshot())
}

func TestDebouncer_SetAfterFlushSchedulesAgain(t *testing.T) {
	rec := &recorder{}
	d := NewDebouncer(10*time.Millisecond, rec.record)
	defer d.Stop()

	d.Set("first")
	d.Flush()
	d.Set("second")

	require.Eventually(t, func() bool {
		return len(rec.snapshot()) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"first", "second"}, rec.snapshot())
}

func TestNewDebouncer_NilCallbackPanics(t *testing.T) {
	assert.Panics(t, func() { NewDebouncer(time.Second, nil) })
}
