package state

import (
	"sync"
	"time"
)

// DebounceInterval 代码编辑写入数据库前的空闲等待时间。
// 本地缓冲同步更新，数据库写入在输入停顿 500ms 后才发出一次，
// 以限制打字过程中的写放大。
const DebounceInterval = 500 * time.Millisecond

// Debouncer 把高频的值更新合并为一次延迟回调，回调只携带最新值。
// 每次 Set 都会重置计时器；Flush 立即触发未决的写入；Stop 丢弃它。
type Debouncer struct {
	mu       sync.Mutex
	interval time.Duration
	fn       func(value string)
	timer    *time.Timer
	latest   string
	pending  bool
}

// NewDebouncer 创建一个去抖动器。fn 在计时器到期时以最新值调用一次。
func NewDebouncer(interval time.Duration, fn func(value string)) *Debouncer {
	if fn == nil {
		panic("debounce fn cannot be nil")
	}
	if interval <= 0 {
		interval = DebounceInterval
	}
	return &Debouncer{interval: interval, fn: fn}
}

// Set 记录最新值并重置计时器。
func (d *Debouncer) Set(value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.latest = value
	d.pending = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, d.fire)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return
	}
	value := d.latest
	d.pending = false
	d.mu.Unlock()
	d.fn(value)
}

// Flush 立即触发未决的写入 (如果有)。用于会话切换或连接关闭前落盘。
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	if !d.pending {
		d.mu.Unlock()
		return
	}
	value := d.latest
	d.pending = false
	d.mu.Unlock()
	d.fn(value)
}

// Stop 取消未决的写入且不触发回调。
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = false
}
