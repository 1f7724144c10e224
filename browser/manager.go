package browser

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Lease 限制同时占用浏览器的数量。
// 每个会话持有一个容量为 1 的 Lease，保证同一时间只有一个阶段在驱动页面；
// 进程级的 Lease 限制同时打开的浏览器实例数。
type Lease struct {
	mu    sync.Mutex
	cond  *sync.Cond // 条件变量，用于等待占用被释放
	max   int
	inUse int
}

// NewLease 创建容量为 max 的 Lease，max <= 0 表示不限制
func NewLease(max int) *Lease {
	l := &Lease{max: max}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Acquire 获取一个占用（会阻塞直到可用或 ctx 结束）。
// 返回的 release 函数必须调用，重复调用无副作用。
func (l *Lease) Acquire(ctx context.Context) (func(), error) {
	if l == nil || l.max <= 0 {
		return func() {}, ctx.Err()
	}

	// ctx 结束时唤醒所有等待者，让它们重新检查 ctx
	stop := context.AfterFunc(ctx, func() {
		l.mu.Lock()
		l.cond.Broadcast()
		l.mu.Unlock()
	})
	defer stop()

	l.mu.Lock()
	defer l.mu.Unlock()

	for l.inUse >= l.max {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		logrus.Debug("浏览器正在使用中，等待释放...")
		l.cond.Wait()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.inUse++
	var once sync.Once
	release := func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.inUse--
			l.cond.Signal()
		})
	}
	return release, nil
}

// InUse 当前占用数
func (l *Lease) InUse() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inUse
}
