package page

import (
	"context"
	"time"
)

// Node 浏览器中一个活动元素的不透明引用，只有创建它的 Driver 能解释它
type Node interface{}

// Driver 浏览器自动化的底层能力。
// 所有方法都会阻塞直到浏览器完成操作或 ctx 结束。
type Driver interface {
	Navigate(ctx context.Context, url string) error
	// Query 立即查询（不等待），scope 为 nil 时在整个文档中查找
	Query(ctx context.Context, scope Node, sel Selector) ([]Node, error)
	Text(ctx context.Context, n Node) (string, error)
	Attribute(ctx context.Context, n Node, name string) (string, bool, error)
	Visible(ctx context.Context, n Node) (bool, error)
	Click(ctx context.Context, n Node) error
	ScrollIntoView(ctx context.Context, n Node) error
	ScrollExtent(ctx context.Context, n Node) (float64, error)
	ScrollToBottom(ctx context.Context, n Node) error
	// SetText 直接写入内容并派发 input/change 事件
	SetText(ctx context.Context, n Node, text string) error
	Eval(ctx context.Context, js string, args ...any) (any, error)
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// CookieExporter 能导出当前浏览器 cookies 的 Driver
type CookieExporter interface {
	ExportCookies() ([]byte, error)
}

// Sleep 等待 d，ctx 结束时提前返回 ctx.Err()
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
