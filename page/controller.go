package page

import (
	"context"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	// ErrStaleHandle 句柄在一次导航之前获取，导航后已失效
	ErrStaleHandle = errors.New("page: stale element handle")
	// ErrInvalidHandle 零值句柄
	ErrInvalidHandle = errors.New("page: invalid element handle")
)

// Handle 绑定到页面代数（generation）的元素句柄。
// 每次导航都会推进代数，旧句柄随之失效，不会被误用到新页面上。
type Handle struct {
	node Node
	gen  uint64
}

// IsZero 句柄是否为空
func (h Handle) IsZero() bool {
	return h.node == nil
}

// Generation 句柄创建时的页面代数
func (h Handle) Generation() uint64 {
	return h.gen
}

// Controller 包装浏览器 Driver，对外只暴露带代数校验的句柄
type Controller struct {
	drv Driver
	gen atomic.Uint64
}

// NewController 创建页面控制器
func NewController(drv Driver) *Controller {
	c := &Controller{drv: drv}
	c.gen.Store(1)
	return c
}

// Generation 当前页面代数
func (c *Controller) Generation() uint64 {
	return c.gen.Load()
}

// Driver 返回底层 Driver
func (c *Controller) Driver() Driver {
	return c.drv
}

// Wrap 把当前页面上的 Node 包装为句柄
func (c *Controller) Wrap(n Node) Handle {
	return Handle{node: n, gen: c.gen.Load()}
}

func (c *Controller) resolve(h Handle) (Node, error) {
	if h.node == nil {
		return nil, ErrInvalidHandle
	}
	if h.gen != c.gen.Load() {
		return nil, ErrStaleHandle
	}
	return h.node, nil
}

// Valid 句柄是否仍可用于当前页面
func (c *Controller) Valid(h Handle) bool {
	_, err := c.resolve(h)
	return err == nil
}

// Navigate 导航到 url。导航一旦开始，之前获取的所有句柄都失效。
func (c *Controller) Navigate(ctx context.Context, url string) error {
	gen := c.gen.Add(1)
	logrus.WithFields(logrus.Fields{"url": url, "generation": gen}).Debug("开始导航")

	if err := c.drv.Navigate(ctx, url); err != nil {
		return errors.Wrapf(err, "navigate %s", url)
	}
	return nil
}

// Query 在 scope 内（nil 表示整个文档）立即查找匹配 sel 的元素
func (c *Controller) Query(ctx context.Context, scope *Handle, sel Selector) ([]Handle, error) {
	var root Node
	if scope != nil {
		n, err := c.resolve(*scope)
		if err != nil {
			return nil, err
		}
		root = n
	}

	gen := c.gen.Load()
	nodes, err := c.drv.Query(ctx, root, sel)
	if err != nil {
		return nil, err
	}

	handles := make([]Handle, 0, len(nodes))
	for _, n := range nodes {
		handles = append(handles, Handle{node: n, gen: gen})
	}
	return handles, nil
}

// CurrentHandleSet 返回第一条有匹配的策略对应的全部元素
func (c *Controller) CurrentHandleSet(ctx context.Context, strategies Strategies) ([]Handle, error) {
	for _, sel := range strategies {
		handles, err := c.Query(ctx, nil, sel)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logrus.Debugf("选择器 %s 查询失败: %v", sel, err)
			continue
		}
		if len(handles) > 0 {
			return handles, nil
		}
	}
	return nil, nil
}

// Text 读取元素文本
func (c *Controller) Text(ctx context.Context, h Handle) (string, error) {
	n, err := c.resolve(h)
	if err != nil {
		return "", err
	}
	return c.drv.Text(ctx, n)
}

// Attribute 读取元素属性
func (c *Controller) Attribute(ctx context.Context, h Handle, name string) (string, bool, error) {
	n, err := c.resolve(h)
	if err != nil {
		return "", false, err
	}
	return c.drv.Attribute(ctx, n, name)
}

// Visible 元素是否可见
func (c *Controller) Visible(ctx context.Context, h Handle) (bool, error) {
	n, err := c.resolve(h)
	if err != nil {
		return false, err
	}
	return c.drv.Visible(ctx, n)
}

// Click 点击元素
func (c *Controller) Click(ctx context.Context, h Handle) error {
	n, err := c.resolve(h)
	if err != nil {
		return err
	}
	return c.drv.Click(ctx, n)
}

// ScrollIntoView 将元素滚动到视口中央
func (c *Controller) ScrollIntoView(ctx context.Context, h Handle) error {
	n, err := c.resolve(h)
	if err != nil {
		return err
	}
	return c.drv.ScrollIntoView(ctx, n)
}

// ScrollExtent 读取容器当前可滚动高度
func (c *Controller) ScrollExtent(ctx context.Context, h Handle) (float64, error) {
	n, err := c.resolve(h)
	if err != nil {
		return 0, err
	}
	return c.drv.ScrollExtent(ctx, n)
}

// ScrollToBottom 把容器滚动到当前底部，返回滚动后立即读取的高度
func (c *Controller) ScrollToBottom(ctx context.Context, h Handle) (float64, error) {
	n, err := c.resolve(h)
	if err != nil {
		return 0, err
	}
	if err := c.drv.ScrollToBottom(ctx, n); err != nil {
		return 0, err
	}
	return c.drv.ScrollExtent(ctx, n)
}

// SetEditableText 向可编辑元素写入文本
func (c *Controller) SetEditableText(ctx context.Context, h Handle, text string) error {
	n, err := c.resolve(h)
	if err != nil {
		return err
	}
	return c.drv.SetText(ctx, n, text)
}

// RunScript 在页面上执行脚本
func (c *Controller) RunScript(ctx context.Context, js string, args ...any) (any, error) {
	return c.drv.Eval(ctx, js, args...)
}

// Screenshot 截取当前页面
func (c *Controller) Screenshot(ctx context.Context) ([]byte, error) {
	return c.drv.Screenshot(ctx)
}

// Close 关闭底层浏览器并让所有句柄失效
func (c *Controller) Close() error {
	c.gen.Add(1)
	return c.drv.Close()
}
