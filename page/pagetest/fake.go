// Package pagetest 提供内存中的 page.Driver 实现，用于不启动浏览器的单元测试。
package pagetest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/xpzouying/tiktok-reply-mcp/page"
)

// Node 假页面上的一个元素
type Node struct {
	Name   string
	Text   string
	Attrs  map[string]string
	Hidden bool

	// Children 元素内部查询的结果，按选择器表达式索引
	Children map[string][]*Node

	// Extent 固定的可滚动高度；ExtentFn 非空时优先使用，参数为已滚动次数
	Extent   float64
	ExtentFn func(scrolls int) float64

	// 记录
	Scrolls int
	Clicks  int
	Value   string
}

// NewNode 创建带文本的元素
func NewNode(name, text string) *Node {
	return &Node{Name: name, Text: text, Attrs: map[string]string{}, Children: map[string][]*Node{}}
}

// WithChild 给元素追加一个子查询结果
func (n *Node) WithChild(expr string, children ...*Node) *Node {
	if n.Children == nil {
		n.Children = map[string][]*Node{}
	}
	n.Children[expr] = append(n.Children[expr], children...)
	return n
}

// WithAttr 设置属性
func (n *Node) WithAttr(name, value string) *Node {
	if n.Attrs == nil {
		n.Attrs = map[string]string{}
	}
	n.Attrs[name] = value
	return n
}

func (n *Node) String() string {
	return n.Name
}

// Driver 内存实现的 page.Driver，并发安全
type Driver struct {
	mu sync.Mutex

	// Doc 文档级查询结果，按选择器表达式索引
	Doc map[string][]*Node
	// QueryErr 查询某个表达式时返回的错误
	QueryErr map[string]error
	// ClickErr 点击某个元素时返回的错误
	ClickErr map[*Node]error
	// SetTextErr 写入某个元素时返回的错误
	SetTextErr map[*Node]error

	NavigateErr   error
	ScreenshotErr error
	Cookies       []map[string]any

	// OnClick / OnNavigate 在锁外调用，可以修改文档
	OnClick    func(d *Driver, n *Node)
	OnNavigate func(d *Driver, url string)

	Navigations []string
	Clicked     []*Node
	Evals       []string
	Screenshots int
	Closed      bool
}

// New 创建空文档的假 Driver
func New() *Driver {
	return &Driver{
		Doc:        map[string][]*Node{},
		QueryErr:   map[string]error{},
		ClickErr:   map[*Node]error{},
		SetTextErr: map[*Node]error{},
	}
}

// Set 替换文档级查询 expr 的结果
func (d *Driver) Set(expr string, nodes ...*Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Doc[expr] = nodes
}

// Remove 清空文档级查询 expr 的结果
func (d *Driver) Remove(expr string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.Doc, expr)
}

// ClickCount 返回元素被点击的次数
func (d *Driver) ClickCount(n *Node) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return n.Clicks
}

// NavigationCount 返回导航次数
func (d *Driver) NavigationCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Navigations)
}

// IsClosed 是否已关闭
func (d *Driver) IsClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Closed
}

func node(n page.Node) (*Node, error) {
	fn, ok := n.(*Node)
	if !ok || fn == nil {
		return nil, fmt.Errorf("pagetest: unexpected node %T", n)
	}
	return fn, nil
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	d.Navigations = append(d.Navigations, url)
	err := d.NavigateErr
	hook := d.OnNavigate
	d.mu.Unlock()

	if err != nil {
		return err
	}
	if hook != nil {
		hook(d, url)
	}
	return nil
}

func (d *Driver) Query(ctx context.Context, scope page.Node, sel page.Selector) ([]page.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.QueryErr[sel.Expr]; err != nil {
		return nil, err
	}

	var found []*Node
	if scope == nil {
		found = d.Doc[sel.Expr]
	} else {
		root, err := node(scope)
		if err != nil {
			return nil, err
		}
		found = root.Children[sel.Expr]
	}

	out := make([]page.Node, 0, len(found))
	for _, n := range found {
		out = append(out, n)
	}
	return out, nil
}

func (d *Driver) Text(ctx context.Context, n page.Node) (string, error) {
	fn, err := node(n)
	if err != nil {
		return "", err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return fn.Text, ctx.Err()
}

func (d *Driver) Attribute(ctx context.Context, n page.Node, name string) (string, bool, error) {
	fn, err := node(n)
	if err != nil {
		return "", false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := fn.Attrs[name]
	return v, ok, ctx.Err()
}

func (d *Driver) Visible(ctx context.Context, n page.Node) (bool, error) {
	fn, err := node(n)
	if err != nil {
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return !fn.Hidden, ctx.Err()
}

func (d *Driver) Click(ctx context.Context, n page.Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fn, err := node(n)
	if err != nil {
		return err
	}

	d.mu.Lock()
	if err := d.ClickErr[fn]; err != nil {
		d.mu.Unlock()
		return err
	}
	fn.Clicks++
	d.Clicked = append(d.Clicked, fn)
	hook := d.OnClick
	d.mu.Unlock()

	if hook != nil {
		hook(d, fn)
	}
	return nil
}

func (d *Driver) ScrollIntoView(ctx context.Context, n page.Node) error {
	_, err := node(n)
	if err != nil {
		return err
	}
	return ctx.Err()
}

func (d *Driver) ScrollExtent(ctx context.Context, n page.Node) (float64, error) {
	fn, err := node(n)
	if err != nil {
		return 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if fn.ExtentFn != nil {
		return fn.ExtentFn(fn.Scrolls), ctx.Err()
	}
	return fn.Extent, ctx.Err()
}

func (d *Driver) ScrollToBottom(ctx context.Context, n page.Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fn, err := node(n)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	fn.Scrolls++
	return nil
}

func (d *Driver) SetText(ctx context.Context, n page.Node, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fn, err := node(n)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.SetTextErr[fn]; err != nil {
		return err
	}
	fn.Value = text
	return nil
}

func (d *Driver) Eval(ctx context.Context, js string, args ...any) (any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Evals = append(d.Evals, js)
	return nil, ctx.Err()
}

func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ScreenshotErr != nil {
		return nil, d.ScreenshotErr
	}
	d.Screenshots++
	// 最小的 PNG 文件头，足够让类型探测识别
	return []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}, ctx.Err()
}

// ExportCookies 实现 page.CookieExporter
func (d *Driver) ExportCookies() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Cookies == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(d.Cookies)
}

func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Closed = true
	return nil
}

var (
	_ page.Driver         = (*Driver)(nil)
	_ page.CookieExporter = (*Driver)(nil)
)
