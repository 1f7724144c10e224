package page

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/pkg/errors"
)

// RodDriver 基于 go-rod 的 Driver 实现
type RodDriver struct {
	page    *rod.Page
	closer  func()
	navWait time.Duration
}

// NewRodDriver 包装 rod 页面，closer 在 Close 时调用用于释放浏览器
func NewRodDriver(page *rod.Page, closer func()) *RodDriver {
	return &RodDriver{
		page:    page,
		closer:  closer,
		navWait: 60 * time.Second,
	}
}

// Page 返回底层 rod 页面
func (d *RodDriver) Page() *rod.Page {
	return d.page
}

func element(n Node) (*rod.Element, error) {
	el, ok := n.(*rod.Element)
	if !ok || el == nil {
		return nil, fmt.Errorf("page: unexpected node type %T", n)
	}
	return el, nil
}

func (d *RodDriver) Navigate(ctx context.Context, url string) error {
	// 为导航创建独立的超时 context
	navCtx, cancel := context.WithTimeout(ctx, d.navWait)
	defer cancel()

	p := d.page.Context(navCtx)
	if err := p.Navigate(url); err != nil {
		return err
	}
	return p.WaitLoad()
}

func (d *RodDriver) Query(ctx context.Context, scope Node, sel Selector) ([]Node, error) {
	var (
		els rod.Elements
		err error
	)

	if scope == nil {
		p := d.page.Context(ctx)
		if sel.Kind == KindXPath {
			els, err = p.ElementsX(sel.Expr)
		} else {
			els, err = p.Elements(sel.Expr)
		}
	} else {
		root, rerr := element(scope)
		if rerr != nil {
			return nil, rerr
		}
		root = root.Context(ctx)
		if sel.Kind == KindXPath {
			els, err = root.ElementsX(sel.Expr)
		} else {
			els, err = root.Elements(sel.Expr)
		}
	}
	if err != nil {
		return nil, err
	}

	nodes := make([]Node, 0, len(els))
	for _, el := range els {
		nodes = append(nodes, el)
	}
	return nodes, nil
}

func (d *RodDriver) Text(ctx context.Context, n Node) (string, error) {
	el, err := element(n)
	if err != nil {
		return "", err
	}
	return el.Context(ctx).Text()
}

func (d *RodDriver) Attribute(ctx context.Context, n Node, name string) (string, bool, error) {
	el, err := element(n)
	if err != nil {
		return "", false, err
	}
	v, err := el.Context(ctx).Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (d *RodDriver) Visible(ctx context.Context, n Node) (bool, error) {
	el, err := element(n)
	if err != nil {
		return false, err
	}
	return el.Context(ctx).Visible()
}

// Click 使用脚本点击，避免被浮层拦截
func (d *RodDriver) Click(ctx context.Context, n Node) error {
	el, err := element(n)
	if err != nil {
		return err
	}
	_, err = el.Context(ctx).Eval(`() => this.click()`)
	return err
}

func (d *RodDriver) ScrollIntoView(ctx context.Context, n Node) error {
	el, err := element(n)
	if err != nil {
		return err
	}
	_, err = el.Context(ctx).Eval(`() => this.scrollIntoView({block: 'center'})`)
	return err
}

func (d *RodDriver) ScrollExtent(ctx context.Context, n Node) (float64, error) {
	el, err := element(n)
	if err != nil {
		return 0, err
	}
	res, err := el.Context(ctx).Eval(`() => this.scrollHeight`)
	if err != nil {
		return 0, err
	}
	return res.Value.Num(), nil
}

func (d *RodDriver) ScrollToBottom(ctx context.Context, n Node) error {
	el, err := element(n)
	if err != nil {
		return err
	}
	_, err = el.Context(ctx).Eval(`() => { this.scrollTop = this.scrollHeight }`)
	return err
}

// SetText 很多前端框架只认 input/change 事件，单纯改 textContent 不会被识别
func (d *RodDriver) SetText(ctx context.Context, n Node, text string) error {
	el, err := element(n)
	if err != nil {
		return err
	}
	_, err = el.Context(ctx).Eval(`(text) => {
		this.textContent = text;
		this.dispatchEvent(new Event('input', { bubbles: true }));
		this.dispatchEvent(new Event('change', { bubbles: true }));
	}`, text)
	return err
}

func (d *RodDriver) Eval(ctx context.Context, js string, args ...any) (any, error) {
	res, err := d.page.Context(ctx).Eval(js, args...)
	if err != nil {
		return nil, err
	}
	return res.Value.Val(), nil
}

func (d *RodDriver) Screenshot(ctx context.Context) ([]byte, error) {
	return d.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

// ExportCookies 导出当前浏览器全部 cookies（JSON）
func (d *RodDriver) ExportCookies() ([]byte, error) {
	cks, err := d.page.Browser().GetCookies()
	if err != nil {
		return nil, errors.Wrap(err, "get cookies")
	}
	return json.Marshal(cks)
}

func (d *RodDriver) Close() error {
	if d.closer != nil {
		d.closer()
		d.closer = nil
	}
	return nil
}
