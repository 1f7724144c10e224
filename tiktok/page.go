package tiktok

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/xpzouying/tiktok-reply-mcp/page"
)

// Page 视频页面上的全部操作：登录检测、视频信息、评论抓取、回复发布。
// 同一个 Page 不能被多个 goroutine 同时驱动。
type Page struct {
	ctrl   *page.Controller
	loc    *page.Locator
	timing Timing
}

// NewPage 基于页面控制器创建视频页面操作
func NewPage(ctrl *page.Controller, timing Timing) *Page {
	return &Page{
		ctrl:   ctrl,
		loc:    page.NewLocator(ctrl),
		timing: timing,
	}
}

// Controller 返回底层页面控制器
func (p *Page) Controller() *page.Controller {
	return p.ctrl
}

// Timing 返回页面使用的节奏参数
func (p *Page) Timing() Timing {
	return p.timing
}

// Open 打开视频页面并等待渲染
func (p *Page) Open(ctx context.Context, url string) error {
	logrus.WithField("url", url).Info("打开视频页面")
	if err := p.ctrl.Navigate(ctx, url); err != nil {
		return err
	}
	return page.Sleep(ctx, p.timing.PageSettle)
}

// NeedsLogin 检查当前页面是否出现登录提示。
// 在 LoginProbe 时间内都没有出现任何登录提示，视为已登录。
func (p *Page) NeedsLogin(ctx context.Context) (bool, error) {
	h, found, err := p.loc.Wait(ctx, loginIndicatorSelectors, nil, p.timing.LoginProbe, page.WaitOptions{})
	if err != nil {
		return false, err
	}
	if found {
		logrus.WithField("generation", h.Generation()).Info("检测到登录提示，需要手动登录")
	}
	return found, nil
}
