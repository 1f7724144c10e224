package browser

import (
	"context"

	"github.com/go-rod/rod"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/xpzouying/headless_browser"

	"github.com/xpzouying/tiktok-reply-mcp/page"
)

// Opener 为每个会话启动独立的浏览器
type Opener struct {
	Headless    bool
	BinPath     string
	CookiesPath string
	Page        PageOptions

	// Limit 进程级并发浏览器上限，nil 表示不限制
	Limit *Lease
}

// Open 启动浏览器并打开一个空白页面，返回的 Driver 关闭时会退出浏览器
func (o *Opener) Open(ctx context.Context) (drv page.Driver, err error) {
	release, err := o.Limit.Acquire(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "wait for browser slot")
	}

	var (
		b *headless_browser.Browser
		p *rod.Page
	)
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("启动浏览器失败: %v", r)
			if p != nil {
				_ = p.Close()
			}
			if b != nil {
				b.Close()
			}
			release()
			drv, err = nil, errors.Errorf("launch browser: %v", r)
		}
	}()

	logrus.WithFields(logrus.Fields{"headless": o.Headless, "bin": o.BinPath}).Info("启动浏览器")
	b = NewBrowser(o.Headless, WithBinPath(o.BinPath), WithCookiesPath(o.CookiesPath))
	p = b.NewPage()
	ConfigurePage(p, o.Page)

	closer := func() {
		if err := p.Close(); err != nil {
			logrus.Debugf("关闭页面失败: %v", err)
		}
		b.Close()
		release()
		logrus.Info("浏览器已关闭")
	}
	return page.NewRodDriver(p, closer), nil
}
