package browser

import (
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"
	"github.com/xpzouying/headless_browser"

	"github.com/xpzouying/tiktok-reply-mcp/cookies"
)

// 默认窗口和 UA，与桌面版 Chrome 保持一致
const (
	DefaultWidth     = 1920
	DefaultHeight    = 1080
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

type browserConfig struct {
	binPath    string
	cookiePath string
}

type Option func(*browserConfig)

func WithBinPath(binPath string) Option {
	return func(c *browserConfig) {
		c.binPath = binPath
	}
}

// WithCookiesPath 指定新浏览器实例启动时要使用的 cookies 文件路径。
func WithCookiesPath(path string) Option {
	return func(c *browserConfig) {
		c.cookiePath = path
	}
}

// NewBrowser 启动浏览器并注入已保存的登录 cookies。
// headless_browser 内部已经套用了 stealth，启动失败时会 panic。
func NewBrowser(headless bool, options ...Option) *headless_browser.Browser {
	cfg := &browserConfig{}
	for _, opt := range options {
		opt(cfg)
	}

	opts := []headless_browser.Option{
		headless_browser.WithHeadless(headless),
	}
	if cfg.binPath != "" {
		opts = append(opts, headless_browser.WithChromeBinPath(cfg.binPath))
	}

	cookiePath := cfg.cookiePath
	if cookiePath == "" {
		cookiePath = cookies.GetCookiesFilePath()
	}
	cookieLoader := cookies.NewLoadCookie(cookiePath)

	if data, err := cookieLoader.LoadCookies(); err == nil {
		opts = append(opts, headless_browser.WithCookies(string(data)))
		logrus.WithField("cookies_path", cookiePath).Debug("loaded cookies from file successfully")
	} else {
		logrus.WithField("cookies_path", cookiePath).Warnf("failed to load cookies: %v", err)
	}

	return headless_browser.New(opts...)
}

// PageOptions 页面窗口和 UA
type PageOptions struct {
	Width     int    `yaml:"width" json:"width"`
	Height    int    `yaml:"height" json:"height"`
	UserAgent string `yaml:"user_agent" json:"user_agent"`
}

func (o PageOptions) withDefaults() PageOptions {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	return o
}

// ConfigurePage 设置窗口大小和 UA，并隐藏自动化标记
func ConfigurePage(page *rod.Page, opts PageOptions) {
	opts = opts.withDefaults()

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             opts.Width,
		Height:            opts.Height,
		DeviceScaleFactor: 1,
	}); err != nil {
		logrus.Warnf("failed to set viewport: %v", err)
	}

	// 1. 通过协议层覆盖 UA
	// 忽略错误，因为如果页面已经关闭这可能会失败，但不影响主流程
	_ = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent: opts.UserAgent,
	})

	// 2. 注入脚本覆盖 navigator 属性，和协议层的 UA 保持一致
	_, err := page.EvalOnNewDocument(`
		Object.defineProperty(navigator, 'webdriver', {
			get: () => undefined
		});
		Object.defineProperty(navigator, 'userAgent', {
			get: () => '` + opts.UserAgent + `'
		});
		Object.defineProperty(navigator, 'vendor', {
			get: () => 'Google Inc.'
		});
	`)
	if err != nil {
		logrus.Warnf("failed to set user agent script: %v", err)
	}
}
