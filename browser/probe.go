package browser

import (
	"context"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
	"github.com/pkg/errors"
)

// binCandidates 常见的 Chrome/Chromium 安装位置
var binCandidates = []string{
	"/usr/bin/google-chrome",
	"/usr/bin/google-chrome-stable",
	"/usr/bin/chromium",
	"/usr/bin/chromium-browser",
	"/opt/google/chrome/chrome",
	"/app/.chrome-for-testing/chrome-linux64/chrome",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
}

// DiscoverBinPath 查找浏览器可执行文件：优先 ROD_BROWSER_BIN，其次常见安装位置，最后交给 launcher 查找。
// 找不到时返回空字符串，由 headless_browser 自行下载。
func DiscoverBinPath() string {
	if p := os.Getenv("ROD_BROWSER_BIN"); p != "" {
		return p
	}
	for _, p := range binCandidates {
		if isExecutable(p) {
			return p
		}
	}
	if p, ok := launcher.LookPath(); ok {
		return p
	}
	return ""
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Mode()&0o111 != 0
}

// ProbeResult 浏览器自检结果
type ProbeResult struct {
	OK        bool          `json:"ok"`
	BinPath   string        `json:"bin_path"`
	Version   string        `json:"version,omitempty"`
	Webdriver bool          `json:"webdriver_exposed"`
	Elapsed   time.Duration `json:"elapsed"`
	Error     string        `json:"error,omitempty"`
}

// Probe 启动一个临时无头浏览器，打开 stealth 页面并检查自动化标记是否被隐藏
func Probe(ctx context.Context, binPath string) ProbeResult {
	start := time.Now()
	res := ProbeResult{BinPath: binPath}

	err := probe(ctx, binPath, &res)
	res.Elapsed = time.Since(start)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.OK = true
	return res
}

func probe(ctx context.Context, binPath string, res *ProbeResult) error {
	l := launcher.New().Headless(true).Set("disable-blink-features", "AutomationControlled")
	if binPath != "" {
		l = l.Bin(binPath)
	}
	defer l.Cleanup()

	u, err := l.Context(ctx).Launch()
	if err != nil {
		return errors.Wrap(err, "launch")
	}

	b := rod.New().ControlURL(u).Context(ctx)
	if err := b.Connect(); err != nil {
		return errors.Wrap(err, "connect")
	}
	defer b.Close()

	if v, err := b.Version(); err == nil {
		res.Version = v.Product
	}

	p, err := stealth.Page(b)
	if err != nil {
		return errors.Wrap(err, "open stealth page")
	}
	defer p.Close()

	obj, err := p.Eval(`() => navigator.webdriver === true`)
	if err != nil {
		return errors.Wrap(err, "eval")
	}
	res.Webdriver = obj.Value.Bool()
	return nil
}
