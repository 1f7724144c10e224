package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/xpzouying/tiktok-reply-mcp/batch"
	"github.com/xpzouying/tiktok-reply-mcp/browser"
	"github.com/xpzouying/tiktok-reply-mcp/configs"
	"github.com/xpzouying/tiktok-reply-mcp/cookies"
	"github.com/xpzouying/tiktok-reply-mcp/export"
	"github.com/xpzouying/tiktok-reply-mcp/llm"
	"github.com/xpzouying/tiktok-reply-mcp/page"
	"github.com/xpzouying/tiktok-reply-mcp/progress"
	"github.com/xpzouying/tiktok-reply-mcp/session"
)

// resetCookiesFiles 删除主 cookies 文件和同目录下派生的实例 cookies 文件
func resetCookiesFiles(basePath string) error {
	if err := cookies.NewLoadCookie(basePath).DeleteCookies(); err != nil {
		return err
	}

	dir := filepath.Dir(basePath)
	base := filepath.Base(basePath)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	if name == "" {
		name = "cookies"
	}

	pattern := filepath.Join(dir, fmt.Sprintf("%s_*%s", name, ext))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}
	for _, p := range matches {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// parseURLs 合并 -urls（逗号分隔）和位置参数，去掉空白和重复项
func parseURLs(list string, args []string) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(u string) {
		u = strings.TrimSpace(u)
		if u == "" {
			return
		}
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	for _, u := range strings.Split(list, ",") {
		add(u)
	}
	for _, u := range args {
		add(u)
	}
	return out
}

// collectRows 所有成功视频的回复汇总为导出行
func collectRows(results []*batch.Result, at time.Time) []export.Row {
	var rows []export.Row
	for _, res := range results {
		if !res.OK() {
			continue
		}
		var title string
		if res.View.Metadata != nil {
			title = res.View.Metadata.Title
		}
		rows = append(rows, export.RowsFromReplies(res.SessionID, title, res.View.Replies, at)...)
	}
	return rows
}

// writeExport 按扩展名写出 xlsx 或 json
func writeExport(path string, rows []export.Row) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		data, err = export.Excel(rows)
	case ".json":
		data, err = export.JSON(rows)
	default:
		return errors.Errorf("unsupported export format %q, use .xlsx or .json", filepath.Ext(path))
	}
	if err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(path, data, 0o644), "write %s", path)
}

// instanceOpener 每个浏览器使用独立的 cookies 副本，避免并行实例互相覆盖
func instanceOpener(base *browser.Opener) session.Opener {
	var n atomic.Int32
	return session.OpenerFunc(func(ctx context.Context) (page.Driver, error) {
		op := *base
		op.CookiesPath = cookies.GetInstanceCookiesFilePath(base.CookiesPath, strconv.Itoa(int(n.Add(1))))
		return op.Open(ctx)
	})
}

// 这个 CLI 程序直接从命令行抓取一个或多个视频的评论并生成回复，
// 复用服务层的会话流水线，而不依赖 HTTP 或 MCP 客户端。
func main() {
	var (
		headless     bool
		binPath      string
		configPath   string
		urlList      string
		instances    int
		loginWait    time.Duration
		generate     bool
		out          string
		resetCookies bool
		timeout      time.Duration
	)

	flag.BoolVar(&headless, "headless", false, "是否无头模式，默认 false（有界面，便于手动登录）")
	flag.StringVar(&binPath, "bin", "", "浏览器二进制文件路径（可选，不传则使用 ROD_BROWSER_BIN 环境变量）")
	flag.StringVar(&configPath, "config", "", "YAML 配置文件路径（可选）")
	flag.StringVar(&urlList, "urls", "", "视频链接，逗号分隔；也可以作为位置参数传入")
	flag.IntVar(&instances, "instances", 0, "同时运行的浏览器数量上限，0 表示每个视频一个")
	flag.DurationVar(&loginWait, "login-wait", batch.DefaultLoginWait, "需要登录时等待手动登录的时间")
	flag.BoolVar(&generate, "generate", true, "抓取后是否生成回复")
	flag.StringVar(&out, "out", "", "导出文件路径（.xlsx 或 .json），为空则不导出")
	flag.BoolVar(&resetCookies, "reset-cookies", false, "启动前清理 cookies 文件并重新登录")
	flag.DurationVar(&timeout, "timeout", 15*time.Minute, "整体超时时间")
	flag.Parse()

	urls := parseURLs(urlList, flag.Args())
	if len(urls) == 0 {
		logrus.Fatal("请通过 -urls 或位置参数提供至少一个视频链接")
	}

	cfg, err := configs.Load(configPath)
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	configs.SetupLogging(cfg.Log)

	if binPath == "" {
		binPath = cfg.Browser.BinPath
	}
	if binPath == "" {
		binPath = browser.DiscoverBinPath()
	}
	cookiesPath := cfg.Browser.CookiesPath
	if cookiesPath == "" {
		cookiesPath = cookies.GetCookiesFilePath()
	}

	if resetCookies {
		if err := resetCookiesFiles(cookiesPath); err != nil {
			logrus.Fatalf("failed to reset cookies: %v", err)
		}
		logrus.Infof("cookies 已清理（含实例派生文件），将重新登录")
	}

	if headless {
		logrus.Warn("当前以无头模式运行，需要登录时无法手动操作，建议第一次使用时 headless=false")
	}

	configs.InitHeadless(headless)
	configs.SetBinPath(binPath)

	if instances <= 0 {
		instances = len(urls)
	}
	base := &browser.Opener{
		Headless:    headless,
		BinPath:     binPath,
		CookiesPath: cookiesPath,
		Page:        cfg.Browser.Page,
		Limit:       browser.NewLease(instances),
	}

	orch := session.New(session.Options{
		Opener: instanceOpener(base),
		LLM: func(ctx context.Context, sc session.Config) (llm.Client, error) {
			return llm.New(ctx, cfg.LLM, sc.APIKey)
		},
		Sink:    progress.LogSink{},
		Cookies: cookies.NewLoadCookie(cookiesPath),
		Timing:  cfg.Timing,
	})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	persona := cfg.Persona
	exclude := persona.ExcludeOwner
	logrus.Infof("开始处理 %d 个视频，浏览器上限=%d", len(urls), instances)
	results, runErr := batch.RunParallel(ctx, orch, urls, batch.Options{
		LoginWait: loginWait,
		Generate:  generate,
		Base: session.Config{
			Tone:              persona.Tone,
			MaxResponseLength: persona.MaxLength,
			AccountName:       persona.AccountName,
			ExcludeOwner:      &exclude,
			Model:             cfg.LLM.Model,
		},
	})

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()
	if err := orch.Shutdown(shutdownCtx); err != nil {
		logrus.Warnf("关闭会话失败: %v", err)
	}

	for _, res := range results {
		if !res.OK() {
			fmt.Printf("视频 %s 失败：%s\n", res.URL, res.Error)
			continue
		}
		title := "-"
		if res.View.Metadata != nil {
			title = res.View.Metadata.Title
		}
		fmt.Printf("视频 %s 完成：\n- 标题: %s\n- 评论: %d 条\n- 回复: %d 条\n\n",
			res.URL, title, len(res.View.Comments), len(res.View.Replies))
	}

	if out != "" {
		rows := collectRows(results, time.Now())
		if err := writeExport(out, rows); err != nil {
			logrus.Errorf("导出失败: %v", err)
		} else {
			logrus.Infof("已导出 %d 条回复到 %s", len(rows), out)
		}
	}

	if runErr != nil {
		logrus.Fatalf("所有视频均未成功完成：%v", runErr)
	}
}
