package main

import (
	"flag"

	"github.com/sirupsen/logrus"

	"github.com/xpzouying/tiktok-reply-mcp/browser"
	"github.com/xpzouying/tiktok-reply-mcp/configs"
)

const serverVersion = "1.0.0"

func main() {
	var (
		headless   bool
		binPath    string // 浏览器二进制文件路径
		port       string
		stdioMode  bool // 是否使用 STDIO 模式
		configPath string
	)
	flag.BoolVar(&headless, "headless", true, "是否无头模式")
	flag.StringVar(&binPath, "bin", "", "浏览器二进制文件路径")
	flag.StringVar(&port, "port", configs.DefaultPort, "端口")
	flag.BoolVar(&stdioMode, "stdio", false, "使用 STDIO 模式（用于 MCP 客户端）")
	flag.StringVar(&configPath, "config", "", "YAML 配置文件路径（可选）")
	flag.Parse()

	cfg, err := configs.Load(configPath)
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	configs.SetupLogging(cfg.Log)

	// 命令行显式传入的参数优先
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "headless":
			cfg.Browser.Headless = headless
		case "bin":
			cfg.Browser.BinPath = binPath
		case "port":
			cfg.Port = port
		}
	})
	if cfg.Browser.BinPath == "" {
		cfg.Browser.BinPath = browser.DiscoverBinPath()
	}

	configs.InitHeadless(cfg.Browser.Headless)
	configs.SetBinPath(cfg.Browser.BinPath)

	// 初始化服务
	tiktokService, err := NewTikTokService(cfg)
	if err != nil {
		logrus.Fatalf("failed to init service: %v", err)
	}

	// 创建应用服务器
	appServer := NewAppServer(tiktokService)

	// 根据模式选择启动方式
	if stdioMode {
		// STDIO 模式：直接运行 MCP 服务器，不启动 HTTP 服务
		logrus.Info("启动 STDIO 模式 MCP 服务器")
		if err := appServer.StartSTDIO(); err != nil {
			logrus.Fatalf("failed to run STDIO server: %v", err)
		}
	} else {
		// HTTP 模式：启动 HTTP 服务器
		if err := appServer.Start(cfg.Port); err != nil {
			logrus.Fatalf("failed to run server: %v", err)
		}
	}
}
