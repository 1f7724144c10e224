// Package configs 进程级配置：浏览器全局开关，以及从 YAML、.env 和环境变量加载的应用配置。
package configs

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/xpzouying/tiktok-reply-mcp/browser"
	"github.com/xpzouying/tiktok-reply-mcp/llm"
	"github.com/xpzouying/tiktok-reply-mcp/reply"
	"github.com/xpzouying/tiktok-reply-mcp/tiktok"
)

// 默认值
const (
	DefaultPort        = ":18060"
	DefaultHistoryPath = "data/history.db"
	DefaultMaxBrowsers = 4
)

// Config 应用配置
type Config struct {
	Port        string        `yaml:"port"`
	HistoryPath string        `yaml:"history_path"`
	Browser     BrowserConfig `yaml:"browser"`
	LLM         llm.Config    `yaml:"llm"`
	Persona     PersonaConfig `yaml:"persona"`
	Timing      tiktok.Timing `yaml:"timing"`
	Log         LogConfig     `yaml:"log"`
}

// BrowserConfig 浏览器相关配置
type BrowserConfig struct {
	Headless    bool                `yaml:"headless"`
	BinPath     string              `yaml:"bin_path"`
	CookiesPath string              `yaml:"cookies_path"`
	MaxBrowsers int                 `yaml:"max_browsers"`
	Page        browser.PageOptions `yaml:"page"`
}

// PersonaConfig 会话没有指定时使用的人设
type PersonaConfig struct {
	AccountName  string `yaml:"account_name"`
	Tone         string `yaml:"tone"`
	MaxLength    int    `yaml:"max_length"`
	ExcludeOwner bool   `yaml:"exclude_owner"`
}

// LogConfig 日志级别和格式（text 或 json）
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default 默认配置
func Default() *Config {
	return &Config{
		Port:        DefaultPort,
		HistoryPath: DefaultHistoryPath,
		Browser: BrowserConfig{
			Headless:    true,
			MaxBrowsers: DefaultMaxBrowsers,
		},
		LLM: llm.Config{
			Provider: llm.ProviderOpenAI,
			Model:    llm.DefaultModel,
		},
		Persona: PersonaConfig{
			AccountName:  reply.DefaultAccountName,
			Tone:         reply.DefaultTone,
			MaxLength:    reply.DefaultMaxLength,
			ExcludeOwner: true,
		},
		Timing: tiktok.DefaultTiming(),
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// Load 依次应用默认值、YAML 文件（path 非空时）、.env 和环境变量
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "read config file")
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config file %s", path)
		}
	}

	// .env 不存在是正常情况
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.Warnf("failed to load .env: %v", err)
	}
	cfg.applyEnv()

	cfg.Timing = cfg.Timing.WithDefaults()
	if cfg.Persona.MaxLength <= 0 {
		cfg.Persona.MaxLength = reply.DefaultMaxLength
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Port, "PORT")
	setString(&c.HistoryPath, "HISTORY_DB")
	setString(&c.Browser.BinPath, "ROD_BROWSER_BIN")
	setString(&c.Browser.CookiesPath, "COOKIES_PATH")
	setBool(&c.Browser.Headless, "HEADLESS")
	setInt(&c.Browser.MaxBrowsers, "MAX_BROWSERS")

	setString((*string)(&c.LLM.Provider), "LLM_PROVIDER")
	setString(&c.LLM.Model, "LLM_MODEL")
	setString(&c.LLM.BaseURL, "OPENAI_BASE_URL")
	setString(&c.LLM.APIKey, "OPENAI_API_KEY")
	if c.LLM.Provider == llm.ProviderGemini {
		setString(&c.LLM.APIKey, "GEMINI_API_KEY")
	}

	setString(&c.Persona.AccountName, "ACCOUNT_NAME")
	setString(&c.Persona.Tone, "REPLY_TONE")
	setInt(&c.Persona.MaxLength, "MAX_RESPONSE_LENGTH")
	setBool(&c.Persona.ExcludeOwner, "EXCLUDE_OWNER")

	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setBool(dst *bool, key string) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		logrus.Warnf("ignoring %s=%q: %v", key, v, err)
		return
	}
	*dst = b
}

func setInt(dst *int, key string) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		logrus.Warnf("ignoring %s=%q: %v", key, v, err)
		return
	}
	*dst = n
}

// SetupLogging 按配置设置 logrus 级别和格式
func SetupLogging(c LogConfig) {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if strings.EqualFold(c.Format, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}
