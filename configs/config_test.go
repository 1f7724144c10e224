package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xpzouying/tiktok-reply-mcp/llm"
	"github.com/xpzouying/tiktok-reply-mcp/tiktok"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, llm.ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, 114, cfg.Persona.MaxLength)
	assert.True(t, cfg.Persona.ExcludeOwner)
	assert.Equal(t, tiktok.DefaultTiming(), cfg.Timing)
}

func TestLoadYAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: ":9000"
browser:
  headless: true
  max_browsers: 2
  page:
    width: 1280
llm:
  provider: gemini
  model: gemini-2.5-flash
persona:
  account_name: "Ma Boutique"
  tone: "drôle"
  exclude_owner: false
timing:
  scroll_settle: 500ms
  max_scrolls: 5
`), 0o644))

	t.Setenv("HEADLESS", "false")
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("MAX_BROWSERS", "not-a-number")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Port)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 2, cfg.Browser.MaxBrowsers)
	assert.Equal(t, 1280, cfg.Browser.Page.Width)
	assert.Equal(t, llm.ProviderGemini, cfg.LLM.Provider)
	assert.Equal(t, "g-key", cfg.LLM.APIKey)
	assert.Equal(t, "Ma Boutique", cfg.Persona.AccountName)
	assert.False(t, cfg.Persona.ExcludeOwner)
	assert.Equal(t, 500*time.Millisecond, cfg.Timing.ScrollSettle)
	assert.Equal(t, 5, cfg.Timing.MaxScrolls)
	// 未配置的节奏参数取默认值
	assert.Equal(t, 20*time.Second, cfg.Timing.ContainerWait)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSetupLogging(t *testing.T) {
	defer logrus.SetLevel(logrus.InfoLevel)
	defer logrus.SetFormatter(&logrus.TextFormatter{})

	SetupLogging(LogConfig{Level: "warn", Format: "json"})
	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel())
	_, ok := logrus.StandardLogger().Formatter.(*logrus.JSONFormatter)
	assert.True(t, ok)

	SetupLogging(LogConfig{Level: "nonsense"})
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
}

func TestBrowserGlobals(t *testing.T) {
	defer InitHeadless(true)
	defer SetBinPath("")

	InitHeadless(false)
	SetBinPath("/usr/bin/chromium")
	assert.False(t, IsHeadless())
	assert.Equal(t, "/usr/bin/chromium", GetBinPath())
}
