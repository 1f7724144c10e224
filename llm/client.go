// Package llm 定义调用大模型的最小接口，以及 OpenAI、Gemini 和测试用 Mock 实现。
package llm

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// 消息角色
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// 默认生成参数
const (
	DefaultModel       = "gpt-4"
	DefaultMaxTokens   = 4000
	DefaultTemperature = 0.7
)

// ErrEmptyResponse 模型没有返回任何文本
var ErrEmptyResponse = errors.New("llm: empty response")

// Message 一条带角色的对话消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request 一次生成请求
type Request struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
	// Temperature 为 nil 时使用 DefaultTemperature，0 是合法取值
	Temperature *float32 `json:"temperature,omitempty"`
}

// Temperature 返回温度参数的指针，用于 Request.Temperature
func Temperature(v float32) *float32 {
	return &v
}

// Client 大模型客户端，返回原始文本
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Provider 模型服务商
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
	ProviderMock   Provider = "mock"
)

// Config 创建客户端所需的配置
type Config struct {
	Provider Provider `yaml:"provider" json:"provider"`
	APIKey   string   `yaml:"api_key" json:"-"`
	BaseURL  string   `yaml:"base_url" json:"base_url,omitempty"`
	Model    string   `yaml:"model" json:"model"`
}

// New 按 Provider 创建客户端，apiKey 非空时覆盖配置中的密钥
func New(ctx context.Context, cfg Config, apiKey string) (Client, error) {
	if apiKey != "" {
		cfg.APIKey = apiKey
	}

	switch Provider(strings.ToLower(string(cfg.Provider))) {
	case "", ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, errors.New("llm: openai api key is required")
		}
		return NewOpenAI(cfg.APIKey, cfg.BaseURL), nil
	case ProviderGemini:
		return NewGemini(ctx, cfg.APIKey)
	case ProviderMock:
		return NewMock(""), nil
	default:
		return nil, errors.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}

// withDefaults 补齐未设置的生成参数
func (r Request) withDefaults() Request {
	if r.Model == "" {
		r.Model = DefaultModel
	}
	if r.MaxTokens <= 0 {
		r.MaxTokens = DefaultMaxTokens
	}
	if r.Temperature == nil {
		r.Temperature = Temperature(DefaultTemperature)
	}
	return r
}
