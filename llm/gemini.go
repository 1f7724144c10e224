package llm

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"google.golang.org/genai"
)

// DefaultGeminiModel 请求未指定模型或指定的是 OpenAI 模型时使用
const DefaultGeminiModel = "gemini-2.5-flash"

// Gemini 基于 Gemini API 的客户端
type Gemini struct {
	client *genai.Client
}

// NewGemini 创建客户端
func NewGemini(ctx context.Context, apiKey string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("llm: gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create gemini client")
	}
	return &Gemini{client: client}, nil
}

func (c *Gemini) Complete(ctx context.Context, req Request) (string, error) {
	req = req.withDefaults()

	model := req.Model
	if !strings.HasPrefix(model, "gemini") {
		model = DefaultGeminiModel
	}

	// system 消息合并为 SystemInstruction，其余按顺序作为对话内容
	var (
		system   []string
		contents []*genai.Content
	)
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	temp := *req.Temperature
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if len(system) > 0 {
		cfg.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}

	res, err := c.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return "", errors.Wrap(err, "gemini generate content")
	}

	text := res.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
