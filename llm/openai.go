package llm

import (
	"context"
	"math"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// OpenAI 基于 Chat Completions 接口的客户端
type OpenAI struct {
	client *openai.Client
}

// NewOpenAI 创建客户端，baseURL 为空时使用官方地址
func NewOpenAI(apiKey, baseURL string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg)}
}

func (c *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	req = req.withDefaults()

	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	// go-openai 会省略值为 0 的 temperature，服务端随后按默认值 1 处理
	temp := *req.Temperature
	if temp == 0 {
		temp = math.SmallestNonzeroFloat32
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    msgs,
		MaxTokens:   req.MaxTokens,
		Temperature: temp,
	})
	if err != nil {
		return "", errors.Wrap(err, "openai chat completion")
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}

	logrus.WithFields(logrus.Fields{
		"model":             req.Model,
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
	}).Debug("openai 调用完成")

	return resp.Choices[0].Message.Content, nil
}
