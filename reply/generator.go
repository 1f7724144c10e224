package reply

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/xpzouying/tiktok-reply-mcp/llm"
	"github.com/xpzouying/tiktok-reply-mcp/tiktok"
)

// Generator 一次模型调用为整批评论生成回复
type Generator struct {
	client llm.Client
}

// NewGenerator 创建回复生成器
func NewGenerator(client llm.Client) *Generator {
	return &Generator{client: client}
}

// Generate 为 comments 生成回复。模型调用失败或输出无法解析时返回空列表，
// 调用方可以直接重试。
func (g *Generator) Generate(ctx context.Context, comments []tiktok.Comment, opts Options) []Reply {
	if len(comments) == 0 {
		return []Reply{}
	}
	opts = opts.WithDefaults()

	req := llm.Request{
		Model:       opts.Model,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: SystemPrompt},
			{Role: llm.RoleUser, Content: BuildPrompt(comments, opts)},
		},
	}

	logrus.Infof("为 %d 条评论生成回复", len(comments))
	raw, err := g.client.Complete(ctx, req)
	if err != nil {
		logrus.WithError(err).Error("调用模型失败")
		return []Reply{}
	}
	logrus.Infof("模型返回 %d 个字符", len(raw))

	replies, err := ParseResponse(raw, comments, opts.MaxLength)
	if err != nil {
		logrus.WithError(err).Error("解析模型输出失败")
		return []Reply{}
	}

	logrus.Infof("生成了 %d 条回复", len(replies))
	return replies
}
