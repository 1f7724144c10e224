// Package reply 批量生成评论回复、解析模型输出，以及人工审核时对回复的修改。
package reply

import (
	"github.com/xpzouying/tiktok-reply-mcp/page"
)

// Action 审核状态
type Action string

const (
	ActionPending  Action = "pending"
	ActionApproved Action = "approved"
	ActionRejected Action = "rejected"
)

// Valid 是否为已知的审核状态
func (a Action) Valid() bool {
	switch a {
	case ActionPending, ActionApproved, ActionRejected:
		return true
	}
	return false
}

// Reply 模型为一条评论生成的回复
type Reply struct {
	ID          int    `json:"id"`
	Username    string `json:"username"`
	CommentText string `json:"comment_text"`
	Response    string `json:"chatgpt_response"`
	Action      Action `json:"action"`
	Modified    bool   `json:"modified"`

	// Ref 原评论的元素句柄；模型返回的 id 对不上任何评论时为 nil，这条回复不能发布
	Ref *page.Handle `json:"-"`
}

// Publishable 是否能发布到页面
func (r Reply) Publishable() bool {
	return r.Ref != nil && !r.Ref.IsZero()
}

// 默认人设
const (
	DefaultAccountName = "Soeur Bon Plan 🎀"
	DefaultTone        = "chaleureux"
	DefaultMaxLength   = 114
)

// Options 生成回复时的人设与视频上下文
type Options struct {
	AccountName string
	Tone        string
	MaxLength   int

	VideoTitle string
	Hashtags   []string

	Model       string
	MaxTokens   int
	Temperature *float32
}

// WithDefaults 补齐未设置的人设参数
func (o Options) WithDefaults() Options {
	if o.AccountName == "" {
		o.AccountName = DefaultAccountName
	}
	if o.Tone == "" {
		o.Tone = DefaultTone
	}
	if o.MaxLength <= 0 {
		o.MaxLength = DefaultMaxLength
	}
	if o.VideoTitle == "" {
		o.VideoTitle = "Vidéo TikTok"
	}
	return o
}
