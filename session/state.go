// Package session 会话编排：按状态机依次驱动登录检测、视频信息、评论加载和抓取，
// 以及外部触发的回复生成、人工审核和发布。
package session

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/xpzouying/tiktok-reply-mcp/reply"
	"github.com/xpzouying/tiktok-reply-mcp/tiktok"
)

// State 会话状态
type State string

const (
	StateInit               State = "INIT"
	StateAwaitingLogin      State = "AWAITING_LOGIN"
	StateExtractingMetadata State = "EXTRACTING_METADATA"
	StateLoadingComments    State = "LOADING_COMMENTS"
	StateScrapingComments   State = "SCRAPING_COMMENTS"
	StateReadyForResponses  State = "READY_FOR_RESPONSES"
	StateGenerating         State = "GENERATING"
	StateAwaitingValidation State = "AWAITING_VALIDATION"
	StatePublishing         State = "PUBLISHING"
	StateDone               State = "DONE"
	StateError              State = "ERROR"
)

// Terminal 流水线不会再自动推进的状态
func (s State) Terminal() bool {
	switch s {
	case StateDone, StateError:
		return true
	}
	return false
}

var (
	ErrSessionNotFound  = errors.New("session: not found")
	ErrInvalidState     = errors.New("session: invalid state for this operation")
	ErrInvalidConfig    = errors.New("session: invalid config")
	ErrNoReplies        = errors.New("session: generation produced no usable replies")
	ErrNothingToPublish = errors.New("session: no approved replies to publish")
	ErrClosed           = errors.New("session: closed")
)

// Config 启动会话时的请求参数，启动后不再变化
type Config struct {
	URL               string `json:"url"`
	APIKey            string `json:"-"`
	Tone              string `json:"tone,omitempty"`
	MaxResponseLength int    `json:"max_response_length,omitempty"`
	AccountName       string `json:"account_name,omitempty"`
	// ExcludeOwner 为 nil 时默认排除作者本人的评论
	ExcludeOwner *bool  `json:"exclude_owner,omitempty"`
	OwnerHandle  string `json:"owner_handle,omitempty"`
	Model        string `json:"model,omitempty"`
}

// Validate 检查视频链接
func (c Config) Validate() error {
	raw := strings.TrimSpace(c.URL)
	if raw == "" {
		return errors.Wrap(ErrInvalidConfig, "url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Wrapf(ErrInvalidConfig, "url %q is not an http(s) link", c.URL)
	}
	if c.MaxResponseLength < 0 {
		return errors.Wrap(ErrInvalidConfig, "max_response_length must not be negative")
	}
	return nil
}

// WithDefaults 补齐人设默认值
func (c Config) WithDefaults() Config {
	c.URL = strings.TrimSpace(c.URL)
	if c.Tone == "" {
		c.Tone = reply.DefaultTone
	}
	if c.MaxResponseLength <= 0 {
		c.MaxResponseLength = reply.DefaultMaxLength
	}
	if c.AccountName == "" {
		c.AccountName = reply.DefaultAccountName
	}
	if c.ExcludeOwner == nil {
		on := true
		c.ExcludeOwner = &on
	}
	return c
}

// OwnerFilter 作者评论过滤规则：优先使用配置的账号，其次是链接里的作者，最后是人设名称
func (c Config) OwnerFilter() tiktok.OwnerFilter {
	handle := c.OwnerHandle
	if handle == "" {
		handle, _ = tiktok.ParseVideoURL(c.URL)
	}
	if handle == "" {
		handle = c.AccountName
	}
	return tiktok.OwnerFilter{
		Enabled: c.ExcludeOwner == nil || *c.ExcludeOwner,
		Handle:  handle,
	}
}

// ReplyOptions 生成回复时的人设参数
func (c Config) ReplyOptions(meta *tiktok.VideoMetadata) reply.Options {
	opts := reply.Options{
		AccountName: c.AccountName,
		Tone:        c.Tone,
		MaxLength:   c.MaxResponseLength,
		Model:       c.Model,
	}
	if meta != nil {
		if meta.Title != tiktok.TitleNotFound {
			opts.VideoTitle = meta.Title
		}
		opts.Hashtags = meta.Hashtags
	}
	return opts.WithDefaults()
}
