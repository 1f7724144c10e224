package main

import (
	"github.com/xpzouying/tiktok-reply-mcp/reply"
	"github.com/xpzouying/tiktok-reply-mcp/session"
)

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// SuccessResponse 成功响应
type SuccessResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
}

// StartRequest 启动会话的请求。tiktok_url 和 openai_key 是旧前端使用的字段名。
type StartRequest struct {
	URL               string `json:"url"`
	TikTokURL         string `json:"tiktok_url"`
	APIKey            string `json:"api_key"`
	OpenAIKey         string `json:"openai_key"`
	Tone              string `json:"tone"`
	MaxResponseLength int    `json:"max_response_length"`
	AccountName       string `json:"account_name"`
	ExcludeOwner      *bool  `json:"exclude_owner"`
	OwnerHandle       string `json:"owner_handle"`
	Model             string `json:"model"`
}

// sessionConfig 转换为会话配置
func (r *StartRequest) sessionConfig() session.Config {
	cfg := session.Config{
		URL:               r.URL,
		APIKey:            r.APIKey,
		Tone:              r.Tone,
		MaxResponseLength: r.MaxResponseLength,
		AccountName:       r.AccountName,
		ExcludeOwner:      r.ExcludeOwner,
		OwnerHandle:       r.OwnerHandle,
		Model:             r.Model,
	}
	if cfg.URL == "" {
		cfg.URL = r.TikTokURL
	}
	if cfg.APIKey == "" {
		cfg.APIKey = r.OpenAIKey
	}
	return cfg
}

// ValidateRequest 审核一条回复
type ValidateRequest struct {
	SessionID   string       `json:"session_id" binding:"required"`
	ResponseID  *int         `json:"response_id"`
	ID          *int         `json:"id"`
	Action      reply.Action `json:"action" binding:"required"`
	NewResponse *string      `json:"new_response"`
}

// replyID response_id 优先，兼容 id
func (r *ValidateRequest) replyID() (int, bool) {
	if r.ResponseID != nil {
		return *r.ResponseID, true
	}
	if r.ID != nil {
		return *r.ID, true
	}
	return 0, false
}

// PublishRequest 发布请求，IDs 为空时发布全部已通过的回复
type PublishRequest struct {
	IDs []int `json:"ids"`
}

// PublishResponse 发布已开始
type PublishResponse struct {
	SessionID string `json:"session_id"`
	Queued    int    `json:"queued"`
}

// ExportItem 前端提交的一条回复，validated 是旧字段
type ExportItem struct {
	reply.Reply
	Validated bool `json:"validated"`
}

// ExportRequest 导出请求，Responses 为空时导出会话当前的回复
type ExportRequest struct {
	Responses []ExportItem `json:"responses"`
}

// replies 转为回复列表，没有 action 时按 validated 推断
func (r *ExportRequest) replies() []reply.Reply {
	out := make([]reply.Reply, 0, len(r.Responses))
	for _, item := range r.Responses {
		rp := item.Reply
		if rp.Action == "" && item.Validated {
			rp.Action = reply.ActionApproved
		}
		out = append(out, rp)
	}
	return out
}

// HealthResponse 健康检查
type HealthResponse struct {
	Status         string `json:"status"`
	LLMProvider    string `json:"llm_provider"`
	LLMConfigured  bool   `json:"llm_configured"`
	BrowserBin     string `json:"browser_bin"`
	Headless       bool   `json:"headless"`
	ActiveSessions int    `json:"active_sessions"`
	Timestamp      string `json:"timestamp"`
}
