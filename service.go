package main

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/xpzouying/tiktok-reply-mcp/browser"
	"github.com/xpzouying/tiktok-reply-mcp/configs"
	"github.com/xpzouying/tiktok-reply-mcp/cookies"
	"github.com/xpzouying/tiktok-reply-mcp/export"
	"github.com/xpzouying/tiktok-reply-mcp/history"
	"github.com/xpzouying/tiktok-reply-mcp/llm"
	"github.com/xpzouying/tiktok-reply-mcp/progress"
	"github.com/xpzouying/tiktok-reply-mcp/reply"
	"github.com/xpzouying/tiktok-reply-mcp/session"
)

// ErrMissingAPIKey 既没有请求里的密钥也没有配置密钥
var ErrMissingAPIKey = errors.New("llm api key is required")

// TikTokService 会话服务，HTTP 和 MCP 共用
type TikTokService struct {
	cfg     *configs.Config
	hub     *progress.Hub
	history *history.Store
	orch    *session.Orchestrator
}

// serviceDeps 可替换的依赖，测试时注入假浏览器和模型
type serviceDeps struct {
	Opener  session.Opener
	LLM     session.LLMFactory
	History *history.Store
	Cookies cookies.Cookier
}

// NewTikTokService 按配置创建服务：真实浏览器、SQLite 发布记录和本地 cookies
func NewTikTokService(cfg *configs.Config) (*TikTokService, error) {
	store, err := history.Open(cfg.HistoryPath)
	if err != nil {
		return nil, err
	}

	opener := &browser.Opener{
		Headless:    configs.IsHeadless(),
		BinPath:     configs.GetBinPath(),
		CookiesPath: cfg.Browser.CookiesPath,
		Page:        cfg.Browser.Page,
		Limit:       browser.NewLease(cfg.Browser.MaxBrowsers),
	}

	return newTikTokService(cfg, serviceDeps{
		Opener:  opener,
		History: store,
		Cookies: cookies.NewLoadCookie(cfg.Browser.CookiesPath),
	}), nil
}

func newTikTokService(cfg *configs.Config, deps serviceDeps) *TikTokService {
	s := &TikTokService{
		cfg:     cfg,
		hub:     progress.NewHub(),
		history: deps.History,
	}

	factory := deps.LLM
	if factory == nil {
		factory = s.newLLM
	}

	opts := session.Options{
		Opener:  deps.Opener,
		LLM:     factory,
		Sink:    progress.Multi(s.hub, progress.LogSink{}),
		Cookies: deps.Cookies,
		Timing:  cfg.Timing,
	}
	if deps.History != nil {
		opts.History = deps.History
	}
	s.orch = session.New(opts)
	return s
}

// newLLM 会话里的密钥和模型覆盖全局配置
func (s *TikTokService) newLLM(ctx context.Context, sc session.Config) (llm.Client, error) {
	lc := s.cfg.LLM
	if sc.Model != "" {
		lc.Model = sc.Model
	}
	return llm.New(ctx, lc, sc.APIKey)
}

// StartSession 创建或替换会话并开始抓取
func (s *TikTokService) StartSession(id string, req *StartRequest) (session.View, error) {
	cfg := s.applyPersona(req.sessionConfig())
	if cfg.APIKey == "" && s.cfg.LLM.APIKey == "" && s.requiresKey() {
		return session.View{}, ErrMissingAPIKey
	}
	return s.orch.Start(id, cfg)
}

func (s *TikTokService) requiresKey() bool {
	switch s.cfg.LLM.Provider {
	case "", llm.ProviderOpenAI, llm.ProviderGemini:
		return true
	}
	return false
}

// applyPersona 请求没有指定的人设取配置值
func (s *TikTokService) applyPersona(cfg session.Config) session.Config {
	p := s.cfg.Persona
	if cfg.Tone == "" {
		cfg.Tone = p.Tone
	}
	if cfg.MaxResponseLength == 0 {
		cfg.MaxResponseLength = p.MaxLength
	}
	if cfg.AccountName == "" {
		cfg.AccountName = p.AccountName
	}
	if cfg.ExcludeOwner == nil {
		exclude := p.ExcludeOwner
		cfg.ExcludeOwner = &exclude
	}
	if cfg.Model == "" {
		cfg.Model = s.cfg.LLM.Model
	}
	return cfg
}

// ContinueSession 用户确认已登录后继续
func (s *TikTokService) ContinueSession(id string) (session.View, error) {
	if err := s.orch.Resume(id); err != nil {
		return session.View{}, err
	}
	return s.orch.Snapshot(id)
}

// GenerateReplies 为已抓取的评论生成回复，阻塞到生成结束
func (s *TikTokService) GenerateReplies(ctx context.Context, id string) (session.View, error) {
	if _, err := s.orch.Generate(ctx, id); err != nil {
		return session.View{}, err
	}
	return s.orch.Snapshot(id)
}

// ValidateReply 审核一条回复
func (s *TikTokService) ValidateReply(req *ValidateRequest) (reply.Reply, error) {
	id, ok := req.replyID()
	if !ok {
		return reply.Reply{}, errors.Wrap(reply.ErrReplyNotFound, "response_id is required")
	}
	return s.orch.Validate(req.SessionID, id, req.Action, req.NewResponse)
}

// PublishReplies 后台发布已通过的回复
func (s *TikTokService) PublishReplies(id string, ids []int) (int, error) {
	return s.orch.Publish(id, ids)
}

// GetSession 会话快照
func (s *TikTokService) GetSession(id string) (session.View, error) {
	return s.orch.Snapshot(id)
}

// Screenshot 出错时的页面截图
func (s *TikTokService) Screenshot(id string) ([]byte, error) {
	sess, err := s.orch.Get(id)
	if err != nil {
		return nil, err
	}
	return sess.Screenshot(), nil
}

// DeleteSession 删除会话并关闭浏览器
func (s *TikTokService) DeleteSession(id string) error {
	return s.orch.Delete(id)
}

// ExportRows 导出行。replies 为空时使用会话当前的回复，会话不存在时标题取默认值。
func (s *TikTokService) ExportRows(id string, replies []reply.Reply) ([]export.Row, error) {
	var title string
	view, err := s.orch.Snapshot(id)
	switch {
	case err == nil:
		if view.Metadata != nil {
			title = view.Metadata.Title
		}
		if len(replies) == 0 {
			replies = view.Replies
		}
	case errors.Is(err, session.ErrSessionNotFound) && len(replies) > 0:
	default:
		return nil, err
	}
	return export.RowsFromReplies(id, title, replies, time.Now()), nil
}

// History 最近的发布记录
func (s *TikTokService) History(ctx context.Context, sessionID string, limit int) ([]history.Entry, error) {
	if s.history == nil {
		return []history.Entry{}, nil
	}
	return s.history.Recent(ctx, sessionID, limit)
}

// Health 服务状态
func (s *TikTokService) Health() HealthResponse {
	return HealthResponse{
		Status:         "healthy",
		LLMProvider:    string(s.cfg.LLM.Provider),
		LLMConfigured:  s.cfg.LLM.APIKey != "" || !s.requiresKey(),
		BrowserBin:     configs.GetBinPath(),
		Headless:       configs.IsHeadless(),
		ActiveSessions: s.orch.Registry().Len(),
		Timestamp:      time.Now().Format(time.RFC3339),
	}
}

// Close 关闭全部会话和数据库
func (s *TikTokService) Close(ctx context.Context) error {
	err := s.orch.Shutdown(ctx)
	if s.history != nil {
		if cerr := s.history.Close(); cerr != nil {
			logrus.Warnf("关闭发布记录失败: %v", cerr)
		}
	}
	return err
}
