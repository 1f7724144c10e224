package session

import (
	"context"
	"slices"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/xpzouying/tiktok-reply-mcp/cookies"
	"github.com/xpzouying/tiktok-reply-mcp/history"
	"github.com/xpzouying/tiktok-reply-mcp/llm"
	"github.com/xpzouying/tiktok-reply-mcp/page"
	"github.com/xpzouying/tiktok-reply-mcp/progress"
	"github.com/xpzouying/tiktok-reply-mcp/tiktok"
)

// Opener 为会话启动浏览器
type Opener interface {
	Open(ctx context.Context) (page.Driver, error)
}

// OpenerFunc 函数形式的 Opener
type OpenerFunc func(ctx context.Context) (page.Driver, error)

func (f OpenerFunc) Open(ctx context.Context) (page.Driver, error) {
	return f(ctx)
}

// LLMFactory 按会话配置创建大模型客户端
type LLMFactory func(ctx context.Context, cfg Config) (llm.Client, error)

// PublishRecorder 保存发布结果
type PublishRecorder interface {
	RecordPublish(ctx context.Context, entries []history.Entry) error
}

// Options 编排器依赖
type Options struct {
	Opener Opener
	LLM    LLMFactory

	// 以下可选
	Sink    progress.Sink
	History PublishRecorder
	Cookies cookies.Cookier
	Timing  tiktok.Timing
}

// Orchestrator 管理所有会话的生命周期和阶段推进
type Orchestrator struct {
	reg  *Registry
	opts Options
}

// New 创建编排器
func New(opts Options) *Orchestrator {
	if opts.Sink == nil {
		opts.Sink = progress.Discard
	}
	if opts.Timing == (tiktok.Timing{}) {
		opts.Timing = tiktok.DefaultTiming()
	}
	return &Orchestrator{reg: NewRegistry(), opts: opts}
}

// Registry 会话表
func (o *Orchestrator) Registry() *Registry {
	return o.reg
}

// Start 创建会话并在后台运行流水线，立即返回。
// 同一个 key 已有会话时，先释放旧会话再创建新的。
func (o *Orchestrator) Start(key string, cfg Config) (View, error) {
	if key == "" {
		return View{}, errors.Wrap(ErrInvalidConfig, "session id is required")
	}
	if err := cfg.Validate(); err != nil {
		return View{}, err
	}
	cfg = cfg.WithDefaults()

	unlock := o.reg.lock(key)
	defer unlock()

	if old, ok := o.reg.Get(key); ok {
		logrus.WithField("session", key).Info("替换已有会话")
		o.reg.remove(old)
		old.teardown()
	}

	s := newSession(key, cfg)
	o.reg.put(s)
	if err := s.goTask("pipeline", func(ctx context.Context) { o.pipeline(ctx, s) }); err != nil {
		return View{}, err
	}

	logrus.WithFields(logrus.Fields{"session": key, "url": cfg.URL}).Info("会话已启动")
	return s.Snapshot(), nil
}

// Resume 用户确认已手动登录，流水线从等待登录处继续
func (o *Orchestrator) Resume(key string) error {
	s, err := o.Get(key)
	if err != nil {
		return err
	}
	if st := s.State(); st != StateAwaitingLogin {
		return errors.Wrapf(ErrInvalidState, "session is %s, not waiting for login", st)
	}
	logrus.WithField("session", key).Info("收到继续请求")
	s.requestResume()
	return nil
}

// Delete 删除会话：取消并等待正在运行的阶段，然后关闭浏览器
func (o *Orchestrator) Delete(key string) error {
	unlock := o.reg.lock(key)
	defer unlock()

	s, ok := o.reg.Get(key)
	if !ok {
		return errors.Wrapf(ErrSessionNotFound, "%q", key)
	}
	o.reg.remove(s)
	s.teardown()
	return nil
}

// Get 按 key 查找会话
func (o *Orchestrator) Get(key string) (*Session, error) {
	s, ok := o.reg.Get(key)
	if !ok {
		return nil, errors.Wrapf(ErrSessionNotFound, "%q", key)
	}
	return s, nil
}

// Snapshot 会话当前数据的副本
func (o *Orchestrator) Snapshot(key string) (View, error) {
	s, err := o.Get(key)
	if err != nil {
		return View{}, err
	}
	return s.Snapshot(), nil
}

// WaitFor 等到会话进入 states 中的任意一个状态
func (o *Orchestrator) WaitFor(ctx context.Context, key string, states ...State) (State, error) {
	s, err := o.Get(key)
	if err != nil {
		return "", err
	}
	for {
		st, changed := s.watch()
		if slices.Contains(states, st) {
			return st, nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return st, ctx.Err()
		case <-s.ctx.Done():
			return st, ErrClosed
		}
	}
}

// Shutdown 释放所有会话
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	sessions := o.reg.all()
	logrus.Infof("正在释放 %d 个会话", len(sessions))

	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			o.reg.remove(s)
			s.teardown()
		}(s)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) emit(s *Session, step string, pct int, msg string, data any) {
	o.publish(s, progress.New(step, pct, msg, data))
}

func (o *Orchestrator) publish(s *Session, ev progress.Event) {
	ev.State = string(s.State())
	o.opts.Sink.Publish(s.key, ev)
}

// fail 把会话置为 ERROR。会话正在被删除时只记录日志。
func (o *Orchestrator) fail(ctx context.Context, s *Session, err error) {
	o.failWith(ctx, s, err, progress.New(progress.StepError, 0, "错误: "+err.Error(),
		map[string]any{"error": err.Error()}))
}

// failWith 同 fail，出错事件由调用方给出
func (o *Orchestrator) failWith(ctx context.Context, s *Session, err error, ev progress.Event) {
	if ctx.Err() != nil {
		logrus.WithField("session", s.key).Infof("会话已取消: %v", err)
		return
	}
	logrus.WithField("session", s.key).WithError(err).Error("会话出错")

	shot := o.captureScreenshot(ctx, s)

	s.mu.Lock()
	s.lastErr = err.Error()
	if shot != nil {
		s.screenshot = shot
	}
	s.setStateLocked(StateError)
	s.mu.Unlock()

	o.publish(s, ev)
}

func (o *Orchestrator) captureScreenshot(ctx context.Context, s *Session) []byte {
	s.mu.Lock()
	drv := s.drv
	s.mu.Unlock()
	if drv == nil {
		return nil
	}
	shot, err := drv.Screenshot(ctx)
	if err != nil {
		logrus.WithField("session", s.key).Warnf("截图失败: %v", err)
		return nil
	}
	return shot
}

func (o *Orchestrator) saveCookies(s *Session, drv page.Driver) {
	if o.opts.Cookies == nil {
		return
	}
	exp, ok := drv.(page.CookieExporter)
	if !ok {
		return
	}
	data, err := exp.ExportCookies()
	if err != nil {
		logrus.WithField("session", s.key).Warnf("导出 cookies 失败: %v", err)
		return
	}
	if err := o.opts.Cookies.SaveCookies(data); err != nil {
		logrus.WithField("session", s.key).Warnf("保存 cookies 失败: %v", err)
		return
	}
	logrus.WithField("session", s.key).Info("登录 cookies 已保存")
}
