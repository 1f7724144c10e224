package session

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/xpzouying/tiktok-reply-mcp/page"
	"github.com/xpzouying/tiktok-reply-mcp/progress"
	"github.com/xpzouying/tiktok-reply-mcp/tiktok"
)

// 每个阶段只接收上一阶段保证存在的数据

type opened struct {
	drv page.Driver
	tp  *tiktok.Page
}

type loggedIn struct {
	opened
}

type withMetadata struct {
	loggedIn
	meta tiktok.VideoMetadata
}

type withContainer struct {
	withMetadata
	collector *tiktok.Collector
	container page.Handle
}

type withComments struct {
	withMetadata
	comments []tiktok.Comment
}

// pipeline 打开视频直到评论抓取完成，停在 READY_FOR_RESPONSES
func (o *Orchestrator) pipeline(ctx context.Context, s *Session) {
	op, needsLogin, err := o.open(ctx, s)
	if err != nil {
		o.fail(ctx, s, err)
		return
	}

	var li loggedIn
	if needsLogin {
		li, err = o.awaitLogin(ctx, s, op)
	} else {
		o.emit(s, progress.StepLoggedIn, 30, "已登录，开始抓取", nil)
		li = loggedIn{op}
	}
	if err != nil {
		o.fail(ctx, s, err)
		return
	}

	release, err := s.lease.Acquire(ctx)
	if err != nil {
		o.fail(ctx, s, err)
		return
	}
	defer release()

	wm, err := o.extractMetadata(ctx, s, li)
	if err != nil {
		o.fail(ctx, s, err)
		return
	}
	wc, err := o.loadComments(ctx, s, wm)
	if err != nil {
		o.fail(ctx, s, err)
		return
	}
	done, err := o.scrapeComments(ctx, s, wc)
	if err != nil {
		o.fail(ctx, s, err)
		return
	}
	o.ready(s, done)
}

// open 启动浏览器、打开视频页并检查是否需要登录
func (o *Orchestrator) open(ctx context.Context, s *Session) (opened, bool, error) {
	release, err := s.lease.Acquire(ctx)
	if err != nil {
		return opened{}, false, err
	}
	defer release()

	o.emit(s, progress.StepInit, 5, "正在启动浏览器", nil)
	drv, err := o.opts.Opener.Open(ctx)
	if err != nil {
		return opened{}, false, errors.Wrap(err, "browser could not be initialized")
	}
	tp := tiktok.NewPage(page.NewController(drv), o.opts.Timing)

	s.mu.Lock()
	s.drv, s.tp = drv, tp
	s.mu.Unlock()

	if err := tp.Open(ctx, s.cfg.URL); err != nil {
		return opened{}, false, errors.Wrap(err, "open video page")
	}

	o.emit(s, progress.StepLoginCheck, 15, "正在检查登录状态", nil)
	needsLogin, err := tp.NeedsLogin(ctx)
	if err != nil {
		return opened{}, false, errors.Wrap(err, "check login")
	}
	return opened{drv: drv, tp: tp}, needsLogin, nil
}

// awaitLogin 挂起流水线直到收到继续请求或会话被删除，等待期间不驱动页面
func (o *Orchestrator) awaitLogin(ctx context.Context, s *Session, op opened) (loggedIn, error) {
	s.setState(StateAwaitingLogin)
	o.emit(s, progress.StepLoginRequired, 20, "需要登录", nil)
	o.emit(s, progress.StepManualLogin, 25, "请在浏览器中手动登录，完成后点击继续", map[string]any{"requires_action": true})
	o.emit(s, progress.StepWaitingLogin, 25, "等待手动登录", nil)

	select {
	case <-s.resume:
	case <-ctx.Done():
		return loggedIn{}, ctx.Err()
	}

	o.emit(s, progress.StepResuming, 35, "继续抓取", nil)
	o.saveCookies(s, op.drv)
	return loggedIn{op}, nil
}

func (o *Orchestrator) extractMetadata(ctx context.Context, s *Session, li loggedIn) (withMetadata, error) {
	s.setState(StateExtractingMetadata)
	o.emit(s, progress.StepVideoExtraction, 40, "正在提取视频信息", nil)

	meta, err := li.tp.ExtractMetadata(ctx, s.cfg.URL)
	if err != nil {
		return withMetadata{}, errors.Wrap(err, "extract video info")
	}

	s.mu.Lock()
	s.meta = &meta
	s.mu.Unlock()

	o.emit(s, progress.StepVideoExtracted, 50, "视频: "+meta.Title, meta)
	return withMetadata{loggedIn: li, meta: meta}, nil
}

func (o *Orchestrator) loadComments(ctx context.Context, s *Session, wm withMetadata) (withContainer, error) {
	s.setState(StateLoadingComments)
	o.emit(s, progress.StepCommentsLoading, 60, "正在加载评论", nil)

	c := tiktok.NewCollector(wm.tp)
	if _, err := c.EnsureCommentsVisible(ctx); err != nil {
		return withContainer{}, errors.Wrap(err, "open comments")
	}
	o.emit(s, progress.StepCommentsOpened, 65, "评论区已打开", nil)

	container, err := c.FindContainer(ctx)
	if err != nil {
		return withContainer{}, err
	}

	_, err = c.LoadAll(ctx, container, func(n, max int) {
		pct := 65 + min(10, n*10/max)
		o.emit(s, progress.StepCommentsLoading, pct, fmt.Sprintf("正在加载评论... (%d/%d)", n, max), nil)
	})
	if err != nil {
		return withContainer{}, errors.Wrap(err, "load comments")
	}
	return withContainer{withMetadata: wm, collector: c, container: container}, nil
}

func (o *Orchestrator) scrapeComments(ctx context.Context, s *Session, wc withContainer) (withComments, error) {
	s.setState(StateScrapingComments)
	o.emit(s, progress.StepCommentsScraping, 75, "正在抓取评论", nil)

	comments, err := wc.collector.ExtractAll(ctx, wc.container, s.cfg.OwnerFilter())
	if err != nil {
		return withComments{}, errors.Wrap(err, "scrape comments")
	}
	if len(comments) == 0 {
		return withComments{}, tiktok.ErrNoComments
	}
	return withComments{withMetadata: wc.withMetadata, comments: comments}, nil
}

func (o *Orchestrator) ready(s *Session, wc withComments) {
	s.mu.Lock()
	s.comments = wc.comments
	s.setStateLocked(StateReadyForResponses)
	s.mu.Unlock()

	logrus.WithField("session", s.key).Infof("抓取完成: %d 条评论", len(wc.comments))
	o.emit(s, progress.StepCompleted, 100, fmt.Sprintf("抓取完成: %d 条评论", len(wc.comments)), map[string]any{
		"comments_count": len(wc.comments),
		"video_info":     wc.meta,
	})
}
