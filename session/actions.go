package session

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/xpzouying/tiktok-reply-mcp/history"
	"github.com/xpzouying/tiktok-reply-mcp/progress"
	"github.com/xpzouying/tiktok-reply-mcp/reply"
	"github.com/xpzouying/tiktok-reply-mcp/tiktok"
)

// Generate 为已抓取的评论批量生成回复，完成后进入 AWAITING_VALIDATION。
// 生成失败或没有可用回复时会话进入 ERROR，评论仍然保留，可以再次生成。
func (o *Orchestrator) Generate(ctx context.Context, key string) ([]reply.Reply, error) {
	s, err := o.Get(key)
	if err != nil {
		return nil, err
	}

	comments, meta, prev, err := s.beginGenerate()
	if err != nil {
		return nil, err
	}
	defer s.tasks.Done()

	ctx, cancel := s.join(ctx)
	defer cancel()

	client, err := o.opts.LLM(ctx, s.cfg)
	if err != nil {
		err = errors.Wrap(err, "create llm client")
		o.fail(ctx, s, err)
		return nil, err
	}

	o.emit(s, progress.StepGenerating, 10, fmt.Sprintf("正在为 %d 条评论生成回复", len(comments)), nil)
	replies := reply.NewGenerator(client).Generate(ctx, comments, s.cfg.ReplyOptions(meta))

	if ctx.Err() != nil {
		if s.ctx.Err() == nil {
			s.setState(prev)
		}
		return nil, ctx.Err()
	}
	if len(replies) == 0 {
		o.fail(ctx, s, ErrNoReplies)
		return nil, ErrNoReplies
	}

	s.mu.Lock()
	s.replies = replies
	s.lastErr = ""
	s.setStateLocked(StateAwaitingValidation)
	s.mu.Unlock()

	o.emit(s, progress.StepResponsesReady, 100, fmt.Sprintf("已生成 %d 条回复", len(replies)), map[string]any{
		"count": len(replies),
	})
	return slices.Clone(replies), nil
}

// beginGenerate 检查状态并切换到 GENERATING，登记为会话任务
func (s *Session) beginGenerate() ([]tiktok.Comment, *tiktok.VideoMetadata, State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, nil, "", ErrClosed
	}
	prev := s.state
	switch prev {
	case StateReadyForResponses, StateAwaitingValidation:
	case StateError:
		if len(s.comments) == 0 {
			return nil, nil, "", errors.Wrap(ErrInvalidState, "no comments to reply to")
		}
	default:
		return nil, nil, "", errors.Wrapf(ErrInvalidState, "cannot generate while %s", prev)
	}

	var meta *tiktok.VideoMetadata
	if s.meta != nil {
		m := *s.meta
		meta = &m
	}
	s.tasks.Add(1)
	s.setStateLocked(StateGenerating)
	return slices.Clone(s.comments), meta, prev, nil
}

// Validate 审核一条回复：通过、拒绝，text 非 nil 时同时修改回复内容
func (o *Orchestrator) Validate(key string, id int, action reply.Action, text *string) (reply.Reply, error) {
	s, err := o.Get(key)
	if err != nil {
		return reply.Reply{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAwaitingValidation {
		return reply.Reply{}, errors.Wrapf(ErrInvalidState, "cannot validate while %s", s.state)
	}
	r, err := reply.Apply(s.replies, id, action, text)
	if err != nil {
		return reply.Reply{}, err
	}
	s.updated = time.Now()
	logrus.WithFields(logrus.Fields{"session": key, "id": id, "action": action, "modified": r.Modified}).Info("回复已审核")
	return r, nil
}

// Publish 在后台发布已通过审核的回复，ids 非空时只发布其中的回复。返回待发布数量。
func (o *Orchestrator) Publish(key string, ids []int) (int, error) {
	s, err := o.Get(key)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	if s.state != StateAwaitingValidation {
		st := s.state
		s.mu.Unlock()
		return 0, errors.Wrapf(ErrInvalidState, "cannot publish while %s", st)
	}
	approved := reply.Approved(s.replies, ids)
	if len(approved) == 0 {
		s.mu.Unlock()
		return 0, ErrNothingToPublish
	}
	var meta tiktok.VideoMetadata
	if s.meta != nil {
		meta = *s.meta
	}
	s.setStateLocked(StatePublishing)
	s.mu.Unlock()

	err = s.goTask("publish", func(ctx context.Context) {
		o.publishReplies(ctx, s, approved, meta)
	})
	if err != nil {
		return 0, err
	}
	return len(approved), nil
}

func (o *Orchestrator) publishReplies(ctx context.Context, s *Session, approved []reply.Reply, meta tiktok.VideoMetadata) {
	release, err := s.lease.Acquire(ctx)
	if err != nil {
		return
	}
	defer release()

	s.mu.Lock()
	tp := s.tp
	s.mu.Unlock()
	if tp == nil {
		o.publishFailed(ctx, s, errors.New("browser page is not available"))
		return
	}

	items := make([]tiktok.PublishItem, len(approved))
	for i, r := range approved {
		items[i] = tiktok.PublishItem{ID: r.ID, Username: r.Username, Text: r.Response, Ref: r.Ref}
	}
	total := len(items)

	o.publish(s, progress.New(progress.StepPublishing, 0, fmt.Sprintf("开始发布 %d 条回复", total),
		map[string]any{"total": total}).WithType(progress.TypePublishing))

	report, err := tiktok.NewPublisher(tp).Publish(ctx, items, func(i int, out tiktok.ItemOutcome) {
		o.publish(s, progress.New(progress.StepPublishingProgress, (i+1)*100/total,
			fmt.Sprintf("已发布 %d/%d", i+1, total),
			map[string]any{"current": i + 1, "total": total, "item": out}).WithType(progress.TypePublishingProgress))
	})
	if err != nil {
		o.publishFailed(ctx, s, err)
		return
	}

	o.record(ctx, s, approved, meta, report)

	s.mu.Lock()
	s.report = &report
	s.setStateLocked(StateDone)
	s.mu.Unlock()

	o.publish(s, progress.New(progress.StepPublishingComplete, 100,
		fmt.Sprintf("发布完成: %d/%d 成功", report.Succeeded, report.Attempted), report).WithType(progress.TypePublishingComplete))
}

func (o *Orchestrator) publishFailed(ctx context.Context, s *Session, err error) {
	if ctx.Err() != nil {
		return
	}
	o.failWith(ctx, s, err, progress.New(progress.StepError, 0, "发布失败: "+err.Error(),
		map[string]any{"error": err.Error()}).WithType(progress.TypePublishingError))
}

func (o *Orchestrator) record(ctx context.Context, s *Session, approved []reply.Reply, meta tiktok.VideoMetadata, report tiktok.PublishReport) {
	if o.opts.History == nil {
		return
	}
	now := time.Now()
	entries := make([]history.Entry, 0, len(report.Items))
	for i, out := range report.Items {
		r := approved[i]
		entries = append(entries, history.Entry{
			SessionID:   s.key,
			VideoURL:    s.cfg.URL,
			VideoTitle:  meta.Title,
			CommentID:   r.ID,
			Username:    r.Username,
			CommentText: r.CommentText,
			Reply:       r.Response,
			Modified:    r.Modified,
			Success:     out.Success,
			Error:       out.Error,
			PublishedAt: now,
		})
	}
	if err := o.opts.History.RecordPublish(ctx, entries); err != nil {
		logrus.WithField("session", s.key).Warnf("保存发布记录失败: %v", err)
	}
}
