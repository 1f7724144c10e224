// Package batch 同时为多个视频运行会话流水线，每个视频一个独立会话和浏览器。
package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/xpzouying/tiktok-reply-mcp/page"
	"github.com/xpzouying/tiktok-reply-mcp/session"
)

// DefaultLoginWait 需要登录时留给用户手动登录的时间
const DefaultLoginWait = 60 * time.Second

// Options 批量运行参数
type Options struct {
	// LoginWait 进入等待登录后多久自动继续
	LoginWait time.Duration
	// Generate 抓取完成后是否生成回复
	Generate bool
	// Base 每个会话共用的配置，URL 会被替换
	Base session.Config
	// KeepSessions 完成后保留会话（默认删除并关闭浏览器）
	KeepSessions bool
}

// Result 单个视频的运行结果
type Result struct {
	SessionID string        `json:"session_id"`
	URL       string        `json:"url"`
	View      *session.View `json:"session,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// OK 是否成功完成
func (r *Result) OK() bool {
	return r.Error == "" && r.View != nil
}

// RunParallel 为每个 URL 启动一个会话并等待全部结束。
// 至少一个视频成功时返回 nil 错误，失败原因记录在各自的 Result 中。
func RunParallel(ctx context.Context, o *session.Orchestrator, urls []string, opts Options) ([]*Result, error) {
	if len(urls) == 0 {
		return nil, errors.New("no video urls")
	}
	if opts.LoginWait <= 0 {
		opts.LoginWait = DefaultLoginWait
	}

	results := make([]*Result, len(urls))
	var wg sync.WaitGroup

	for i, u := range urls {
		results[i] = &Result{SessionID: fmt.Sprintf("batch%d", i+1), URL: u}

		wg.Add(1)
		go func(res *Result) {
			defer wg.Done()
			if err := runOne(ctx, o, res, opts); err != nil {
				res.Error = err.Error()
				logrus.WithError(err).WithField("session", res.SessionID).Warn("视频处理失败")
			}
		}(results[i])
	}

	wg.Wait()

	for _, res := range results {
		if res.OK() {
			return results, nil
		}
	}
	return results, errors.New("all videos failed")
}

func runOne(ctx context.Context, o *session.Orchestrator, res *Result, opts Options) error {
	cfg := opts.Base
	cfg.URL = res.URL

	logrus.WithFields(logrus.Fields{"session": res.SessionID, "url": res.URL}).Info("启动批量会话")
	if _, err := o.Start(res.SessionID, cfg); err != nil {
		return err
	}
	if !opts.KeepSessions {
		defer func() {
			if err := o.Delete(res.SessionID); err != nil && !errors.Is(err, session.ErrSessionNotFound) {
				logrus.WithError(err).WithField("session", res.SessionID).Warn("删除会话失败")
			}
		}()
	}

	st, err := o.WaitFor(ctx, res.SessionID, session.StateAwaitingLogin, session.StateReadyForResponses, session.StateError)
	if err != nil {
		return err
	}

	if st == session.StateAwaitingLogin {
		// 有界面模式下用户可以在窗口里登录，等待窗口结束后继续
		logrus.WithField("session", res.SessionID).Infof("需要登录，请在 %s 内完成登录", opts.LoginWait)
		if err := page.Sleep(ctx, opts.LoginWait); err != nil {
			return errors.Wrap(err, "login wait cancelled")
		}
		if err := o.Resume(res.SessionID); err != nil {
			return err
		}
		st, err = o.WaitFor(ctx, res.SessionID, session.StateReadyForResponses, session.StateError)
		if err != nil {
			return err
		}
	}

	if st == session.StateError {
		view, _ := o.Snapshot(res.SessionID)
		res.View = &view
		return errors.New(view.Error)
	}

	if opts.Generate {
		if _, err := o.Generate(ctx, res.SessionID); err != nil {
			view, _ := o.Snapshot(res.SessionID)
			res.View = &view
			return errors.Wrap(err, "generate replies")
		}
	}

	view, err := o.Snapshot(res.SessionID)
	if err != nil {
		return err
	}
	res.View = &view
	logrus.WithField("session", res.SessionID).Infof("完成: %d 条评论, %d 条回复", len(view.Comments), len(view.Replies))
	return nil
}
