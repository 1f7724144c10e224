package page

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultPollInterval 等待元素出现时的轮询间隔
const DefaultPollInterval = 250 * time.Millisecond

// Locator 按顺序尝试多条选择器策略，返回第一条命中的结果。
// 目标页面的 DOM 结构在不同版本和语言下经常变化，单一选择器非常脆弱。
type Locator struct {
	ctrl     *Controller
	interval time.Duration
}

// NewLocator 创建定位器
func NewLocator(ctrl *Controller) *Locator {
	return &Locator{ctrl: ctrl, interval: DefaultPollInterval}
}

// WithPollInterval 返回使用指定轮询间隔的定位器副本
func (l *Locator) WithPollInterval(d time.Duration) *Locator {
	cp := *l
	cp.interval = d
	return &cp
}

// Controller 返回定位器使用的页面控制器
func (l *Locator) Controller() *Controller {
	return l.ctrl
}

// fatal 单条策略失败时是否需要中止整条策略链
func fatal(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, ErrStaleHandle) || errors.Is(err, ErrInvalidHandle)
}

// LocateAll 返回第一条有匹配的策略的全部元素。
// 单条策略的未命中或查询错误只会让定位器继续尝试下一条。
func (l *Locator) LocateAll(ctx context.Context, strategies Strategies, scope *Handle) ([]Handle, bool, error) {
	for _, sel := range strategies {
		handles, err := l.ctrl.Query(ctx, scope, sel)
		if err != nil {
			if fatal(ctx, err) {
				if ctx.Err() != nil {
					return nil, false, ctx.Err()
				}
				return nil, false, err
			}
			logrus.Debugf("选择器 %s 查询失败，尝试下一条: %v", sel, err)
			continue
		}
		if len(handles) > 0 {
			logrus.Debugf("选择器 %s 命中 %d 个元素", sel, len(handles))
			return handles, true, nil
		}
	}
	return nil, false, nil
}

// Locate 返回第一条有匹配的策略的第一个元素
func (l *Locator) Locate(ctx context.Context, strategies Strategies, scope *Handle) (Handle, bool, error) {
	handles, ok, err := l.LocateAll(ctx, strategies, scope)
	if err != nil || !ok {
		return Handle{}, false, err
	}
	return handles[0], true, nil
}

// WaitOptions 等待元素时的条件
type WaitOptions struct {
	// Visible 只接受可见元素
	Visible bool
}

// Wait 在 timeout 内轮询策略链，直到某条策略命中（可选要求可见）。
// 超时返回未找到而不是错误，由调用方决定是否致命。
func (l *Locator) Wait(ctx context.Context, strategies Strategies, scope *Handle, timeout time.Duration, opts WaitOptions) (Handle, bool, error) {
	deadline := time.Now().Add(timeout)

	for {
		h, ok, err := l.firstMatch(ctx, strategies, scope, opts)
		if err != nil {
			return Handle{}, false, err
		}
		if ok {
			return h, true, nil
		}
		if !time.Now().Before(deadline) {
			return Handle{}, false, nil
		}
		if err := Sleep(ctx, l.interval); err != nil {
			return Handle{}, false, err
		}
	}
}

func (l *Locator) firstMatch(ctx context.Context, strategies Strategies, scope *Handle, opts WaitOptions) (Handle, bool, error) {
	if !opts.Visible {
		return l.Locate(ctx, strategies, scope)
	}

	for _, sel := range strategies {
		handles, err := l.ctrl.Query(ctx, scope, sel)
		if err != nil {
			if fatal(ctx, err) {
				if ctx.Err() != nil {
					return Handle{}, false, ctx.Err()
				}
				return Handle{}, false, err
			}
			continue
		}
		for _, h := range handles {
			visible, err := l.ctrl.Visible(ctx, h)
			if err == nil && visible {
				return h, true, nil
			}
		}
	}
	return Handle{}, false, nil
}

// FirstValue 依次尝试策略，对每条策略的第一个元素调用 fn，
// 返回第一个非空（去除首尾空白后）的结果。
func FirstValue(ctx context.Context, l *Locator, strategies Strategies, scope *Handle, fn func(Handle) (string, error)) (string, bool, error) {
	for _, sel := range strategies {
		h, ok, err := l.Locate(ctx, Strategies{sel}, scope)
		if err != nil {
			return "", false, err
		}
		if !ok {
			continue
		}

		v, err := fn(h)
		if err != nil {
			if fatal(ctx, err) {
				if ctx.Err() != nil {
					return "", false, ctx.Err()
				}
				return "", false, err
			}
			logrus.Debugf("选择器 %s 读取失败，尝试下一条: %v", sel, err)
			continue
		}
		if v = strings.TrimSpace(v); v != "" {
			return v, true, nil
		}
	}
	return "", false, nil
}

// TextOf 返回读取元素文本的 FirstValue 回调
func (l *Locator) TextOf(ctx context.Context) func(Handle) (string, error) {
	return func(h Handle) (string, error) {
		return l.ctrl.Text(ctx, h)
	}
}
