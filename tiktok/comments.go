package tiktok

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/xpzouying/tiktok-reply-mcp/page"
)

// OwnerFilter 排除视频作者自己的评论
type OwnerFilter struct {
	Enabled bool
	Handle  string
}

// NormalizeHandle 去掉首尾空白和一个前导 @，再转小写
func NormalizeHandle(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "@")
	return strings.ToLower(strings.TrimSpace(s))
}

// Excludes username 是否属于作者本人
func (f OwnerFilter) Excludes(username string) bool {
	if !f.Enabled {
		return false
	}
	owner := NormalizeHandle(f.Handle)
	return owner != "" && NormalizeHandle(username) == owner
}

// Collector 评论区的展开、滚动加载和抽取
type Collector struct {
	p *Page
}

// NewCollector 创建评论采集器
func NewCollector(p *Page) *Collector {
	return &Collector{p: p}
}

// EnsureCommentsVisible 等待评论出现，超时后尝试点击评论按钮展开评论区。
// 返回是否点击了评论按钮。按钮不存在时视为评论区已经展开。
func (c *Collector) EnsureCommentsVisible(ctx context.Context) (bool, error) {
	t := c.p.timing

	_, found, err := c.p.loc.Wait(ctx, commentItemSelectors, nil, t.CommentsWait, page.WaitOptions{})
	if err != nil {
		return false, err
	}
	if found {
		return false, nil
	}

	logrus.Warn("评论未出现，尝试展开评论区")
	btn, found, err := c.p.loc.Wait(ctx, showCommentsSelectors, nil, t.ShowCommentsWait, page.WaitOptions{Visible: true})
	if err != nil {
		return false, err
	}
	if !found {
		logrus.Info("未找到评论按钮，评论区可能已经展开")
		return false, nil
	}

	if err := c.p.ctrl.Click(ctx, btn); err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		logrus.Warnf("点击评论按钮失败: %v", err)
		return false, nil
	}
	if err := page.Sleep(ctx, t.CommentsOpenSettle); err != nil {
		return true, err
	}
	return true, nil
}

// FindContainer 等待评论列表容器，找不到返回 ErrNoCommentContainer
func (c *Collector) FindContainer(ctx context.Context) (page.Handle, error) {
	h, found, err := c.p.loc.Wait(ctx, commentContainerSelectors, nil, c.p.timing.ContainerWait, page.WaitOptions{})
	if err != nil {
		return page.Handle{}, err
	}
	if !found {
		return page.Handle{}, ErrNoCommentContainer
	}
	logrus.Info("找到评论容器")
	return h, nil
}

// LoadAll 反复把容器滚动到底部，直到高度不再变化或达到最大滚动次数。
// onIteration 在每次滚动后调用，参数为已滚动次数和上限。返回实际滚动次数。
func (c *Collector) LoadAll(ctx context.Context, container page.Handle, onIteration func(n, max int)) (int, error) {
	t := c.p.timing
	maxScrolls := t.MaxScrolls
	if maxScrolls <= 0 {
		maxScrolls = DefaultMaxScrolls
	}

	last, err := c.p.ctrl.ScrollExtent(ctx, container)
	if err != nil {
		return 0, errors.Wrap(err, "read scroll extent")
	}

	n := 0
	for n < maxScrolls {
		if _, err := c.p.ctrl.ScrollToBottom(ctx, container); err != nil {
			return n, errors.Wrap(err, "scroll comment container")
		}
		if err := page.Sleep(ctx, t.ScrollSettle); err != nil {
			return n, err
		}

		current, err := c.p.ctrl.ScrollExtent(ctx, container)
		if err != nil {
			return n, errors.Wrap(err, "read scroll extent")
		}
		n++

		if onIteration != nil {
			onIteration(n, maxScrolls)
		}

		if current == last {
			logrus.Infof("评论已全部加载，共滚动 %d 次", n)
			return n, nil
		}
		last = current
	}

	logrus.Infof("达到最大滚动次数 %d，停止加载", maxScrolls)
	return n, nil
}

// ExtractAll 抽取全部评论块。
// 先在容器内查找评论块，容器内没有时再在整个文档中查找。
// 文本为空的块和作者本人的评论被跳过，保留下来的评论从 1 开始连续编号。
func (c *Collector) ExtractAll(ctx context.Context, container page.Handle, owner OwnerFilter) ([]Comment, error) {
	var scope *page.Handle
	if !container.IsZero() {
		scope = &container
	}

	blocks, found, err := c.p.loc.LocateAll(ctx, commentBlockSelectors, scope)
	if err != nil {
		return nil, err
	}
	if !found && scope != nil {
		blocks, _, err = c.p.loc.LocateAll(ctx, commentBlockSelectors, nil)
		if err != nil {
			return nil, err
		}
	}
	logrus.Infof("找到 %d 个评论块", len(blocks))

	comments := make([]Comment, 0, len(blocks))
	for i, block := range blocks {
		index := i + 1

		username, text, err := c.extractBlock(ctx, block, index)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, page.ErrStaleHandle) {
				return nil, err
			}
			logrus.Warnf("评论块 %d 抽取失败，跳过: %v", index, err)
			continue
		}

		if text == "" {
			logrus.Debugf("评论块 %d 没有文本，跳过", index)
			continue
		}
		if owner.Excludes(username) {
			logrus.Debugf("评论块 %d 来自作者 %s，跳过", index, username)
			continue
		}

		comments = append(comments, Comment{
			ID:       len(comments) + 1,
			Username: username,
			Text:     text,
			Ref:      block,
		})
	}

	logrus.Infof("共抽取 %d 条评论", len(comments))
	return comments, nil
}

func (c *Collector) extractBlock(ctx context.Context, block page.Handle, index int) (username, text string, err error) {
	username, err = c.username(ctx, block)
	if err != nil {
		return "", "", err
	}
	if username == "" {
		username = fmt.Sprintf("@user_%d", index)
	}

	text, _, err = page.FirstValue(ctx, c.p.loc, commentTextSelectors, &block, c.p.loc.TextOf(ctx))
	if err != nil {
		return "", "", err
	}
	return username, text, nil
}

// username 主页链接规整为 @handle，否则使用链接文本；都没有时退回到昵称
func (c *Collector) username(ctx context.Context, block page.Handle) (string, error) {
	name, ok, err := page.FirstValue(ctx, c.p.loc, usernameSelectors, &block, func(h page.Handle) (string, error) {
		href, has, err := c.p.ctrl.Attribute(ctx, h, "href")
		if err != nil {
			return "", err
		}
		if has {
			if handle := handleFromHref(href); handle != "" {
				return handle, nil
			}
		}
		return c.p.ctrl.Text(ctx, h)
	})
	if err != nil || ok {
		return name, err
	}

	name, _, err = page.FirstValue(ctx, c.p.loc, displayNameSelectors, &block, c.p.loc.TextOf(ctx))
	return name, err
}
