package tiktok

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/xpzouying/tiktok-reply-mcp/page"
)

var (
	errNoRef           = errors.New("comment is not linked to a page element")
	errNoReplyButton   = errors.New("reply button not found within the comment")
	errNoReplyInput    = errors.New("reply input field not found")
	errNoPublishButton = errors.New("publish button not found")
)

// PublishItem 一条待发布的回复
type PublishItem struct {
	ID       int
	Username string
	Text     string
	// Ref 原评论的元素句柄，为空时无法回复
	Ref *page.Handle
}

// ItemOutcome 单条回复的发布结果
type ItemOutcome struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

// PublishReport 一批回复的发布结果，Items 与提交顺序一致
type PublishReport struct {
	Attempted int           `json:"attempted"`
	Succeeded int           `json:"succeeded"`
	Items     []ItemOutcome `json:"items"`
}

// Publisher 在评论下逐条发布回复
type Publisher struct {
	p *Page
}

// NewPublisher 创建回复发布器
func NewPublisher(p *Page) *Publisher {
	return &Publisher{p: p}
}

// Publish 按顺序发布回复。单条失败只记录结果，不中断整批；失败的条目不会自动重试。
// 每两条之间固定间隔 PublishPacing，无论上一条是否成功。
// onItem 在每条完成后调用，ctx 结束时返回已完成部分的报告和 ctx 错误。
func (pub *Publisher) Publish(ctx context.Context, items []PublishItem, onItem func(i int, out ItemOutcome)) (PublishReport, error) {
	report := PublishReport{Items: make([]ItemOutcome, 0, len(items))}

	for i, item := range items {
		if i > 0 {
			if err := page.Sleep(ctx, pub.p.timing.PublishPacing); err != nil {
				return report, err
			}
		}

		out := ItemOutcome{ID: item.ID, Username: item.Username}
		err := pub.publishOne(ctx, item)
		if err != nil && ctx.Err() != nil {
			return report, ctx.Err()
		}

		report.Attempted++
		if err != nil {
			out.Error = err.Error()
			logrus.WithError(err).Warnf("回复 %d (%s) 发布失败", item.ID, item.Username)
		} else {
			out.Success = true
			report.Succeeded++
			logrus.Infof("回复 %d (%s) 发布成功: %s", item.ID, item.Username, preview(item.Text, 60))
		}
		report.Items = append(report.Items, out)

		if onItem != nil {
			onItem(i, out)
		}
	}

	logrus.Infof("发布完成: %d/%d 成功", report.Succeeded, report.Attempted)
	return report, nil
}

func (pub *Publisher) publishOne(ctx context.Context, item PublishItem) error {
	ctrl, loc, t := pub.p.ctrl, pub.p.loc, pub.p.timing

	if item.Ref == nil || item.Ref.IsZero() {
		return errNoRef
	}
	if !ctrl.Valid(*item.Ref) {
		return page.ErrStaleHandle
	}

	btn, found, err := loc.Locate(ctx, replyButtonSelectors, item.Ref)
	if err != nil {
		return err
	}
	if !found {
		return errNoReplyButton
	}
	if err := ctrl.ScrollIntoView(ctx, btn); err != nil {
		return errors.Wrap(err, "scroll to reply button")
	}
	if err := page.Sleep(ctx, t.ReplyClickSettle); err != nil {
		return err
	}
	if err := ctrl.Click(ctx, btn); err != nil {
		return errors.Wrap(err, "click reply button")
	}

	input, found, err := loc.Wait(ctx, replyInputSelectors, nil, t.ReplyFieldWait, page.WaitOptions{Visible: true})
	if err != nil {
		return err
	}
	if !found {
		return errNoReplyInput
	}
	if err := ctrl.ScrollIntoView(ctx, input); err != nil {
		return errors.Wrap(err, "scroll to reply input")
	}
	if err := ctrl.Click(ctx, input); err != nil {
		return errors.Wrap(err, "focus reply input")
	}
	if err := ctrl.SetEditableText(ctx, input, item.Text); err != nil {
		return errors.Wrap(err, "enter reply text")
	}
	if err := page.Sleep(ctx, t.TextSettle); err != nil {
		return err
	}

	submit, err := pub.publishButton(ctx)
	if err != nil {
		return err
	}
	if err := ctrl.ScrollIntoView(ctx, submit); err != nil {
		return errors.Wrap(err, "scroll to publish button")
	}
	if err := page.Sleep(ctx, t.SubmitSettle); err != nil {
		return err
	}
	if err := ctrl.Click(ctx, submit); err != nil {
		return errors.Wrap(err, "click publish button")
	}
	return page.Sleep(ctx, t.PostSubmitSettle)
}

// publishButton 有两个发布按钮时第二个属于行内回复框，只有一个时直接使用
func (pub *Publisher) publishButton(ctx context.Context) (page.Handle, error) {
	buttons, _, err := pub.p.loc.LocateAll(ctx, publishButtonSelectors, nil)
	if err != nil {
		return page.Handle{}, err
	}
	switch {
	case len(buttons) >= 2:
		return buttons[1], nil
	case len(buttons) == 1:
		return buttons[0], nil
	default:
		return page.Handle{}, errNoPublishButton
	}
}

// String 便于日志输出
func (r PublishReport) String() string {
	return fmt.Sprintf("%d/%d succeeded", r.Succeeded, r.Attempted)
}
