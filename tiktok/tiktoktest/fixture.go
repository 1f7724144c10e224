// Package tiktoktest 在内存假页面上搭建一个视频页面，供会话和接口层测试使用。
package tiktoktest

import (
	"fmt"

	"github.com/xpzouying/tiktok-reply-mcp/page/pagetest"
)

// 各组选择器中的首选表达式
const (
	LoginButton   = "//button[contains(text(), 'Log in')]"
	Title         = "//h1[@data-e2e='video-title']"
	Hashtag       = "//a[@data-e2e='browse-video-hashtag']"
	CommentItem   = "//div[@data-e2e='comment-item']"
	Container     = "//div[contains(@class, 'DivCommentListContainer')]"
	Block         = ".//div[contains(@class, 'DivCommentContentWrapper')]"
	Username      = ".//div[@data-e2e='comment-username-1']//a"
	CommentText   = ".//span[@data-e2e='comment-level-1']/p"
	ReplyButton   = ".//button[@data-e2e='reply-button']"
	ReplyInput    = "//div[@data-e2e='comment-input']//div[@contenteditable='true']"
	PublishButton = "//div[@data-e2e='comment-post' and @role='button' and @aria-disabled='false']"
)

// Comment 页面上的一条评论，User 形如 "@handle"
type Comment struct {
	User string
	Text string
}

// Video 要搭建的视频页面
type Video struct {
	Title        string
	Hashtags     []string
	Comments     []Comment
	RequireLogin bool
	// NoContainer 页面上没有评论容器
	NoContainer bool
}

// Fixture 搭建好的假页面
type Fixture struct {
	Driver *pagetest.Driver

	Login        *pagetest.Node
	Container    *pagetest.Node
	Blocks       []*pagetest.Node
	ReplyButtons []*pagetest.Node
	Input        *pagetest.Node
	Publish      *pagetest.Node
}

// New 按 v 搭建页面。评论区默认已展开，滚动一次后高度不再变化。
func New(v Video) *Fixture {
	drv := pagetest.New()
	f := &Fixture{Driver: drv}

	if v.RequireLogin {
		f.Login = pagetest.NewNode("login", "Log in")
		drv.Set(LoginButton, f.Login)
	}
	if v.Title != "" {
		drv.Set(Title, pagetest.NewNode("title", v.Title))
	}
	for _, tag := range v.Hashtags {
		drv.Doc[Hashtag] = append(drv.Doc[Hashtag], pagetest.NewNode("hashtag", tag))
	}

	if !v.NoContainer {
		f.Container = pagetest.NewNode("container", "")
		f.Container.Extent = 1200
		drv.Set(Container, f.Container)
	}

	for i, c := range v.Comments {
		user := pagetest.NewNode(fmt.Sprintf("username-%d", i+1), c.User).
			WithAttr("href", "https://www.tiktok.com/"+c.User+"?lang=fr")
		btn := pagetest.NewNode(fmt.Sprintf("reply-%d", i+1), "Reply")
		block := pagetest.NewNode(fmt.Sprintf("block-%d", i+1), "").
			WithChild(Username, user).
			WithChild(CommentText, pagetest.NewNode("text", c.Text)).
			WithChild(ReplyButton, btn)

		f.Blocks = append(f.Blocks, block)
		f.ReplyButtons = append(f.ReplyButtons, btn)
		drv.Doc[CommentItem] = append(drv.Doc[CommentItem], block)
	}
	if f.Container != nil && len(f.Blocks) > 0 {
		f.Container.WithChild(Block, f.Blocks...)
	}

	f.Input = pagetest.NewNode("reply-input", "")
	drv.Set(ReplyInput, f.Input)
	f.Publish = pagetest.NewNode("publish", "Post")
	drv.Set(PublishButton, f.Publish)

	return f
}

// ConfirmLogin 模拟用户完成手动登录
func (f *Fixture) ConfirmLogin() {
	f.Driver.Remove(LoginButton)
}
