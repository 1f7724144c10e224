package tiktok

import (
	"github.com/pkg/errors"

	"github.com/xpzouying/tiktok-reply-mcp/page"
)

// TitleNotFound 所有标题选择器都未命中时使用的占位标题
const TitleNotFound = "Titre non trouvé"

var (
	// ErrNoCommentContainer 评论容器始终未出现，评论阶段无法继续
	ErrNoCommentContainer = errors.New("tiktok: comment container not found")
	// ErrNoComments 评论区没有可用评论
	ErrNoComments = errors.New("tiktok: no comments found")
)

// VideoMetadata 视频信息
type VideoMetadata struct {
	Title    string   `json:"title"`
	Hashtags []string `json:"hashtags"`
	URL      string   `json:"url"`
}

// Comment 一条评论。ID 从 1 开始，按保留下来的评论顺序连续编号。
type Comment struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Text     string `json:"text"`

	// Ref 评论在页面上的元素句柄，仅用于之后回复，不序列化
	Ref page.Handle `json:"-"`
}
