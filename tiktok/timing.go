package tiktok

import "time"

// DefaultMaxScrolls 评论加载循环的最大滚动次数
const DefaultMaxScrolls = 20

// Timing 页面操作的等待与节奏参数
type Timing struct {
	// 登录检测
	PageSettle time.Duration `yaml:"page_settle" json:"page_settle"`
	LoginProbe time.Duration `yaml:"login_probe" json:"login_probe"`

	MetadataSettle time.Duration `yaml:"metadata_settle" json:"metadata_settle"`

	// 评论加载
	CommentsWait       time.Duration `yaml:"comments_wait" json:"comments_wait"`
	ShowCommentsWait   time.Duration `yaml:"show_comments_wait" json:"show_comments_wait"`
	CommentsOpenSettle time.Duration `yaml:"comments_open_settle" json:"comments_open_settle"`
	ContainerWait      time.Duration `yaml:"container_wait" json:"container_wait"`
	ScrollSettle       time.Duration `yaml:"scroll_settle" json:"scroll_settle"`
	MaxScrolls         int           `yaml:"max_scrolls" json:"max_scrolls"`

	// 发布回复
	ReplyClickSettle time.Duration `yaml:"reply_click_settle" json:"reply_click_settle"`
	ReplyFieldWait   time.Duration `yaml:"reply_field_wait" json:"reply_field_wait"`
	TextSettle       time.Duration `yaml:"text_settle" json:"text_settle"`
	SubmitSettle     time.Duration `yaml:"submit_settle" json:"submit_settle"`
	PostSubmitSettle time.Duration `yaml:"post_submit_settle" json:"post_submit_settle"`
	PublishPacing    time.Duration `yaml:"publish_pacing" json:"publish_pacing"`
}

// DefaultTiming 线上页面使用的默认节奏
func DefaultTiming() Timing {
	return Timing{
		PageSettle:         3 * time.Second,
		LoginProbe:         5 * time.Second,
		MetadataSettle:     2 * time.Second,
		CommentsWait:       30 * time.Second,
		ShowCommentsWait:   10 * time.Second,
		CommentsOpenSettle: 2 * time.Second,
		ContainerWait:      20 * time.Second,
		ScrollSettle:       2 * time.Second,
		MaxScrolls:         DefaultMaxScrolls,
		ReplyClickSettle:   500 * time.Millisecond,
		ReplyFieldWait:     10 * time.Second,
		TextSettle:         2 * time.Second,
		SubmitSettle:       time.Second,
		PostSubmitSettle:   3 * time.Second,
		PublishPacing:      3 * time.Second,
	}
}

// WithDefaults 用默认值补齐未设置的字段
func (t Timing) WithDefaults() Timing {
	d := DefaultTiming()
	fill := func(v *time.Duration, def time.Duration) {
		if *v <= 0 {
			*v = def
		}
	}
	fill(&t.PageSettle, d.PageSettle)
	fill(&t.LoginProbe, d.LoginProbe)
	fill(&t.MetadataSettle, d.MetadataSettle)
	fill(&t.CommentsWait, d.CommentsWait)
	fill(&t.ShowCommentsWait, d.ShowCommentsWait)
	fill(&t.CommentsOpenSettle, d.CommentsOpenSettle)
	fill(&t.ContainerWait, d.ContainerWait)
	fill(&t.ScrollSettle, d.ScrollSettle)
	fill(&t.ReplyClickSettle, d.ReplyClickSettle)
	fill(&t.ReplyFieldWait, d.ReplyFieldWait)
	fill(&t.TextSettle, d.TextSettle)
	fill(&t.SubmitSettle, d.SubmitSettle)
	fill(&t.PostSubmitSettle, d.PostSubmitSettle)
	fill(&t.PublishPacing, d.PublishPacing)
	if t.MaxScrolls <= 0 {
		t.MaxScrolls = d.MaxScrolls
	}
	return t
}

// InstantTiming 所有等待都为 0，测试用
func InstantTiming() Timing {
	return Timing{MaxScrolls: DefaultMaxScrolls}
}
