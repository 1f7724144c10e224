package tiktok

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xpzouying/tiktok-reply-mcp/page"
	"github.com/xpzouying/tiktok-reply-mcp/page/pagetest"
)

func newTestPage(drv *pagetest.Driver) *Page {
	return NewPage(page.NewController(drv), InstantTiming())
}

// commentBlock 构造一个评论块：user 为空时没有用户名元素，href 为 true 时用户名来自主页链接
func commentBlock(user string, href bool, text string) *pagetest.Node {
	b := pagetest.NewNode("block", "")
	if user != "" {
		u := pagetest.NewNode("username", user)
		if href {
			u.WithAttr("href", "https://www.tiktok.com/"+user+"?lang=fr")
		}
		b.WithChild(usernameSelectors[0].Expr, u)
	}
	b.WithChild(commentTextSelectors[0].Expr, pagetest.NewNode("text", text))
	return b
}

func TestLoadAllStopsAtIterationCap(t *testing.T) {
	drv := pagetest.New()
	container := pagetest.NewNode("container", "")
	container.ExtentFn = func(scrolls int) float64 { return float64(1000 + scrolls*500) }
	drv.Set(commentContainerSelectors[0].Expr, container)

	p := newTestPage(drv)
	c := NewCollector(p)
	ctx := context.Background()

	h, err := c.FindContainer(ctx)
	require.NoError(t, err)

	var seen []int
	n, err := c.LoadAll(ctx, h, func(i, max int) {
		assert.Equal(t, DefaultMaxScrolls, max)
		seen = append(seen, i)
	})
	require.NoError(t, err)
	assert.Equal(t, 20, n)
	assert.Equal(t, 20, container.Scrolls)
	assert.Len(t, seen, 20)
}

func TestLoadAllStopsOnConvergence(t *testing.T) {
	drv := pagetest.New()
	container := pagetest.NewNode("container", "")
	container.ExtentFn = func(scrolls int) float64 {
		if scrolls > 3 {
			scrolls = 3
		}
		return float64(scrolls * 100)
	}
	drv.Set(commentContainerSelectors[0].Expr, container)

	c := NewCollector(newTestPage(drv))
	ctx := context.Background()
	h, err := c.FindContainer(ctx)
	require.NoError(t, err)

	n, err := c.LoadAll(ctx, h, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestFindContainerMissing(t *testing.T) {
	c := NewCollector(newTestPage(pagetest.New()))
	_, err := c.FindContainer(context.Background())
	assert.ErrorIs(t, err, ErrNoCommentContainer)
}

func TestEnsureCommentsVisible(t *testing.T) {
	t.Run("评论已展开", func(t *testing.T) {
		drv := pagetest.New()
		drv.Set(commentItemSelectors[0].Expr, pagetest.NewNode("item", ""))
		clicked, err := NewCollector(newTestPage(drv)).EnsureCommentsVisible(context.Background())
		require.NoError(t, err)
		assert.False(t, clicked)
	})

	t.Run("点击评论按钮", func(t *testing.T) {
		drv := pagetest.New()
		btn := pagetest.NewNode("comment-icon", "")
		drv.Set(showCommentsSelectors[0].Expr, btn)
		clicked, err := NewCollector(newTestPage(drv)).EnsureCommentsVisible(context.Background())
		require.NoError(t, err)
		assert.True(t, clicked)
		assert.Equal(t, 1, drv.ClickCount(btn))
	})

	t.Run("没有按钮也不报错", func(t *testing.T) {
		clicked, err := NewCollector(newTestPage(pagetest.New())).EnsureCommentsVisible(context.Background())
		require.NoError(t, err)
		assert.False(t, clicked)
	})
}

func TestExtractAllSkipsEmptyText(t *testing.T) {
	drv := pagetest.New()
	container := pagetest.NewNode("container", "")
	blocks := []*pagetest.Node{
		commentBlock("@alice", true, "Trop bien"),
		commentBlock("@bob", true, "   "),
		commentBlock("@carol", true, "Merci !"),
		pagetest.NewNode("no-text", ""),
	}
	container.WithChild(commentBlockSelectors[0].Expr, blocks...)
	drv.Set(commentContainerSelectors[0].Expr, container)

	c := NewCollector(newTestPage(drv))
	ctx := context.Background()
	h, err := c.FindContainer(ctx)
	require.NoError(t, err)

	comments, err := c.ExtractAll(ctx, h, OwnerFilter{})
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.LessOrEqual(t, len(comments), len(blocks))
	for _, cm := range comments {
		assert.NotEmpty(t, cm.Text)
		assert.False(t, cm.Ref.IsZero())
	}
	assert.Equal(t, "@alice", comments[0].Username)
	assert.Equal(t, "@carol", comments[1].Username)
	assert.Equal(t, 2, comments[1].ID)
}

func TestExtractAllExcludesOwner(t *testing.T) {
	drv := pagetest.New()
	container := pagetest.NewNode("container", "")
	container.WithChild(commentBlockSelectors[0].Expr,
		commentBlock("@alice", true, "premier"),
		commentBlock("@SoeurBonPlan", true, "réponse de la créatrice"),
		commentBlock("@carol", true, "troisième"),
	)
	drv.Set(commentContainerSelectors[0].Expr, container)

	c := NewCollector(newTestPage(drv))
	ctx := context.Background()
	h, err := c.FindContainer(ctx)
	require.NoError(t, err)

	comments, err := c.ExtractAll(ctx, h, OwnerFilter{Enabled: true, Handle: " @soeurbonplan "})
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, 1, comments[0].ID)
	assert.Equal(t, "@alice", comments[0].Username)
	assert.Equal(t, "premier", comments[0].Text)
	assert.Equal(t, 2, comments[1].ID)
	assert.Equal(t, "@carol", comments[1].Username)
	assert.Equal(t, "troisième", comments[1].Text)
}

func TestExtractAllOwnerFilterDisabled(t *testing.T) {
	drv := pagetest.New()
	drv.Set(commentBlockSelectors[1].Expr,
		commentBlock("@owner", true, "un"),
		commentBlock("@other", true, "deux"),
	)

	comments, err := NewCollector(newTestPage(drv)).ExtractAll(context.Background(), page.Handle{}, OwnerFilter{Enabled: false, Handle: "@owner"})
	require.NoError(t, err)
	assert.Len(t, comments, 2)
}

func TestExtractAllFallsBackToDocument(t *testing.T) {
	drv := pagetest.New()
	drv.Set(commentContainerSelectors[0].Expr, pagetest.NewNode("empty-container", ""))
	drv.Set(commentBlockSelectors[2].Expr, commentBlock("@dora", true, "salut"))

	c := NewCollector(newTestPage(drv))
	ctx := context.Background()
	h, err := c.FindContainer(ctx)
	require.NoError(t, err)

	comments, err := c.ExtractAll(ctx, h, OwnerFilter{})
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "@dora", comments[0].Username)
}

func TestExtractAllUsernameFallbacks(t *testing.T) {
	drv := pagetest.New()

	textOnly := commentBlock("Nadia", false, "texte")

	displayName := pagetest.NewNode("block", "")
	displayName.WithChild(displayNameSelectors[0].Expr, pagetest.NewNode("display", "Nadia B."))
	displayName.WithChild(commentTextSelectors[1].Expr, pagetest.NewNode("text", "via le span"))

	anonymous := commentBlock("", false, "sans nom")

	drv.Set(commentBlockSelectors[0].Expr, textOnly, displayName, anonymous)

	comments, err := NewCollector(newTestPage(drv)).ExtractAll(context.Background(), page.Handle{}, OwnerFilter{})
	require.NoError(t, err)
	require.Len(t, comments, 3)
	assert.Equal(t, "Nadia", comments[0].Username)
	assert.Equal(t, "Nadia B.", comments[1].Username)
	assert.Equal(t, "via le span", comments[1].Text)
	assert.Equal(t, "@user_3", comments[2].Username)
}

func TestOwnerFilterExcludes(t *testing.T) {
	tests := []struct {
		name     string
		filter   OwnerFilter
		username string
		want     bool
	}{
		{"大小写和空白", OwnerFilter{Enabled: true, Handle: "@Foo"}, " @foo ", true},
		{"没有 @ 前缀", OwnerFilter{Enabled: true, Handle: "Foo"}, "@foo", true},
		{"不同用户", OwnerFilter{Enabled: true, Handle: "@Foo"}, "@foobar", false},
		{"未启用", OwnerFilter{Enabled: false, Handle: "@Foo"}, "@foo", false},
		{"作者为空", OwnerFilter{Enabled: true, Handle: "  "}, "@", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Excludes(tt.username))
		})
	}
}

func TestExtractAllStaleContainer(t *testing.T) {
	drv := pagetest.New()
	drv.Set(commentContainerSelectors[0].Expr, pagetest.NewNode("container", ""))

	p := newTestPage(drv)
	c := NewCollector(p)
	ctx := context.Background()
	h, err := c.FindContainer(ctx)
	require.NoError(t, err)

	require.NoError(t, p.Controller().Navigate(ctx, "https://www.tiktok.com/@x/video/1"))
	_, err = c.ExtractAll(ctx, h, OwnerFilter{})
	assert.ErrorIs(t, err, page.ErrStaleHandle)
}
