package tiktok

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xpzouying/tiktok-reply-mcp/page"
	"github.com/xpzouying/tiktok-reply-mcp/tiktok/tiktoktest"
)

func TestFixtureUsesPrimarySelectors(t *testing.T) {
	cases := map[string][2]string{
		"login":     {tiktoktest.LoginButton, loginIndicatorSelectors[0].Expr},
		"title":     {tiktoktest.Title, titleSelectors[0].Expr},
		"hashtag":   {tiktoktest.Hashtag, hashtagSelectors[0].Expr},
		"item":      {tiktoktest.CommentItem, commentItemSelectors[0].Expr},
		"container": {tiktoktest.Container, commentContainerSelectors[0].Expr},
		"block":     {tiktoktest.Block, commentBlockSelectors[0].Expr},
		"username":  {tiktoktest.Username, usernameSelectors[0].Expr},
		"text":      {tiktoktest.CommentText, commentTextSelectors[0].Expr},
		"reply":     {tiktoktest.ReplyButton, replyButtonSelectors[0].Expr},
		"input":     {tiktoktest.ReplyInput, replyInputSelectors[2].Expr},
		"publish":   {tiktoktest.PublishButton, publishButtonSelectors[0].Expr},
	}
	for name, c := range cases {
		assert.Equal(t, c[1], c[0], name)
	}
}

func TestFixturePageEndToEnd(t *testing.T) {
	f := tiktoktest.New(tiktoktest.Video{
		Title:    "Bons plans",
		Hashtags: []string{"#promo"},
		Comments: []tiktoktest.Comment{
			{User: "@alice", Text: "Super"},
			{User: "@owner", Text: "Merci"},
			{User: "@bob", Text: "Lien ?"},
		},
	})
	p := NewPage(page.NewController(f.Driver), InstantTiming())
	ctx := context.Background()

	meta, err := p.ExtractMetadata(ctx, "https://www.tiktok.com/@owner/video/1")
	require.NoError(t, err)
	assert.Equal(t, "Bons plans", meta.Title)
	assert.Equal(t, []string{"#promo"}, meta.Hashtags)

	c := NewCollector(p)
	container, err := c.FindContainer(ctx)
	require.NoError(t, err)
	n, err := c.LoadAll(ctx, container, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	comments, err := c.ExtractAll(ctx, container, OwnerFilter{Enabled: true, Handle: "@Owner"})
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "@alice", comments[0].Username)
	assert.Equal(t, "@bob", comments[1].Username)
	assert.Equal(t, 2, comments[1].ID)
}
