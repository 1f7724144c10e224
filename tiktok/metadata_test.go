package tiktok

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xpzouying/tiktok-reply-mcp/page/pagetest"
)

const testVideoURL = "https://www.tiktok.com/@soeurbonplan/video/7301234567890"

func TestExtractMetadata(t *testing.T) {
	drv := pagetest.New()
	drv.Set(titleSelectors[2].Expr, pagetest.NewNode("h1", "  Mes bons plans de la semaine  "))
	drv.Set(hashtagSelectors[1].Expr,
		pagetest.NewNode("tag", "#bonplan"),
		pagetest.NewNode("tag", "voir plus"),
		pagetest.NewNode("tag", " #halal "),
		pagetest.NewNode("tag", "#bonplan"),
	)

	meta, err := newTestPage(drv).ExtractMetadata(context.Background(), testVideoURL)
	require.NoError(t, err)
	assert.Equal(t, "Mes bons plans de la semaine", meta.Title)
	assert.Equal(t, []string{"#bonplan", "#halal"}, meta.Hashtags)
	assert.Equal(t, testVideoURL, meta.URL)
}

func TestExtractMetadataNothingFound(t *testing.T) {
	meta, err := newTestPage(pagetest.New()).ExtractMetadata(context.Background(), testVideoURL)
	require.NoError(t, err)
	assert.Equal(t, TitleNotFound, meta.Title)
	assert.NotNil(t, meta.Hashtags)
	assert.Empty(t, meta.Hashtags)
}

func TestExtractMetadataBlankTitleFallsThrough(t *testing.T) {
	drv := pagetest.New()
	drv.Set(titleSelectors[0].Expr, pagetest.NewNode("title", "  "))
	drv.Set(titleSelectors[3].Expr, pagetest.NewNode("desc", "La description"))

	meta, err := newTestPage(drv).ExtractMetadata(context.Background(), testVideoURL)
	require.NoError(t, err)
	assert.Equal(t, "La description", meta.Title)
}

func TestNeedsLogin(t *testing.T) {
	drv := pagetest.New()
	p := newTestPage(drv)

	need, err := p.NeedsLogin(context.Background())
	require.NoError(t, err)
	assert.False(t, need)

	drv.Set(loginIndicatorSelectors[2].Expr, pagetest.NewNode("login-link", "Log in"))
	need, err = p.NeedsLogin(context.Background())
	require.NoError(t, err)
	assert.True(t, need)
}

func TestParseVideoURL(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantOwner string
		wantID    string
	}{
		{
			name:      "完整 URL",
			url:       "https://www.tiktok.com/@soeurbonplan/video/7301234567890?is_from_webapp=1&sender_device=pc",
			wantOwner: "@soeurbonplan",
			wantID:    "7301234567890",
		},
		{
			name:      "没有查询参数",
			url:       "https://www.tiktok.com/@someone.else/video/7299999999999",
			wantOwner: "@someone.else",
			wantID:    "7299999999999",
		},
		{
			name:      "个人主页",
			url:       "https://www.tiktok.com/@creator?lang=fr",
			wantOwner: "@creator",
		},
		{
			name: "无关链接",
			url:  "https://www.tiktok.com/foryou",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, id := ParseVideoURL(tt.url)
			assert.Equal(t, tt.wantOwner, owner)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestHandleFromHref(t *testing.T) {
	assert.Equal(t, "@alice", handleFromHref("https://www.tiktok.com/@alice?lang=fr"))
	assert.Equal(t, "@bob", handleFromHref("/@bob"))
	assert.Equal(t, "@foo", handleFromHref("/@foo/"))
	assert.Equal(t, "@foo", handleFromHref("/@foo/video/1?x"))
	assert.Equal(t, "@foo", handleFromHref("https://www.tiktok.com/@foo/video/123?lang=fr"))
	assert.Equal(t, "@foo", handleFromHref("/@foo#top"))
	assert.Equal(t, "", handleFromHref("/tag/bonplan"))
	assert.Equal(t, "", handleFromHref("/@?x=1"))
}
