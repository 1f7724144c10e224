package batch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xpzouying/tiktok-reply-mcp/llm"
	"github.com/xpzouying/tiktok-reply-mcp/page"
	"github.com/xpzouying/tiktok-reply-mcp/session"
	"github.com/xpzouying/tiktok-reply-mcp/tiktok"
	"github.com/xpzouying/tiktok-reply-mcp/tiktok/tiktoktest"
)

const replies = `{"responses": [{"comment_id": 1, "chatgpt_response": "Merci !"}]}`

// newOrchestrator 按 URL 分配假页面
func newOrchestrator(t *testing.T, pages map[string]tiktoktest.Video) (*session.Orchestrator, map[string]*tiktoktest.Fixture) {
	t.Helper()

	var mu sync.Mutex
	fixtures := map[string]*tiktoktest.Fixture{}
	for u, v := range pages {
		fixtures[u] = tiktoktest.New(v)
	}
	// 会话按 URL 顺序启动的先后不固定，用 ctx 之外的方式区分：每个假页面只交出一次
	remaining := map[*tiktoktest.Fixture]bool{}
	for _, f := range fixtures {
		remaining[f] = true
	}

	o := session.New(session.Options{
		Opener: session.OpenerFunc(func(context.Context) (page.Driver, error) {
			mu.Lock()
			defer mu.Unlock()
			for f := range remaining {
				delete(remaining, f)
				return f.Driver, nil
			}
			return tiktoktest.New(tiktoktest.Video{}).Driver, nil
		}),
		LLM: func(context.Context, session.Config) (llm.Client, error) {
			return llm.NewMock(replies), nil
		},
		Timing: tiktok.InstantTiming(),
	})
	t.Cleanup(func() { _ = o.Shutdown(context.Background()) })
	return o, fixtures
}

func TestRunParallel(t *testing.T) {
	ok := tiktoktest.Video{Title: "Vidéo", Comments: []tiktoktest.Comment{{User: "@alice", Text: "Super"}}}
	o, fixtures := newOrchestrator(t, map[string]tiktoktest.Video{
		"https://www.tiktok.com/@a/video/1": ok,
		"https://www.tiktok.com/@b/video/2": ok,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	results, err := RunParallel(ctx, o, []string{
		"https://www.tiktok.com/@a/video/1",
		"https://www.tiktok.com/@b/video/2",
	}, Options{Generate: true})
	require.NoError(t, err)
	require.Len(t, results, 2)

	for _, res := range results {
		assert.True(t, res.OK(), res.Error)
		require.NotNil(t, res.View)
		assert.Len(t, res.View.Comments, 1)
		assert.Len(t, res.View.Replies, 1)
		assert.Equal(t, session.StateAwaitingValidation, res.View.State)
	}
	assert.Equal(t, "batch1", results[0].SessionID)
	assert.Equal(t, 0, o.Registry().Len())
	for _, f := range fixtures {
		assert.True(t, f.Driver.IsClosed())
	}
}

func TestRunParallelResumesAfterLoginWait(t *testing.T) {
	v := tiktoktest.Video{RequireLogin: true, Comments: []tiktoktest.Comment{{User: "@alice", Text: "Super"}}}
	o, _ := newOrchestrator(t, map[string]tiktoktest.Video{"https://www.tiktok.com/@a/video/1": v})

	results, err := RunParallel(context.Background(), o, []string{"https://www.tiktok.com/@a/video/1"}, Options{
		LoginWait: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	require.True(t, results[0].OK(), results[0].Error)
	assert.Equal(t, session.StateReadyForResponses, results[0].View.State)
	assert.Contains(t, results[0].View.History, session.StateAwaitingLogin)
}

func TestRunParallelAllFailed(t *testing.T) {
	o, _ := newOrchestrator(t, map[string]tiktoktest.Video{
		"https://www.tiktok.com/@a/video/1": {NoContainer: true, Comments: []tiktoktest.Comment{{User: "@x", Text: "y"}}},
	})

	results, err := RunParallel(context.Background(), o, []string{"https://www.tiktok.com/@a/video/1"}, Options{})
	assert.Error(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].OK())
	assert.Contains(t, results[0].Error, "comment container")

	_, err = RunParallel(context.Background(), o, nil, Options{})
	assert.Error(t, err)
}
