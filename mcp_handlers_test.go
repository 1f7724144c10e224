package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xpzouying/tiktok-reply-mcp/reply"
	"github.com/xpzouying/tiktok-reply-mcp/session"
)

var testImpl = &mcp.Implementation{Name: "tiktok-reply-test", Version: "0.1.0"}

// mcpSession 在内存中连接 MCP 客户端和服务器
func mcpSession(t *testing.T, env *testEnv) *mcp.ClientSession {
	t.Helper()

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go func() {
		_ = env.app.mcpServer.Run(ctx, serverT)
	}()

	client := mcp.NewClient(testImpl, nil)
	cs, err := client.Connect(ctx, clientT, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func callTool(t *testing.T, cs *mcp.ClientSession, name string, args any) *mcp.CallToolResult {
	t.Helper()
	result, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	require.NoError(t, err)
	return result
}

// resultText 结果中第一段文本
func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	tc, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return tc.Text
}

// toolError 返回协议层错误或工具返回的错误文本，调用成功时为 nil
func toolError(t *testing.T, cs *mcp.ClientSession, name string, args any) error {
	t.Helper()
	result, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return err
	}
	if !result.IsError {
		return nil
	}
	return errors.New(resultText(t, result))
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	text := resultText(t, result)
	require.False(t, result.IsError, "tool returned error: %s", text)
	return text
}

func TestMCPListTools(t *testing.T) {
	cs := mcpSession(t, newTestEnv(t, testVideo()))

	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"start_session", "resume_session", "get_session", "generate_replies",
		"validate_reply", "publish_replies", "delete_session",
	}, names)
}

func TestMCPFlow(t *testing.T) {
	env := newTestEnv(t, testVideo())
	cs := mcpSession(t, env)

	toolText(t, callTool(t, cs, "start_session", map[string]any{"session_id": "m1", "url": videoURL}))
	require.Equal(t, session.StateReadyForResponses,
		env.waitFor(t, "m1", session.StateReadyForResponses, session.StateError))

	var view session.View
	require.NoError(t, json.Unmarshal([]byte(toolText(t, callTool(t, cs, "generate_replies", map[string]any{"session_id": "m1"}))), &view))
	assert.Equal(t, session.StateAwaitingValidation, view.State)
	require.Len(t, view.Replies, 2)

	var r reply.Reply
	text := toolText(t, callTool(t, cs, "validate_reply", map[string]any{
		"session_id": "m1", "response_id": 2, "action": "approved",
	}))
	require.NoError(t, json.Unmarshal([]byte(text), &r))
	assert.Equal(t, reply.ActionApproved, r.Action)
	assert.False(t, r.Modified)

	var pub PublishResponse
	require.NoError(t, json.Unmarshal([]byte(toolText(t, callTool(t, cs, "publish_replies", map[string]any{"session_id": "m1"}))), &pub))
	assert.Equal(t, 1, pub.Queued)
	require.Equal(t, session.StateDone, env.waitFor(t, "m1", session.StateDone, session.StateError))

	require.NoError(t, json.Unmarshal([]byte(toolText(t, callTool(t, cs, "get_session", map[string]any{"session_id": "m1"}))), &view))
	require.NotNil(t, view.Report)
	assert.Equal(t, 1, view.Report.Succeeded)

	toolText(t, callTool(t, cs, "delete_session", map[string]any{"session_id": "m1"}))
	res := callTool(t, cs, "get_session", map[string]any{"session_id": "m1"})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "not found")
}

func TestMCPErrors(t *testing.T) {
	env := newTestEnv(t, testVideo())
	cs := mcpSession(t, env)

	err := toolError(t, cs, "start_session", map[string]any{"url": videoURL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session_id")

	require.Error(t, toolError(t, cs, "start_session", map[string]any{"session_id": "m1", "url": "ftp://example.com"}))

	err = toolError(t, cs, "resume_session", map[string]any{"session_id": "missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	require.Error(t, toolError(t, cs, "validate_reply", map[string]any{"session_id": "missing", "action": "approved"}))
}

func TestMCPGetSessionScreenshot(t *testing.T) {
	v := testVideo()
	v.NoContainer = true
	env := newTestEnv(t, v)
	cs := mcpSession(t, env)

	toolText(t, callTool(t, cs, "start_session", map[string]any{"session_id": "m1", "url": videoURL}))
	require.Equal(t, session.StateError, env.waitFor(t, "m1", session.StateError, session.StateReadyForResponses))

	res := callTool(t, cs, "get_session", map[string]any{"session_id": "m1", "include_screenshot": true})
	toolText(t, res)
	require.Len(t, res.Content, 2)
	img, ok := res.Content[1].(*mcp.ImageContent)
	require.True(t, ok)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.NotEmpty(t, img.Data)
}
