package main

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const serverName = "tiktok-reply-mcp"

// toolHandler 工具处理函数，args 为原始 JSON 参数
type toolHandler func(ctx context.Context, args json.RawMessage) *mcp.CallToolResult

// InitMCPServer 创建 MCP 服务器并注册全部工具
func InitMCPServer(appServer *AppServer) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, nil)

	registerTools(server, appServer)

	logrus.Info("MCP Server initialized with official SDK")
	return server
}

func inputSchema(properties map[string]any, required ...string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

var sessionIDProp = map[string]any{"type": "string", "description": "会话 ID，由调用方指定"}

func registerTools(server *mcp.Server, appServer *AppServer) {
	addTool(server, &mcp.Tool{
		Name:        "start_session",
		Description: "打开 TikTok 视频页面并开始抓取评论。同一 session_id 已存在时会替换旧会话。需要登录时会话进入 AWAITING_LOGIN，登录后调用 resume_session",
		InputSchema: inputSchema(map[string]any{
			"session_id":          sessionIDProp,
			"url":                 map[string]any{"type": "string", "description": "TikTok 视频链接"},
			"api_key":             map[string]any{"type": "string", "description": "大模型 API Key，不传则使用服务配置"},
			"tone":                map[string]any{"type": "string", "description": "回复语气，如 chaleureux"},
			"max_response_length": map[string]any{"type": "integer", "description": "回复最大字符数"},
			"account_name":        map[string]any{"type": "string", "description": "回复使用的账号名称"},
			"exclude_owner":       map[string]any{"type": "boolean", "description": "是否跳过作者本人的评论，默认 true"},
			"owner_handle":        map[string]any{"type": "string", "description": "作者账号，不传则从链接解析"},
			"model":               map[string]any{"type": "string", "description": "模型名称"},
		}, "session_id", "url"),
	}, appServer.handleStartSession)

	addTool(server, &mcp.Tool{
		Name:        "resume_session",
		Description: "用户在浏览器中完成登录后继续抓取",
		InputSchema: inputSchema(map[string]any{"session_id": sessionIDProp}, "session_id"),
	}, appServer.handleResumeSession)

	addTool(server, &mcp.Tool{
		Name:        "get_session",
		Description: "获取会话状态、视频信息、评论和回复。include_screenshot 为 true 时附带出错截图",
		InputSchema: inputSchema(map[string]any{
			"session_id":         sessionIDProp,
			"include_screenshot": map[string]any{"type": "boolean", "description": "是否返回出错时的页面截图"},
		}, "session_id"),
	}, appServer.handleGetSession)

	addTool(server, &mcp.Tool{
		Name:        "generate_replies",
		Description: "为已抓取的评论批量生成回复，完成后会话进入 AWAITING_VALIDATION",
		InputSchema: inputSchema(map[string]any{"session_id": sessionIDProp}, "session_id"),
	}, appServer.handleGenerateReplies)

	addTool(server, &mcp.Tool{
		Name:        "validate_reply",
		Description: "审核一条回复：approved 或 rejected，可同时修改回复内容",
		InputSchema: inputSchema(map[string]any{
			"session_id":   sessionIDProp,
			"response_id":  map[string]any{"type": "integer", "description": "回复 ID（与评论编号一致）"},
			"action":       map[string]any{"type": "string", "enum": []any{"approved", "rejected", "pending"}},
			"new_response": map[string]any{"type": "string", "description": "修改后的回复内容"},
		}, "session_id", "response_id", "action"),
	}, appServer.handleValidateReply)

	addTool(server, &mcp.Tool{
		Name:        "publish_replies",
		Description: "在后台发布已通过审核的回复，ids 为空时发布全部已通过的回复。用 get_session 查看发布结果",
		InputSchema: inputSchema(map[string]any{
			"session_id": sessionIDProp,
			"ids":        map[string]any{"type": "array", "items": map[string]any{"type": "integer"}, "description": "只发布这些回复"},
		}, "session_id"),
	}, appServer.handlePublishReplies)

	addTool(server, &mcp.Tool{
		Name:        "delete_session",
		Description: "删除会话并关闭浏览器",
		InputSchema: inputSchema(map[string]any{"session_id": sessionIDProp}, "session_id"),
	}, appServer.handleDeleteSession)
}

// addTool 注册工具，处理函数的 panic 转为工具错误
func addTool(server *mcp.Server, tool *mcp.Tool, handler toolHandler) {
	server.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (result *mcp.CallToolResult, err error) {
		defer func() {
			if r := recover(); r != nil {
				logrus.Errorf("MCP 工具 %s panic: %v", tool.Name, r)
				result = errorResult(errors.Errorf("tool %s panicked: %v", tool.Name, r))
				err = nil
			}
		}()
		return handler(ctx, req.Params.Arguments), nil
	})
}

func errorResult(err error) *mcp.CallToolResult {
	var res mcp.CallToolResult
	res.SetError(err)
	return &res
}

func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.Marshal(v)
	if err != nil {
		return errorResult(errors.Wrap(err, "marshal result"))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}
