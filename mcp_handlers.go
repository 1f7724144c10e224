package main

import (
	"context"
	"encoding/json"

	"github.com/h2non/filetype"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/xpzouying/tiktok-reply-mcp/reply"
)

// MCP 工具处理函数

type sessionArgs struct {
	SessionID string `json:"session_id"`
}

type startArgs struct {
	SessionID string `json:"session_id"`
	StartRequest
}

type getSessionArgs struct {
	SessionID         string `json:"session_id"`
	IncludeScreenshot bool   `json:"include_screenshot"`
}

type validateArgs struct {
	SessionID   string       `json:"session_id"`
	ResponseID  *int         `json:"response_id"`
	Action      reply.Action `json:"action"`
	NewResponse *string      `json:"new_response"`
}

type publishArgs struct {
	SessionID string `json:"session_id"`
	IDs       []int  `json:"ids"`
}

// decodeArgs 解析参数并检查 session_id
func decodeArgs(raw json.RawMessage, v any, sessionID func() string) error {
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, v); err != nil {
			return errors.Wrap(err, "invalid arguments")
		}
	}
	if sessionID() == "" {
		return errors.New("session_id is required")
	}
	return nil
}

// handleStartSession 启动会话
func (s *AppServer) handleStartSession(ctx context.Context, raw json.RawMessage) *mcp.CallToolResult {
	var args startArgs
	if err := decodeArgs(raw, &args, func() string { return args.SessionID }); err != nil {
		return errorResult(err)
	}
	logrus.Infof("MCP: 启动会话 %s - %s", args.SessionID, args.URL)

	view, err := s.service.StartSession(args.SessionID, &args.StartRequest)
	if err != nil {
		return errorResult(errors.Wrap(err, "start session"))
	}
	return jsonResult(view)
}

// handleResumeSession 登录后继续
func (s *AppServer) handleResumeSession(ctx context.Context, raw json.RawMessage) *mcp.CallToolResult {
	var args sessionArgs
	if err := decodeArgs(raw, &args, func() string { return args.SessionID }); err != nil {
		return errorResult(err)
	}
	logrus.Infof("MCP: 继续会话 %s", args.SessionID)

	view, err := s.service.ContinueSession(args.SessionID)
	if err != nil {
		return errorResult(errors.Wrap(err, "resume session"))
	}
	return jsonResult(view)
}

// handleGetSession 会话快照，可附带截图
func (s *AppServer) handleGetSession(ctx context.Context, raw json.RawMessage) *mcp.CallToolResult {
	var args getSessionArgs
	if err := decodeArgs(raw, &args, func() string { return args.SessionID }); err != nil {
		return errorResult(err)
	}

	view, err := s.service.GetSession(args.SessionID)
	if err != nil {
		return errorResult(errors.Wrap(err, "get session"))
	}
	result := jsonResult(view)
	if !args.IncludeScreenshot || !view.HasShot {
		return result
	}

	shot, err := s.service.Screenshot(args.SessionID)
	if err != nil || len(shot) == 0 {
		return result
	}
	mime := "image/png"
	if kind, err := filetype.Match(shot); err == nil && kind != filetype.Unknown {
		mime = kind.MIME.Value
	}
	result.Content = append(result.Content, &mcp.ImageContent{Data: shot, MIMEType: mime})
	return result
}

// handleGenerateReplies 生成回复
func (s *AppServer) handleGenerateReplies(ctx context.Context, raw json.RawMessage) *mcp.CallToolResult {
	var args sessionArgs
	if err := decodeArgs(raw, &args, func() string { return args.SessionID }); err != nil {
		return errorResult(err)
	}
	logrus.Infof("MCP: 生成回复 %s", args.SessionID)

	view, err := s.service.GenerateReplies(ctx, args.SessionID)
	if err != nil {
		return errorResult(errors.Wrap(err, "generate replies"))
	}
	return jsonResult(view)
}

// handleValidateReply 审核回复
func (s *AppServer) handleValidateReply(ctx context.Context, raw json.RawMessage) *mcp.CallToolResult {
	var args validateArgs
	if err := decodeArgs(raw, &args, func() string { return args.SessionID }); err != nil {
		return errorResult(err)
	}

	r, err := s.service.ValidateReply(&ValidateRequest{
		SessionID:   args.SessionID,
		ResponseID:  args.ResponseID,
		Action:      args.Action,
		NewResponse: args.NewResponse,
	})
	if err != nil {
		return errorResult(errors.Wrap(err, "validate reply"))
	}
	return jsonResult(r)
}

// handlePublishReplies 后台发布
func (s *AppServer) handlePublishReplies(ctx context.Context, raw json.RawMessage) *mcp.CallToolResult {
	var args publishArgs
	if err := decodeArgs(raw, &args, func() string { return args.SessionID }); err != nil {
		return errorResult(err)
	}
	logrus.Infof("MCP: 发布回复 %s", args.SessionID)

	n, err := s.service.PublishReplies(args.SessionID, args.IDs)
	if err != nil {
		return errorResult(errors.Wrap(err, "publish replies"))
	}
	return jsonResult(PublishResponse{SessionID: args.SessionID, Queued: n})
}

// handleDeleteSession 删除会话
func (s *AppServer) handleDeleteSession(ctx context.Context, raw json.RawMessage) *mcp.CallToolResult {
	var args sessionArgs
	if err := decodeArgs(raw, &args, func() string { return args.SessionID }); err != nil {
		return errorResult(err)
	}
	logrus.Infof("MCP: 删除会话 %s", args.SessionID)

	if err := s.service.DeleteSession(args.SessionID); err != nil {
		return errorResult(errors.Wrap(err, "delete session"))
	}
	return jsonResult(map[string]any{"session_id": args.SessionID, "deleted": true})
}
