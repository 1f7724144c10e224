package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/h2non/filetype"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/xpzouying/tiktok-reply-mcp/browser"
	"github.com/xpzouying/tiktok-reply-mcp/configs"
	"github.com/xpzouying/tiktok-reply-mcp/export"
	"github.com/xpzouying/tiktok-reply-mcp/reply"
	"github.com/xpzouying/tiktok-reply-mcp/session"
)

const probeTimeout = 45 * time.Second

// respondError 返回错误响应
func respondError(c *gin.Context, statusCode int, code, message string, details any) {
	response := ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	}

	logrus.Errorf("%s %s %d: %s", c.Request.Method, c.Request.URL.Path, statusCode, message)

	c.JSON(statusCode, response)
}

// respondSuccess 返回成功响应
func respondSuccess(c *gin.Context, data any, message string) {
	response := SuccessResponse{
		Success: true,
		Data:    data,
		Message: message,
	}

	logrus.Infof("%s %s %d", c.Request.Method, c.Request.URL.Path, http.StatusOK)

	c.JSON(http.StatusOK, response)
}

// respondServiceError 按错误类型映射状态码
func respondServiceError(c *gin.Context, err error) {
	status, code := classifyError(err)
	respondError(c, status, code, err.Error(), nil)
}

func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound, "SESSION_NOT_FOUND"
	case errors.Is(err, reply.ErrReplyNotFound):
		return http.StatusNotFound, "RESPONSE_NOT_FOUND"
	case errors.Is(err, session.ErrInvalidConfig), errors.Is(err, ErrMissingAPIKey):
		return http.StatusBadRequest, "INVALID_CONFIG"
	case errors.Is(err, reply.ErrInvalidAction):
		return http.StatusBadRequest, "INVALID_ACTION"
	case errors.Is(err, session.ErrInvalidState), errors.Is(err, session.ErrClosed):
		return http.StatusConflict, "INVALID_STATE"
	case errors.Is(err, session.ErrNothingToPublish):
		return http.StatusConflict, "NOTHING_TO_PUBLISH"
	case errors.Is(err, session.ErrNoReplies):
		return http.StatusUnprocessableEntity, "NO_REPLIES"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout, "CANCELLED"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// rootHandler 服务信息
func (s *AppServer) rootHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "TikTok reply service",
		"status":  "running",
		"version": serverVersion,
		"features": []string{
			"scraping", "manual_login", "validation", "publishing", "export", "mcp",
		},
	})
}

// healthHandler 健康检查
func (s *AppServer) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.service.Health())
}

// healthDetailedHandler 启动一个临时浏览器检查浏览器是否可用
func (s *AppServer) healthDetailedHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
	defer cancel()

	bin := configs.GetBinPath()
	if bin == "" {
		bin = browser.DiscoverBinPath()
	}
	probe := browser.Probe(ctx, bin)

	browserStatus := "operational"
	if !probe.OK {
		browserStatus = "error: " + probe.Error
	}
	health := s.service.Health()

	c.JSON(http.StatusOK, gin.H{
		"status":    health.Status,
		"timestamp": health.Timestamp,
		"version":   serverVersion,
		"services": gin.H{
			"api":       "operational",
			"browser":   browserStatus,
			"llm":       map[bool]string{true: "configured", false: "not configured"}[health.LLMConfigured],
			"websocket": "operational",
		},
		"browser_details": probe,
		"active_sessions": health.ActiveSessions,
	})
}

// websocketHandler 订阅会话进度
func (s *AppServer) websocketHandler(c *gin.Context) {
	id := c.Param("session_id")
	if err := s.service.hub.ServeWS(c.Writer, c.Request, id); err != nil {
		logrus.WithField("session", id).Warnf("WebSocket 升级失败: %v", err)
	}
}

// startScrapingHandler 启动会话
func (s *AppServer) startScrapingHandler(c *gin.Context) {
	id := c.Param("session_id")

	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "请求参数错误", err.Error())
		return
	}

	view, err := s.service.StartSession(id, &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, view, "抓取已开始")
}

// continueScrapingHandler 登录完成后继续
func (s *AppServer) continueScrapingHandler(c *gin.Context) {
	view, err := s.service.ContinueSession(c.Param("session_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, view, "已继续抓取")
}

// generateRepliesHandler 生成回复，等待生成完成后返回
func (s *AppServer) generateRepliesHandler(c *gin.Context) {
	view, err := s.service.GenerateReplies(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, view, "回复已生成")
}

// validateReplyHandler 审核一条回复
func (s *AppServer) validateReplyHandler(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "请求参数错误", err.Error())
		return
	}

	r, err := s.service.ValidateReply(&req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, r, "回复已审核")
}

// publishRepliesHandler 后台发布已通过的回复，进度通过 WebSocket 推送
func (s *AppServer) publishRepliesHandler(c *gin.Context) {
	id := c.Param("session_id")

	// 请求体可以为空
	var req PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "请求参数错误", err.Error())
		return
	}

	n, err := s.service.PublishReplies(id, req.IDs)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, PublishResponse{SessionID: id, Queued: n}, "发布已开始")
}

// getSessionHandler 会话快照
func (s *AppServer) getSessionHandler(c *gin.Context) {
	view, err := s.service.GetSession(c.Param("session_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, view, "")
}

// screenshotHandler 出错时的页面截图
func (s *AppServer) screenshotHandler(c *gin.Context) {
	data, err := s.service.Screenshot(c.Param("session_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if len(data) == 0 {
		respondError(c, http.StatusNotFound, "NO_SCREENSHOT", "会话没有截图", nil)
		return
	}

	contentType := "application/octet-stream"
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		contentType = kind.MIME.Value
	}
	c.Data(http.StatusOK, contentType, data)
}

// deleteSessionHandler 删除会话，会话不存在也视为成功
func (s *AppServer) deleteSessionHandler(c *gin.Context) {
	id := c.Param("session_id")
	if err := s.service.DeleteSession(id); err != nil && !errors.Is(err, session.ErrSessionNotFound) {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, gin.H{"session_id": id}, "会话已清理")
}

// exportExcelHandler 导出 xlsx。请求体可以是回复数组、{"responses": [...]} 或为空。
func (s *AppServer) exportExcelHandler(c *gin.Context) {
	id := c.Param("session_id")

	req, err := decodeExportRequest(c.Request.Body)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "请求参数错误", err.Error())
		return
	}

	rows, err := s.service.ExportRows(id, req.replies())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	data, err := export.Excel(rows)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+export.FileName(id, "xlsx"))
	c.Data(http.StatusOK, export.XLSXContentType, data)
}

// exportJSONHandler 导出 JSON
func (s *AppServer) exportJSONHandler(c *gin.Context) {
	id := c.Param("session_id")

	rows, err := s.service.ExportRows(id, nil)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	data, err := export.JSON(rows)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+export.FileName(id, "json"))
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

// historyHandler 最近的发布记录，可按 session_id 过滤
func (s *AppServer) historyHandler(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "limit 必须是非负整数", v)
			return
		}
		limit = n
	}

	entries, err := s.service.History(c.Request.Context(), c.Query("session_id"), limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, entries, "")
}

func decodeExportRequest(body io.Reader) (*ExportRequest, error) {
	req := &ExportRequest{}
	if body == nil {
		return req, nil
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	trimmed := strings.TrimSpace(string(data))
	switch {
	case trimmed == "":
		return req, nil
	case strings.HasPrefix(trimmed, "["):
		err = json.Unmarshal(data, &req.Responses)
	default:
		err = json.Unmarshal(data, req)
	}
	if err != nil {
		return nil, errors.Wrap(err, "decode export body")
	}
	return req, nil
}
