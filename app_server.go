package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

// AppServer 应用服务器，同时提供 HTTP API、WebSocket 进度推送和 MCP
type AppServer struct {
	service    *TikTokService
	mcpServer  *mcp.Server
	router     *gin.Engine
	httpServer *http.Server
}

// NewAppServer 创建应用服务器
func NewAppServer(service *TikTokService) *AppServer {
	appServer := &AppServer{
		service: service,
	}

	appServer.mcpServer = InitMCPServer(appServer)
	appServer.router = setupRoutes(appServer)
	return appServer
}

// Start 启动 HTTP 服务器，收到 SIGINT/SIGTERM 后优雅关闭
func (s *AppServer) Start(port string) error {
	s.httpServer = &http.Server{
		Addr:    port,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.Infof("启动 HTTP 服务器: %s", port)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	logrus.Info("正在关闭服务器...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		logrus.Warnf("等待连接关闭超时，强制关闭: %v", err)
		_ = s.httpServer.Close()
	}
	if err := s.service.Close(ctx); err != nil {
		logrus.Warnf("关闭会话失败: %v", err)
	}

	logrus.Info("服务器已关闭")
	return nil
}

// StartSTDIO 以 STDIO 方式运行 MCP 服务器，直到客户端断开或收到退出信号
func (s *AppServer) StartSTDIO() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := s.mcpServer.Run(ctx, &mcp.StdioTransport{})

	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if cerr := s.service.Close(closeCtx); cerr != nil {
		logrus.Warnf("关闭会话失败: %v", cerr)
	}
	if ctx.Err() != nil {
		return nil
	}
	return err
}
