package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"pos/orderqueue/pkg/logger"
)

// Server 状态查询 HTTP 服务
type Server struct {
	httpServer *http.Server
	log        logger.Logger
}

// New 创建服务
func New(addr string, handler http.Handler, log logger.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log,
	}
}

// Start 启动服务（阻塞，Shutdown 后返回 nil）
func (s *Server) Start() error {
	s.log.Infof(context.Background(), "[Server] Listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 优雅关闭
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Infof(ctx, "[Server] Shutting down")
	return s.httpServer.Shutdown(ctx)
}
