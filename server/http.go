// Package server 暴露推荐引擎的 REST 接口（供客户端 UI 消费）。
package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rushteam/vidrec/core"
	"github.com/rushteam/vidrec/pkg/logging"
	"github.com/rushteam/vidrec/service"
)

// Server 包装 gin 引擎与推荐服务。
type Server struct {
	engine *gin.Engine
	rec    *service.Recommender
	logger *logging.Logger
}

func New(rec *service.Recommender, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	s := &Server{
		engine: gin.New(),
		rec:    rec,
		logger: logger,
	}
	s.engine.Use(gin.Recovery())

	s.engine.POST("/interaction", s.saveInteraction)
	s.engine.GET("/recommend/:algorithm/:userId", s.recommend)
	s.engine.GET("/video/:videoId/stats", s.videoStats)
	s.engine.GET("/stats", s.stats)
	return s
}

// Engine 暴露底层 gin 引擎（测试/中间件挂载用）。
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) Run(addr string) error {
	s.logger.Info("http server listening", "addr", addr)
	return s.engine.Run(addr)
}

type interactionRequest struct {
	UserID         int64 `json:"userId" binding:"required"`
	VideoID        int64 `json:"videoId" binding:"required"`
	WatchedPercent *int  `json:"watched_percent"`
	Liked          *int  `json:"liked"`
	WhenReacted    *int  `json:"whenReacted"`
}

func (s *Server) saveInteraction(c *gin.Context) {
	var req interactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	in := &core.Interaction{
		UserID:      req.UserID,
		VideoID:     req.VideoID,
		WhenReacted: req.WhenReacted,
	}
	if req.WatchedPercent != nil {
		in.WatchedPercent = *req.WatchedPercent
	}
	if req.Liked != nil {
		in.Liked = *req.Liked
	}

	if err := s.rec.RecordInteraction(c.Request.Context(), in); err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Interaction saved successfully"})
}

func (s *Server) recommend(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid userId"})
		return
	}

	resp, err := s.rec.Recommend(c.Request.Context(), c.Param("algorithm"), userID)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) videoStats(c *gin.Context) {
	videoID, err := strconv.ParseInt(c.Param("videoId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid videoId"})
		return
	}

	stats, err := s.rec.VideoStats(c.Request.Context(), videoID)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) stats(c *gin.Context) {
	stats, err := s.rec.Stats(c.Request.Context())
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// renderError 把领域错误映射为 HTTP 状态码；请求级错误不影响进程。
func (s *Server) renderError(c *gin.Context, err error) {
	switch {
	case core.IsInvalidInput(err), core.IsUnknownAlgorithm(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case core.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		s.logger.Error("request failed", "path", c.FullPath(), "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
