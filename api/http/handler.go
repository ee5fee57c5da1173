package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/forever-free1/bidindex/loader"
	"github.com/forever-free1/bidindex/storage"
	"github.com/forever-free1/bidindex/storage/session"
	"github.com/forever-free1/bidindex/watch"
)

// ==================== Handler 定义 ====================

// Handler HTTP 请求处理器
type Handler struct {
	sess       *session.Session
	watchHub   *watch.Hub
	loaderOpts []loader.Option
	logger     hclog.Logger

	// heartbeat SSE 心跳间隔
	heartbeat time.Duration
}

// NewHandler 创建新的 Handler
//
// 参数：
//   - sess: 记录会话
//   - watchHub: 事件通知中心，为 nil 时 /v1/watch 返回 501
//   - logger: 日志器
//   - loaderOpts: POST /v1/load 打开 CSV 时使用的选项
//
// 返回：
//   - *Handler: Handler 实例
func NewHandler(sess *session.Session, watchHub *watch.Hub, logger hclog.Logger, loaderOpts ...loader.Option) *Handler {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Handler{
		sess:       sess,
		watchHub:   watchHub,
		loaderOpts: loaderOpts,
		logger:     logger.Named("http"),
		heartbeat:  30 * time.Second,
	}
}

// ==================== API 路由 ====================

// RegisterRoutes 注册所有路由
func (h *Handler) RegisterRoutes(engine *gin.Engine) {
	engine.GET("/health", h.HealthCheck)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.sess.Gatherer(), promhttp.HandlerOpts{})))

	v1 := engine.Group("/v1")
	{
		bids := v1.Group("/bids")
		{
			bids.GET("", h.List)
			bids.POST("", h.Insert)
			bids.POST("/prepend", h.Prepend)
			bids.POST("/sort", h.Sort)
			bids.GET("/:id", h.Get)
			bids.DELETE("/:id", h.Delete)
		}

		v1.GET("/ids", h.IDs)
		v1.POST("/load", h.Load)
		v1.GET("/snapshot", h.Snapshot)

		// Watch API (SSE 长连接)
		v1.GET("/watch", h.Watch)
	}
}

// ==================== 请求与错误 ====================

// amount 接受 JSON 数字或货币字符串（例如 "$16.50"）
type amount float64

func (a *amount) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = amount(storage.ParseAmount(s, storage.DefaultStripChar))
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	*a = amount(v)
	return nil
}

type bidRequest struct {
	ID     string `json:"id" binding:"required"`
	Title  string `json:"title"`
	Fund   string `json:"fund"`
	Amount amount `json:"amount"`
}

func (r bidRequest) record() storage.Record {
	return storage.Record{ID: r.ID, Title: r.Title, Fund: r.Fund, Amount: float64(r.Amount)}
}

// statusOf 把存储错误映射为 HTTP 状态码
func statusOf(err error) int {
	var pe *loader.ParseError
	switch {
	case errors.Is(err, storage.ErrKeyNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrKeyFormat), errors.Is(err, storage.ErrUnknownField):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrDuplicateID):
		return http.StatusConflict
	case errors.Is(err, storage.ErrUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, loader.ErrSourceUnavailable):
		return http.StatusBadRequest
	case errors.As(err, &pe):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// ==================== API 处理函数 ====================

// HealthCheck 健康检查
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"backend": h.sess.Backend().String(),
		"size":    h.sess.Size(),
		"time":    time.Now().Unix(),
	})
}

// List 返回全部记录
// GET /v1/bids
func (h *Handler) List(c *gin.Context) {
	start := time.Now()
	bids := h.sess.All()
	c.JSON(http.StatusOK, gin.H{
		"backend":    h.sess.Backend().String(),
		"count":      len(bids),
		"bids":       bids,
		"elapsed_ns": time.Since(start).Nanoseconds(),
	})
}

// Insert 追加一条记录
// POST /v1/bids
func (h *Handler) Insert(c *gin.Context) {
	h.write(c, h.sess.Insert)
}

// Prepend 头插一条记录，仅链表后端
// POST /v1/bids/prepend
func (h *Handler) Prepend(c *gin.Context) {
	h.write(c, h.sess.Prepend)
}

func (h *Handler) write(c *gin.Context, op func(storage.Record) error) {
	var req bidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	start := time.Now()
	r := req.record()
	if err := op(r); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"bid":        r,
		"elapsed_ns": time.Since(start).Nanoseconds(),
	})
}

// Get 按 ID 查找
// GET /v1/bids/:id
func (h *Handler) Get(c *gin.Context) {
	start := time.Now()
	r, err := h.sess.Search(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"bid":        r,
		"elapsed_ns": time.Since(start).Nanoseconds(),
	})
}

// Delete 按 ID 删除
// DELETE /v1/bids/:id
func (h *Handler) Delete(c *gin.Context) {
	id := c.Param("id")
	start := time.Now()
	removed, err := h.sess.Remove(id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !removed {
		h.fail(c, fmt.Errorf("%w: %q", storage.ErrKeyNotFound, id))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":         id,
		"elapsed_ns": time.Since(start).Nanoseconds(),
	})
}

// Sort 对顺序表排序
// POST /v1/bids/sort?field=title&algo=quick
func (h *Handler) Sort(c *gin.Context) {
	field, err := storage.ParseField(c.Query("field"))
	if err != nil {
		h.fail(c, err)
		return
	}
	algo, err := session.ParseSortAlgorithm(c.Query("algo"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start := time.Now()
	if err := h.sess.Sort(field, algo); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"field":      field.String(),
		"algo":       algo.String(),
		"elapsed_ns": time.Since(start).Nanoseconds(),
	})
}

// IDs 按前缀列出 ID
// GET /v1/ids?prefix=981
func (h *Handler) IDs(c *gin.Context) {
	ids := h.sess.IDsWithPrefix(c.Query("prefix"))
	if ids == nil {
		ids = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"ids": ids})
}

// Load 从服务器本地文件加载记录
// POST /v1/load {"path": "..."}
func (h *Handler) Load(c *gin.Context) {
	var req struct {
		Path string `json:"path" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	stats, err := h.sess.Load(c.Request.Context(), loader.Open(req.Path, h.loaderOpts...))
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error(), "stats": stats})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"stats":      stats,
		"size":       h.sess.Size(),
		"elapsed_ns": stats.Elapsed.Nanoseconds(),
	})
}

// Snapshot 以快照格式下载全部记录
// GET /v1/snapshot
func (h *Handler) Snapshot(c *gin.Context) {
	var buf bytes.Buffer
	if err := loader.WriteSnapshot(&buf, h.sess.All()); err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="bids`+loader.SnapshotExt+`"`)
	c.Data(http.StatusOK, "application/octet-stream", buf.Bytes())
}

// ==================== Watch (SSE) ====================

// Watch 处理 Watch 请求
// GET /v1/watch?prefix=xxx
// 使用 Server-Sent Events (SSE) 推送记录的写入与删除
func (h *Handler) Watch(c *gin.Context) {
	if h.watchHub == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "watch is disabled"})
		return
	}
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
		return
	}

	watcher := h.watchHub.Watch(c.Query("prefix"), 1000)
	defer h.watchHub.Unregister(watcher)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	fmt.Fprintf(c.Writer, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	clientGone := c.Request.Context().Done()
	for {
		select {
		case <-clientGone:
			return

		case event, open := <-watcher.Ch:
			if !open {
				return
			}
			data, err := event.JSON()
			if err != nil {
				continue
			}
			fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event.Type, data)
			flusher.Flush()

		case <-ticker.C:
			fmt.Fprintf(c.Writer, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}

// ==================== 服务器启动 ====================

// Server HTTP 服务器
type Server struct {
	srv     *http.Server
	engine  *gin.Engine
	handler *Handler
	logger  hclog.Logger
}

// NewServer 创建新的 Server
func NewServer(addr string, sess *session.Session, watchHub *watch.Hub, logger hclog.Logger, loaderOpts ...loader.Option) *Server {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	handler := NewHandler(sess, watchHub, logger, loaderOpts...)
	handler.RegisterRoutes(engine)

	return &Server{
		srv:     &http.Server{Addr: addr, Handler: engine},
		engine:  engine,
		handler: handler,
		logger:  logger.Named("http"),
	}
}

// Start 启动服务器，阻塞直到 Shutdown 被调用或监听失败
func (s *Server) Start() error {
	s.logger.Info("listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http serve: %w", err)
	}
	return nil
}

// Shutdown 优雅关闭：关闭所有 watch 连接并等待进行中的请求完成
func (s *Server) Shutdown(ctx context.Context) error {
	if s.handler.watchHub != nil {
		s.handler.watchHub.Close()
	}
	return s.srv.Shutdown(ctx)
}

// ServeHTTP 实现 http.Handler 接口
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}
