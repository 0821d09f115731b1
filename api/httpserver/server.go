// Package httpserver exposes the store over a JSON admin API and serves
// Prometheus metrics.
package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"ordmap/domain/rbtree"
	"ordmap/service"
)

type putRequest struct {
	Value string `json:"value"`
}

type Handler struct {
	store *service.Store
	log   *logrus.Entry
}

// NewRouter wires every route. gatherer feeds /metrics; nil uses the
// default registry.
func NewRouter(store *service.Store, gatherer prometheus.Gatherer, log *logrus.Entry) *gin.Engine {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	h := &Handler{store: store, log: log.WithField("pkg", "httpserver")}

	r := gin.New()
	r.Use(gin.Recovery(), h.logRequests)

	r.GET("/healthz", h.health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	v1 := r.Group("/v1")
	v1.GET("/keys/:key", h.get)
	v1.PUT("/keys/:key", h.put)
	v1.DELETE("/keys/:key", h.delete)
	v1.GET("/scan", h.scan)
	v1.GET("/min", h.min)
	v1.GET("/max", h.max)
	v1.GET("/stats", h.stats)
	v1.GET("/dump", h.dump)
	v1.POST("/clear", h.clear)
	return r
}

// NewServer wraps the router in an http.Server.
func NewServer(addr string, router http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) get(c *gin.Context) {
	key := c.Param("key")
	v, ok := h.store.Get(c.Request.Context(), key)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"key": key, "found": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "value": v, "found": true})
}

func (h *Handler) put(c *gin.Context) {
	var req putRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.store.Put(c.Request.Context(), c.Param("key"), req.Value)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) delete(c *gin.Context) {
	key := c.Param("key")
	res, ok := h.store.Delete(c.Request.Context(), key)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"key": key, "deleted": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "deleted": true, "revision": res.Revision})
}

func (h *Handler) scan(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	entries := h.store.Scan(c.Request.Context(), service.ScanRequest{
		From:  c.Query("from"),
		To:    c.Query("to"),
		Limit: limit,
	})
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h *Handler) min(c *gin.Context) {
	e, ok := h.store.Min(c.Request.Context())
	h.edge(c, e, ok)
}

func (h *Handler) max(c *gin.Context) {
	e, ok := h.store.Max(c.Request.Context())
	h.edge(c, e, ok)
}

func (h *Handler) edge(c *gin.Context, e service.Entry, ok bool) {
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"found": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"found": true, "key": e.Key, "value": e.Value})
}

func (h *Handler) stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Stats(c.Request.Context()))
}

func (h *Handler) dump(c *gin.Context) {
	entries, err := h.store.Dump(c.Request.Context(), service.Order(c.DefaultQuery("order", string(service.OrderIn))))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h *Handler) clear(c *gin.Context) {
	cleared, rev := h.store.Clear(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"cleared": cleared, "revision": rev})
}

func (h *Handler) logRequests(c *gin.Context) {
	start := time.Now()
	c.Next()
	h.log.WithFields(logrus.Fields{
		"method":  c.Request.Method,
		"path":    c.FullPath(),
		"status":  c.Writer.Status(),
		"elapsed": time.Since(start),
	}).Debug("http request")
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrEmptyKey), errors.Is(err, service.ErrUnknownOrder):
		return http.StatusBadRequest
	case errors.Is(err, rbtree.ErrAllocationFailure):
		return http.StatusInsufficientStorage
	default:
		return http.StatusInternalServerError
	}
}
