package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"studyhub/backend/internal/recommend"
	"studyhub/backend/internal/social"
	"studyhub/backend/internal/state"
	apperrors "studyhub/backend/pkg/errors"
)

const requesterKey = "requester"

// store is everything the HTTP boundary needs from a backend
type store interface {
	social.GraphStore
	social.ConnectionReader
	recommend.DataReader
}

type services struct {
	maintainer *social.Maintainer
	directory  *social.Directory
	mutual     *social.MutualRanker
	groups     *recommend.Aggregator
}

func newServices(s store, sourceConcurrency int) *services {
	return &services{
		maintainer: social.NewMaintainer(s),
		directory:  social.NewDirectory(s),
		mutual:     social.NewMutualRanker(s),
		groups:     recommend.NewAggregator(s, sourceConcurrency),
	}
}

func newRouter(svc *services, timeout time.Duration, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization, X-User-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := &handlers{svc: svc, log: log, timeout: timeout}

	api := router.Group("/api")
	api.Use(requireUser(), withTimeout(timeout))
	{
		users := api.Group("/users/:id")
		users.POST("/follow", h.follow)
		users.DELETE("/follow", h.unfollow)
		users.GET("/relation", h.relation)
		users.GET("/friends", h.connections(svc.directory.Friends))
		users.GET("/followers", h.connections(svc.directory.Followers))
		users.GET("/followings", h.connections(svc.directory.Followings))

		recs := api.Group("/recommendations")
		recs.GET("/groups", h.recommendGroups)
		recs.GET("/users", h.recommendUsers)
	}

	return router
}

// ============================================================================
// Middleware
// ============================================================================

// requireUser reads the identity the auth layer forwards in X-User-ID
func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		requester, err := state.NewRequester(c.GetHeader("X-User-ID"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing X-User-ID header"})
			return
		}
		c.Set(requesterKey, requester)
		c.Next()
	}
}

func withTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// ginLogger is a custom logger middleware for Gin
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("HTTP Request",
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}

// ============================================================================
// Handlers
// ============================================================================

type handlers struct {
	svc     *services
	log     *zap.Logger
	timeout time.Duration
}

type listFunc func(ctx context.Context, userID string, page, pageSize int) (*social.UserPage, error)

func (h *handlers) follow(c *gin.Context) {
	me := requesterFrom(c)
	if err := h.svc.maintainer.Follow(c.Request.Context(), me.UserID, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "following"})
}

func (h *handlers) unfollow(c *gin.Context) {
	me := requesterFrom(c)
	if err := h.svc.maintainer.Unfollow(c.Request.Context(), me.UserID, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "unfollowed"})
}

func (h *handlers) relation(c *gin.Context) {
	me := requesterFrom(c)
	status, err := h.svc.directory.Relation(c.Request.Context(), me.UserID, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *handlers) connections(list listFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, pageSize, ok := h.paging(c)
		if !ok {
			return
		}
		result, err := list(c.Request.Context(), c.Param("id"), page, pageSize)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func (h *handlers) recommendGroups(c *gin.Context) {
	page, pageSize, ok := h.paging(c)
	if !ok {
		return
	}
	result, err := h.svc.groups.Recommend(c.Request.Context(), requesterFrom(c).UserID, page, pageSize)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handlers) recommendUsers(c *gin.Context) {
	page, pageSize, ok := h.paging(c)
	if !ok {
		return
	}
	result, err := h.svc.mutual.RecommendUsers(c.Request.Context(), requesterFrom(c).UserID, page, pageSize)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// paging parses page and page_size. Missing values are left at zero so the
// core applies its defaults; out of range values are clamped there too.
func (h *handlers) paging(c *gin.Context) (int, int, bool) {
	page, err := queryInt(c, "page")
	if err != nil {
		h.fail(c, apperrors.NewValidationFailed("page", "must be an integer"))
		return 0, 0, false
	}
	pageSize, err := queryInt(c, "page_size")
	if err != nil {
		h.fail(c, apperrors.NewValidationFailed("page_size", "must be an integer"))
		return 0, 0, false
	}
	return page, pageSize, true
}

// fail maps core errors onto HTTP statuses
func (h *handlers) fail(c *gin.Context, err error) {
	switch {
	case apperrors.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperrors.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case apperrors.IsForbidden(err):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		timeoutErr := apperrors.NewContextTimeout(c.Request.Method+" "+c.FullPath(), h.timeout)
		h.log.Warn("Request deadline exceeded", zap.Error(err))
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": timeoutErr.Error()})
	case apperrors.IsRetryable(err):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "transaction aborted, retry"})
	default:
		h.log.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func requesterFrom(c *gin.Context) state.Requester {
	return c.MustGet(requesterKey).(state.Requester)
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
