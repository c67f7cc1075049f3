package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Router struct {
	Engine *gin.Engine
}

func NewRouter(
	commentHandler *CommentHandler,
	treeHandler *TreeHandler,
	policy *CORSPolicy,
	db *pgxpool.Pool,
	logger *zap.Logger,
) *Router {
	r := gin.New()
	r.Use(RequestID(), Recovery(logger), RequestLogger(logger))

	r.HandleMethodNotAllowed = true
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	})

	// Operational endpoints, outside the CORS guard.
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "db_not_ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	comment := r.Group("/comment")
	comment.Use(CORS(policy))
	{
		comment.POST("", commentHandler.CreateComment)
		comment.GET("", treeHandler.GetCommentTree)
		// Preflight is answered by the CORS middleware; the route only has to
		// exist so the group matches.
		comment.OPTIONS("", func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
	}

	return &Router{Engine: r}
}
