package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/commentd/internal/model"
	"github.com/commentd/internal/service"
	pkglogger "github.com/commentd/pkg/logger"
)

type CommentHandler struct {
	commentService *service.CommentService
	logger         *zap.Logger
}

func NewCommentHandler(commentService *service.CommentService, logger *zap.Logger) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
		logger:         logger,
	}
}

// CreateComment handles POST /comment
func (h *CommentHandler) CreateComment(c *gin.Context) {
	var req struct {
		ArticleID       string `json:"article_id"`
		ParentCommentID int64  `json:"parent_comment_id"`
		Author          string `json:"author"`
		Email           string `json:"email"`
		Website         string `json:"website"`
		Content         string `json:"content"`
		TimestampMS     int64  `json:"timestamp_ms"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	comment, dispatch, err := h.commentService.Create(c.Request.Context(), service.CreateCommentInput{
		ArticleID:     req.ArticleID,
		ParentID:      req.ParentCommentID,
		AuthorName:    req.Author,
		AuthorEmail:   req.Email,
		AuthorWebsite: req.Website,
		Content:       req.Content,
		TimestampMS:   req.TimestampMS,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"comment":       model.NewCommentTree(*comment),
		"notifications": dispatch,
	})
}

// respondError maps service errors onto status codes. Store diagnostics go to
// the log, never into the response body.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var (
		validationErr *model.ValidationError
		notFoundErr   *model.NotFoundError
		storeErr      *model.StoreError
	)
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundErr.Error()})
	case errors.As(err, &storeErr):
		pkglogger.WithRequest(c.Request.Context(), logger).Error("store failure",
			zap.String("op", storeErr.Op),
			zap.Error(storeErr.Err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	default:
		pkglogger.WithRequest(c.Request.Context(), logger).Error("unexpected failure", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
