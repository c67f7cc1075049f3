package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/commentd/internal/service"
)

type TreeHandler struct {
	treeService *service.TreeService
	logger      *zap.Logger
}

func NewTreeHandler(treeService *service.TreeService, logger *zap.Logger) *TreeHandler {
	return &TreeHandler{
		treeService: treeService,
		logger:      logger,
	}
}

// GetCommentTree handles GET /comment
func (h *TreeHandler) GetCommentTree(c *gin.Context) {
	baseType := c.Query("comment_base_type")
	baseID := c.Query("comment_base_id")

	recursive := false
	if raw, ok := c.GetQuery("is_recursive"); ok {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "is_recursive must be true or false"})
			return
		}
		recursive = v
	}

	trees, err := h.treeService.BuildTree(c.Request.Context(), baseType, baseID, recursive)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, trees)
}
