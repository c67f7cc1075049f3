package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/commentd/internal/model"
	"github.com/commentd/internal/render"
	"github.com/commentd/pkg/metrics"
)

// CommentStore is what the services need from the comment repository.
type CommentStore interface {
	Insert(ctx context.Context, c *model.Comment) error
	FindByID(ctx context.Context, id int64) (*model.Comment, error)
	FindChildren(ctx context.Context, parentID int64) ([]model.Comment, error)
	FindTopLevel(ctx context.Context, articleID string) ([]model.Comment, error)
}

type CreateCommentInput struct {
	ArticleID     string
	ParentID      int64
	AuthorName    string
	AuthorEmail   string
	AuthorWebsite string
	Content       string
	TimestampMS   int64
}

type CommentService struct {
	store      CommentStore
	renderer   render.Renderer
	dispatcher *Dispatcher
}

func NewCommentService(store CommentStore, renderer render.Renderer, dispatcher *Dispatcher) *CommentService {
	return &CommentService{
		store:      store,
		renderer:   renderer,
		dispatcher: dispatcher,
	}
}

// Create persists a new comment and fans out its notification jobs. The
// returned DispatchResult reports the per-channel enqueue outcome; enqueue
// failures never fail the creation itself.
func (s *CommentService) Create(ctx context.Context, in CreateCommentInput) (*model.Comment, DispatchResult, error) {
	if in.AuthorName == "" {
		return nil, DispatchResult{}, &model.ValidationError{Field: "author", Reason: "must not be empty"}
	}
	if in.Content == "" {
		return nil, DispatchResult{}, &model.ValidationError{Field: "content", Reason: "must not be empty"}
	}
	if in.ParentID == 0 && in.ArticleID == "" {
		return nil, DispatchResult{}, &model.ValidationError{Field: "article_id", Reason: "required for top-level comments"}
	}

	// A reply hangs off its parent: level and article follow the parent row,
	// whatever the request claimed.
	var parent *model.Comment
	level := 0
	articleID := in.ArticleID
	if in.ParentID != 0 {
		p, err := s.store.FindByID(ctx, in.ParentID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, DispatchResult{}, &model.NotFoundError{Resource: "parent comment", ID: in.ParentID}
			}
			return nil, DispatchResult{}, &model.StoreError{Op: "find parent", Err: err}
		}
		parent = p
		level = parent.Level + 1
		articleID = parent.ArticleID
	}

	ts := in.TimestampMS
	if ts == 0 {
		ts = time.Now().UnixMilli()
	}

	c := &model.Comment{
		ArticleID:     articleID,
		ParentID:      in.ParentID,
		Level:         level,
		AuthorName:    in.AuthorName,
		AuthorEmail:   in.AuthorEmail,
		AuthorWebsite: in.AuthorWebsite,
		Content:       in.Content,
		ContentHTML:   s.renderer.Render(in.Content),
		TimestampMS:   ts,
		DedupToken:    uuid.NewString(),
	}

	if err := s.store.Insert(ctx, c); err != nil {
		return nil, DispatchResult{}, &model.StoreError{Op: "insert comment", Err: err}
	}

	baseType := model.BaseTypeArticle
	if parent != nil {
		baseType = model.BaseTypeComment
	}
	metrics.IncrementCommentCreated(baseType)

	result := s.dispatcher.Dispatch(ctx, c, parent)
	return c, result, nil
}
