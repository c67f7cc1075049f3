package service

import (
	"context"
	"strconv"

	"github.com/commentd/internal/model"
)

type TreeService struct {
	store CommentStore
}

func NewTreeService(store CommentStore) *TreeService {
	return &TreeService{store: store}
}

// BuildTree returns the comments under the given base. For an article base
// these are the article's top-level comments, for a comment base the direct
// replies. With recursive set, every node's replies are attached underneath
// it; otherwise children stay empty. Thread depth is unbounded, so the walk
// uses an explicit stack instead of call recursion. Any read failure aborts
// the whole build.
func (s *TreeService) BuildTree(ctx context.Context, baseType, baseID string, recursive bool) ([]*model.CommentTree, error) {
	roots, err := s.fetchRoots(ctx, baseType, baseID)
	if err != nil {
		return nil, err
	}

	trees := make([]*model.CommentTree, 0, len(roots))
	stack := make([]*model.CommentTree, 0, len(roots))
	for _, row := range roots {
		node := model.NewCommentTree(row)
		trees = append(trees, node)
		stack = append(stack, node)
	}

	if !recursive {
		return trees, nil
	}

	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children, err := s.store.FindChildren(ctx, node.ID)
		if err != nil {
			return nil, &model.StoreError{Op: "query children", Err: err}
		}
		for _, row := range children {
			child := model.NewCommentTree(row)
			node.Children = append(node.Children, child)
			stack = append(stack, child)
		}
	}

	return trees, nil
}

func (s *TreeService) fetchRoots(ctx context.Context, baseType, baseID string) ([]model.Comment, error) {
	switch baseType {
	case model.BaseTypeArticle:
		// Article ids are opaque strings owned by the blog.
		roots, err := s.store.FindTopLevel(ctx, baseID)
		if err != nil {
			return nil, &model.StoreError{Op: "query top-level comments", Err: err}
		}
		return roots, nil
	case model.BaseTypeComment:
		id, err := strconv.ParseInt(baseID, 10, 64)
		if err != nil {
			return nil, &model.ValidationError{Field: "comment_base_id", Reason: "must be numeric for base type comment"}
		}
		roots, err := s.store.FindChildren(ctx, id)
		if err != nil {
			return nil, &model.StoreError{Op: "query children", Err: err}
		}
		return roots, nil
	default:
		return nil, &model.ValidationError{Field: "comment_base_type", Reason: "must be article or comment"}
	}
}
