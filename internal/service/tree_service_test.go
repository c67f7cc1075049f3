package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commentd/internal/model"
	"github.com/commentd/internal/service"
)

// seedThread builds:
//
//	article "a1": c1, c2 top-level; c3 under c1; c4 under c3
//	article "a2": c5 top-level
func seedThread(store *fakeStore) (c1, c2, c3, c4, c5 model.Comment) {
	c1 = store.add(model.Comment{ArticleID: "a1", AuthorName: "Alice", ContentHTML: "<p>one</p>"})
	c2 = store.add(model.Comment{ArticleID: "a1", AuthorName: "Bob", ContentHTML: "<p>two</p>"})
	c3 = store.add(model.Comment{ArticleID: "a1", ParentID: c1.ID, Level: 1, AuthorName: "Carol"})
	c4 = store.add(model.Comment{ArticleID: "a1", ParentID: c3.ID, Level: 2, AuthorName: "Dave"})
	c5 = store.add(model.Comment{ArticleID: "a2", AuthorName: "Eve"})
	return
}

func TestBuildTreeArticleNonRecursive(t *testing.T) {
	store := newFakeStore()
	c1, c2, _, _, _ := seedThread(store)
	svc := service.NewTreeService(store)

	trees, err := svc.BuildTree(context.Background(), model.BaseTypeArticle, "a1", false)
	require.NoError(t, err)

	require.Len(t, trees, 2)
	assert.Equal(t, c1.ID, trees[0].ID)
	assert.Equal(t, c2.ID, trees[1].ID)
	// Non-recursive: children stay empty, but present.
	assert.NotNil(t, trees[0].Children)
	assert.Empty(t, trees[0].Children)
	assert.Empty(t, trees[1].Children)
}

func TestBuildTreeArticleRecursive(t *testing.T) {
	store := newFakeStore()
	c1, _, c3, c4, _ := seedThread(store)
	svc := service.NewTreeService(store)

	trees, err := svc.BuildTree(context.Background(), model.BaseTypeArticle, "a1", true)
	require.NoError(t, err)

	require.Len(t, trees, 2)
	require.Len(t, trees[0].Children, 1)
	assert.Equal(t, c3.ID, trees[0].Children[0].ID)
	require.Len(t, trees[0].Children[0].Children, 1)
	assert.Equal(t, c4.ID, trees[0].Children[0].Children[0].ID)
	assert.Equal(t, c1.ID, trees[0].ID)
	assert.Empty(t, trees[1].Children)
}

func TestBuildTreeCommentBase(t *testing.T) {
	store := newFakeStore()
	c1, _, c3, c4, _ := seedThread(store)
	svc := service.NewTreeService(store)

	trees, err := svc.BuildTree(context.Background(), model.BaseTypeComment, fmt.Sprintf("%d", c1.ID), true)
	require.NoError(t, err)

	require.Len(t, trees, 1)
	assert.Equal(t, c3.ID, trees[0].ID)
	require.Len(t, trees[0].Children, 1)
	assert.Equal(t, c4.ID, trees[0].Children[0].ID)
}

func TestBuildTreeCommentBaseNonNumeric(t *testing.T) {
	svc := service.NewTreeService(newFakeStore())

	_, err := svc.BuildTree(context.Background(), model.BaseTypeComment, "not-a-number", false)

	var validationErr *model.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "comment_base_id", validationErr.Field)
}

func TestBuildTreeArticleStringID(t *testing.T) {
	store := newFakeStore()
	store.add(model.Comment{ArticleID: "2024/going-fast-slowly", AuthorName: "Alice"})
	svc := service.NewTreeService(store)

	trees, err := svc.BuildTree(context.Background(), model.BaseTypeArticle, "2024/going-fast-slowly", false)
	require.NoError(t, err)
	assert.Len(t, trees, 1)
}

func TestBuildTreeUnknownBaseType(t *testing.T) {
	svc := service.NewTreeService(newFakeStore())

	_, err := svc.BuildTree(context.Background(), "thread", "1", false)

	var validationErr *model.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "comment_base_type", validationErr.Field)
}

func TestBuildTreeEmptyArticle(t *testing.T) {
	svc := service.NewTreeService(newFakeStore())

	trees, err := svc.BuildTree(context.Background(), model.BaseTypeArticle, "no-comments-yet", true)
	require.NoError(t, err)

	// Empty but non-nil: the response is a JSON array either way.
	require.NotNil(t, trees)
	assert.Empty(t, trees)
}

func TestBuildTreeReadFailureAbortsBuild(t *testing.T) {
	store := newFakeStore()
	_, _, c3, _, _ := seedThread(store)
	store.childrenErr[c3.ID] = errors.New("connection lost")
	svc := service.NewTreeService(store)

	trees, err := svc.BuildTree(context.Background(), model.BaseTypeArticle, "a1", true)

	var storeErr *model.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Nil(t, trees)
}

func TestBuildTreeDeepThread(t *testing.T) {
	store := newFakeStore()
	root := store.add(model.Comment{ArticleID: "deep", AuthorName: "Alice"})

	parentID := root.ID
	for i := 1; i <= 300; i++ {
		next := store.add(model.Comment{ArticleID: "deep", ParentID: parentID, Level: i, AuthorName: "Bob"})
		parentID = next.ID
	}
	svc := service.NewTreeService(store)

	trees, err := svc.BuildTree(context.Background(), model.BaseTypeArticle, "deep", true)
	require.NoError(t, err)
	require.Len(t, trees, 1)

	depth := 0
	node := trees[0]
	for len(node.Children) > 0 {
		require.Len(t, node.Children, 1)
		node = node.Children[0]
		depth++
	}
	assert.Equal(t, 300, depth)
	assert.Equal(t, 300, node.Level)
}
