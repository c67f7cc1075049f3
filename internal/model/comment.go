package model

// Base types a tree query can hang off: a blog article or another comment.
// Article ids are opaque strings owned by the blog; comment ids are numeric
// and assigned by the store.
const (
	BaseTypeArticle = "article"
	BaseTypeComment = "comment"
)

// Comment is the stored row. Content keeps the submitted markdown, ContentHTML
// the rendered and sanitized form written once at insert time. Level is 0 for
// top-level comments and parent level + 1 for replies. ParentID 0 means no
// parent. TimestampMS is unix milliseconds, client-supplied or assigned at
// insert.
type Comment struct {
	ID            int64
	ArticleID     string
	ParentID      int64
	Level         int
	AuthorName    string
	AuthorEmail   string
	AuthorWebsite string
	Content       string
	ContentHTML   string
	TimestampMS   int64
	DedupToken    string
}

// CommentTree is the public read shape: one comment with its replies nested
// under Children. The author's notification address stays out of it.
type CommentTree struct {
	ID            int64          `json:"id"`
	ArticleID     string         `json:"article_id"`
	ParentID      int64          `json:"parent_id"`
	Level         int            `json:"level"`
	AuthorName    string         `json:"author_name"`
	AuthorWebsite string         `json:"author_website,omitempty"`
	ContentHTML   string         `json:"content_html"`
	TimestampMS   int64          `json:"comment_timestamp_ms"`
	Children      []*CommentTree `json:"children"`
}

// NewCommentTree shapes a stored comment for output with an empty, non-nil
// children list.
func NewCommentTree(c Comment) *CommentTree {
	return &CommentTree{
		ID:            c.ID,
		ArticleID:     c.ArticleID,
		ParentID:      c.ParentID,
		Level:         c.Level,
		AuthorName:    c.AuthorName,
		AuthorWebsite: c.AuthorWebsite,
		ContentHTML:   c.ContentHTML,
		TimestampMS:   c.TimestampMS,
		Children:      []*CommentTree{},
	}
}
