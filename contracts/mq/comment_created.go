package mq

// CommentSnapshot carries everything a delivery worker needs about a freshly
// persisted comment. Workers format notifications from the snapshot alone and
// never read the comment row back.
type CommentSnapshot struct {
	ID            int64  `json:"id"`
	ArticleID     string `json:"article_id"`
	ArticleURL    string `json:"article_url"`
	ParentID      int64  `json:"parent_id"`
	Level         int    `json:"level"`
	AuthorName    string `json:"author_name"`
	AuthorEmail   string `json:"author_email,omitempty"`
	AuthorWebsite string `json:"author_website,omitempty"`
	Content       string `json:"content"`
	ContentHTML   string `json:"content_html"`
	TimestampMS   int64  `json:"comment_timestamp_ms"`
}

// CommentCreatedPayload is published on comment.created for the IM channel.
type CommentCreatedPayload struct {
	RequestID string          `json:"request_id,omitempty"`
	Comment   CommentSnapshot `json:"comment"`
}
