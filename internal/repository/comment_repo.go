package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/commentd/internal/model"
	"github.com/commentd/pkg/metrics"
)

type CommentRepository struct {
	db *pgxpool.Pool
}

func NewCommentRepository(db *pgxpool.Pool) *CommentRepository {
	return &CommentRepository{db: db}
}

// Insert persists the comment and fills in its assigned id. Every row carries
// a fresh dedup token; the id is read back by token inside the same
// transaction instead of relying on driver insert-id reporting.
func (r *CommentRepository) Insert(ctx context.Context, c *model.Comment) error {
	start := time.Now()
	defer func() {
		metrics.RecordDBQueryDuration("insert", "comments", time.Since(start))
	}()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	insert := `
        INSERT INTO comments (article_id, parent_id, level, author_name, author_email, author_website, markdown_content, html_content, comment_timestamp_ms, dedup_token)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `
	_, err = tx.Exec(ctx, insert,
		c.ArticleID,
		c.ParentID,
		c.Level,
		c.AuthorName,
		c.AuthorEmail,
		c.AuthorWebsite,
		c.Content,
		c.ContentHTML,
		c.TimestampMS,
		c.DedupToken,
	)
	if err != nil {
		return err
	}

	readBack := `SELECT id FROM comments WHERE dedup_token = $1`
	if err := tx.QueryRow(ctx, readBack, c.DedupToken).Scan(&c.ID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// FindByID returns one comment by id.
func (r *CommentRepository) FindByID(ctx context.Context, id int64) (*model.Comment, error) {
	query := `
        SELECT id, article_id, parent_id, level, author_name, author_email, author_website, markdown_content, html_content, comment_timestamp_ms, dedup_token
        FROM comments
        WHERE id = $1
    `
	var c model.Comment
	err := r.db.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.ArticleID,
		&c.ParentID,
		&c.Level,
		&c.AuthorName,
		&c.AuthorEmail,
		&c.AuthorWebsite,
		&c.Content,
		&c.ContentHTML,
		&c.TimestampMS,
		&c.DedupToken,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindChildren returns the direct replies to one comment in store order.
func (r *CommentRepository) FindChildren(ctx context.Context, parentID int64) ([]model.Comment, error) {
	query := `
        SELECT id, article_id, parent_id, level, author_name, author_email, author_website, markdown_content, html_content, comment_timestamp_ms, dedup_token
        FROM comments
        WHERE parent_id = $1
        ORDER BY id ASC
    `
	return r.queryComments(ctx, query, parentID)
}

// FindTopLevel returns an article's top-level comments in store order.
func (r *CommentRepository) FindTopLevel(ctx context.Context, articleID string) ([]model.Comment, error) {
	query := `
        SELECT id, article_id, parent_id, level, author_name, author_email, author_website, markdown_content, html_content, comment_timestamp_ms, dedup_token
        FROM comments
        WHERE article_id = $1 AND parent_id = 0
        ORDER BY id ASC
    `
	return r.queryComments(ctx, query, articleID)
}

func (r *CommentRepository) queryComments(ctx context.Context, query string, arg any) ([]model.Comment, error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQueryDuration("select", "comments", time.Since(start))
	}()

	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []model.Comment
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(
			&c.ID,
			&c.ArticleID,
			&c.ParentID,
			&c.Level,
			&c.AuthorName,
			&c.AuthorEmail,
			&c.AuthorWebsite,
			&c.Content,
			&c.ContentHTML,
			&c.TimestampMS,
			&c.DedupToken,
		); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}
