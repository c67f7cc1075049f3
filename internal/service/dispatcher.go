package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	mqcontracts "github.com/commentd/contracts/mq"
	"github.com/commentd/internal/model"
	"github.com/commentd/pkg/metrics"
	"github.com/commentd/pkg/mq"
	"github.com/commentd/pkg/trace"
)

// Enqueue outcomes reported per channel in the POST response.
const (
	OutcomeSent    = "sent"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// EventPublisher is what the dispatcher needs from the queue producer.
type EventPublisher interface {
	Publish(routingKey string, payload any) error
}

// FailedEventStore durably records jobs whose enqueue failed.
type FailedEventStore interface {
	Insert(ctx context.Context, commentID int64, channel, routingKey string, payload interface{}, errorMsg string) error
}

// DispatchResult reports the enqueue outcome per notification channel.
type DispatchResult struct {
	IM    string `json:"im"`
	Email string `json:"email"`
}

// Dispatcher fans a persisted comment out to the notification queues. It runs
// inside the POST request, strictly after the row is committed. Broker
// failures degrade to a warning plus a failed_events row; the comment
// creation itself already succeeded and stays successful.
type Dispatcher struct {
	publisher   EventPublisher
	failedStore FailedEventStore
	siteBaseURL string
	logger      *zap.Logger
}

func NewDispatcher(publisher EventPublisher, failedStore FailedEventStore, siteBaseURL string, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		publisher:   publisher,
		failedStore: failedStore,
		siteBaseURL: siteBaseURL,
		logger:      logger,
	}
}

// Dispatch enqueues the IM job unconditionally and the email job when the
// author left an address. Payloads are snapshots: workers never read the row
// back.
func (d *Dispatcher) Dispatch(ctx context.Context, c *model.Comment, parent *model.Comment) DispatchResult {
	requestID := trace.FromContext(ctx)
	snap := d.snapshot(c)

	var result DispatchResult

	imPayload := mqcontracts.CommentCreatedPayload{
		RequestID: requestID,
		Comment:   snap,
	}
	result.IM = d.enqueue(ctx, mq.RoutingKeyCommentCreated, "im", c.ID, imPayload)

	if c.AuthorEmail == "" {
		result.Email = OutcomeSkipped
		return result
	}

	emailPayload := mqcontracts.EmailNotificationPayload{
		RequestID: requestID,
		Comment:   snap,
	}
	if parent != nil {
		parentSnap := d.snapshot(parent)
		emailPayload.Parent = &parentSnap
	}
	result.Email = d.enqueue(ctx, mq.RoutingKeyNotificationEmail, "email", c.ID, emailPayload)

	return result
}

func (d *Dispatcher) enqueue(ctx context.Context, routingKey, channel string, commentID int64, payload any) string {
	if err := d.publisher.Publish(routingKey, payload); err != nil {
		d.logger.Warn("Failed to enqueue notification job",
			zap.String("routing_key", routingKey),
			zap.String("channel", channel),
			zap.Int64("comment_id", commentID),
			zap.Error(err),
		)
		metrics.IncrementNotificationEnqueue(channel, OutcomeFailed)

		if storeErr := d.failedStore.Insert(ctx, commentID, channel, routingKey, payload, err.Error()); storeErr != nil {
			d.logger.Error("Failed to record failed event",
				zap.String("routing_key", routingKey),
				zap.Int64("comment_id", commentID),
				zap.Error(storeErr),
			)
		}
		return OutcomeFailed
	}

	metrics.IncrementNotificationEnqueue(channel, OutcomeSent)
	return OutcomeSent
}

func (d *Dispatcher) snapshot(c *model.Comment) mqcontracts.CommentSnapshot {
	return mqcontracts.CommentSnapshot{
		ID:            c.ID,
		ArticleID:     c.ArticleID,
		ArticleURL:    articleURL(d.siteBaseURL, c.ArticleID),
		ParentID:      c.ParentID,
		Level:         c.Level,
		AuthorName:    c.AuthorName,
		AuthorEmail:   c.AuthorEmail,
		AuthorWebsite: c.AuthorWebsite,
		Content:       c.Content,
		ContentHTML:   c.ContentHTML,
		TimestampMS:   c.TimestampMS,
	}
}

func articleURL(baseURL, articleID string) string {
	return strings.TrimSuffix(baseURL, "/") + "/" + articleID
}
