package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	mqcontracts "github.com/commentd/contracts/mq"
	pkglogger "github.com/commentd/pkg/logger"
	"github.com/commentd/pkg/metrics"
	"github.com/commentd/pkg/mq"
	"github.com/commentd/pkg/trace"
	"github.com/commentd/pkg/util"
)

// IM text cap. Longer bodies are cut and closed with an ellipsis.
const maxIMRunes = 4096

// IMSender is what the handler needs from the IM provider client.
type IMSender interface {
	SendMessage(ctx context.Context, text string) error
}

// DLQPublisher parks messages that must not be retried.
type DLQPublisher interface {
	PublishToDLQ(routingKey string, payload []byte, originalError string) error
}

// DeliveryLedger marks completed delivery steps so a redelivered message
// repeats only the steps that failed. util.Deduper is the Redis-backed one.
type DeliveryLedger interface {
	AcquireOnce(ctx context.Context, step string, commentID int64) bool
	Release(ctx context.Context, step string, commentID int64)
}

// CommentCreatedIMHandler consumes comment.created and posts the IM summary.
type CommentCreatedIMHandler struct {
	sender  IMSender
	dlq     DLQPublisher
	deduper DeliveryLedger
	logger  *zap.Logger
}

func NewCommentCreatedIMHandler(
	sender IMSender,
	dlq DLQPublisher,
	deduper DeliveryLedger,
	logger *zap.Logger,
) *CommentCreatedIMHandler {
	return &CommentCreatedIMHandler{
		sender:  sender,
		dlq:     dlq,
		deduper: deduper,
		logger:  logger,
	}
}

func (h *CommentCreatedIMHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	var p mqcontracts.CommentCreatedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Invalid comment.created payload, sending to DLQ",
			zap.String("raw", string(raw)),
			zap.Error(err),
		)
		if dlqErr := h.dlq.PublishToDLQ(mq.RoutingKeyCommentCreated, raw, err.Error()); dlqErr != nil {
			return dlqErr
		}
		metrics.IncrementNotificationDelivery("im", "dropped")
		return nil
	}

	if p.RequestID != "" {
		ctx = trace.WithContext(ctx, p.RequestID)
	}
	log := pkglogger.WithRequest(ctx, h.logger)

	if !h.deduper.AcquireOnce(ctx, "im", p.Comment.ID) {
		log.Info("IM notification already delivered, skip",
			zap.Int64("comment_id", p.Comment.ID),
		)
		return nil
	}

	text := FormatIMText(p.Comment)
	if err := h.sender.SendMessage(ctx, text); err != nil {
		h.deduper.Release(ctx, "im", p.Comment.ID)

		isRetryable, errType := util.IsRetryableError(err)
		log.Error("IM delivery failed",
			zap.Int64("comment_id", p.Comment.ID),
			zap.String("error_type", errType),
			zap.Bool("retryable", isRetryable),
			zap.Error(err),
		)
		if isRetryable {
			metrics.IncrementNotificationDelivery("im", "retry")
			return err // nack, broker redelivers
		}
		if dlqErr := h.dlq.PublishToDLQ(mq.RoutingKeyCommentCreated, raw, err.Error()); dlqErr != nil {
			return dlqErr
		}
		metrics.IncrementNotificationDelivery("im", "dropped")
		return nil
	}

	metrics.IncrementNotificationDelivery("im", "success")
	log.Info("IM notification delivered",
		zap.Int64("comment_id", p.Comment.ID),
		zap.String("article_id", p.Comment.ArticleID),
	)
	return nil
}

// FormatIMText builds the single-message summary: author with their optional
// address in parentheses, the article link, then the markdown body.
func FormatIMText(c mqcontracts.CommentSnapshot) string {
	author := c.AuthorName
	if c.AuthorEmail != "" {
		author = fmt.Sprintf("%s (%s)", c.AuthorName, c.AuthorEmail)
	}
	text := fmt.Sprintf("New comment by %s on %s:\n\n%s", author, c.ArticleURL, c.Content)
	return truncateRunes(text, maxIMRunes)
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
