package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"go.uber.org/zap"

	mqcontracts "github.com/commentd/contracts/mq"
	pkglogger "github.com/commentd/pkg/logger"
	"github.com/commentd/pkg/metrics"
	"github.com/commentd/pkg/mq"
	"github.com/commentd/pkg/trace"
	"github.com/commentd/pkg/util"
)

// Ledger step names for the two email variants.
const (
	stepReceipt = "email.receipt"
	stepReply   = "email.reply"
)

// EmailSender is what the handler needs from the mail provider client.
type EmailSender interface {
	RegisterRecipient(ctx context.Context, email, name string) error
	Send(ctx context.Context, to, subject, html string) error
}

// EmailNotificationHandler consumes notification.email. Per message it
// registers the involved addresses, sends the author their receipt and, when
// a reply has a distinct parent address, the reply notice. The message is
// acked only when every required send succeeded; the dedup ledger keeps a
// redelivery from repeating sends that already went out.
type EmailNotificationHandler struct {
	sender  EmailSender
	dlq     DLQPublisher
	deduper DeliveryLedger
	logger  *zap.Logger
}

func NewEmailNotificationHandler(
	sender EmailSender,
	dlq DLQPublisher,
	deduper DeliveryLedger,
	logger *zap.Logger,
) *EmailNotificationHandler {
	return &EmailNotificationHandler{
		sender:  sender,
		dlq:     dlq,
		deduper: deduper,
		logger:  logger,
	}
}

func (h *EmailNotificationHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	var p mqcontracts.EmailNotificationPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Invalid notification.email payload, sending to DLQ",
			zap.String("raw", string(raw)),
			zap.Error(err),
		)
		if dlqErr := h.dlq.PublishToDLQ(mq.RoutingKeyNotificationEmail, raw, err.Error()); dlqErr != nil {
			return dlqErr
		}
		metrics.IncrementNotificationDelivery("email", "dropped")
		return nil
	}

	if p.RequestID != "" {
		ctx = trace.WithContext(ctx, p.RequestID)
	}
	log := pkglogger.WithRequest(ctx, h.logger)

	if p.Comment.AuthorEmail == "" {
		// The dispatcher never enqueues these; treat as poison.
		log.Error("Email job without author address, sending to DLQ",
			zap.Int64("comment_id", p.Comment.ID),
		)
		if dlqErr := h.dlq.PublishToDLQ(mq.RoutingKeyNotificationEmail, raw, "missing author address"); dlqErr != nil {
			return dlqErr
		}
		metrics.IncrementNotificationDelivery("email", "dropped")
		return nil
	}

	// The reply notice goes to the parent author, but never when they are the
	// same address as the comment author: one event, one email per address.
	needReply := p.Parent != nil &&
		p.Parent.AuthorEmail != "" &&
		!strings.EqualFold(p.Parent.AuthorEmail, p.Comment.AuthorEmail)

	// Registration is idempotent provider-side (409 tolerated), so it is
	// repeated on every delivery rather than tracked in the ledger.
	if err := h.sender.RegisterRecipient(ctx, p.Comment.AuthorEmail, p.Comment.AuthorName); err != nil {
		return h.stepFailed(ctx, log, raw, p.Comment.ID, "register author", err)
	}
	if needReply {
		if err := h.sender.RegisterRecipient(ctx, p.Parent.AuthorEmail, p.Parent.AuthorName); err != nil {
			return h.stepFailed(ctx, log, raw, p.Comment.ID, "register parent author", err)
		}
	}

	if h.deduper.AcquireOnce(ctx, stepReceipt, p.Comment.ID) {
		subject, body := receiptEmail(p.Comment)
		if err := h.sender.Send(ctx, p.Comment.AuthorEmail, subject, body); err != nil {
			h.deduper.Release(ctx, stepReceipt, p.Comment.ID)
			return h.stepFailed(ctx, log, raw, p.Comment.ID, "send receipt", err)
		}
	}

	if needReply {
		if h.deduper.AcquireOnce(ctx, stepReply, p.Comment.ID) {
			subject, body := replyEmail(p.Comment, *p.Parent)
			if err := h.sender.Send(ctx, p.Parent.AuthorEmail, subject, body); err != nil {
				h.deduper.Release(ctx, stepReply, p.Comment.ID)
				return h.stepFailed(ctx, log, raw, p.Comment.ID, "send reply notice", err)
			}
		}
	}

	metrics.IncrementNotificationDelivery("email", "success")
	log.Info("Email notifications delivered",
		zap.Int64("comment_id", p.Comment.ID),
		zap.Bool("reply_notice", needReply),
	)
	return nil
}

// stepFailed decides the fate of the whole message from one failed step:
// retryable errors requeue it, the rest park it on the DLQ.
func (h *EmailNotificationHandler) stepFailed(ctx context.Context, log *zap.Logger, raw json.RawMessage, commentID int64, step string, err error) error {
	isRetryable, errType := util.IsRetryableError(err)
	log.Error("Email delivery step failed",
		zap.Int64("comment_id", commentID),
		zap.String("step", step),
		zap.String("error_type", errType),
		zap.Bool("retryable", isRetryable),
		zap.Error(err),
	)
	if isRetryable {
		metrics.IncrementNotificationDelivery("email", "retry")
		return err // nack, broker redelivers
	}
	if dlqErr := h.dlq.PublishToDLQ(mq.RoutingKeyNotificationEmail, raw, err.Error()); dlqErr != nil {
		return dlqErr
	}
	metrics.IncrementNotificationDelivery("email", "dropped")
	return nil
}

func receiptEmail(c mqcontracts.CommentSnapshot) (subject, body string) {
	subject = "Your comment was posted"
	body = fmt.Sprintf(
		"<p>Hi %s,</p><p>your comment on <a href=%q>%s</a> was posted:</p><blockquote>%s</blockquote>",
		html.EscapeString(c.AuthorName),
		c.ArticleURL,
		html.EscapeString(c.ArticleURL),
		c.ContentHTML,
	)
	return subject, body
}

func replyEmail(c, parent mqcontracts.CommentSnapshot) (subject, body string) {
	subject = "New reply to your comment"
	body = fmt.Sprintf(
		"<p>Hi %s,</p><p>%s replied to your comment on <a href=%q>%s</a>:</p><blockquote>%s</blockquote>",
		html.EscapeString(parent.AuthorName),
		html.EscapeString(c.AuthorName),
		c.ArticleURL,
		html.EscapeString(c.ArticleURL),
		c.ContentHTML,
	)
	return subject, body
}
