package mqhandler_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mqcontracts "github.com/commentd/contracts/mq"
	"github.com/commentd/internal/mqhandler"
	"github.com/commentd/pkg/mq"
)

func emailRaw(t *testing.T, p mqcontracts.EmailNotificationPayload) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	return raw
}

func replyPayload() mqcontracts.EmailNotificationPayload {
	return mqcontracts.EmailNotificationPayload{
		Comment: mqcontracts.CommentSnapshot{
			ID:          12,
			ArticleID:   "post-1",
			ArticleURL:  "https://blog.example.com/post-1",
			ParentID:    3,
			Level:       1,
			AuthorName:  "Bob",
			AuthorEmail: "bob@example.com",
			Content:     "I disagree",
			ContentHTML: "<p>I disagree</p>",
		},
		Parent: &mqcontracts.CommentSnapshot{
			ID:          3,
			ArticleID:   "post-1",
			ArticleURL:  "https://blog.example.com/post-1",
			AuthorName:  "Alice",
			AuthorEmail: "alice@example.com",
		},
	}
}

func TestEmailHandlerReceiptOnly(t *testing.T) {
	sender := newFakeEmailSender()
	h := mqhandler.NewEmailNotificationHandler(sender, &fakeDLQ{}, newFakeLedger(), zap.NewNop())

	p := replyPayload()
	p.Parent = nil
	require.NoError(t, h.Handle(context.Background(), emailRaw(t, p)))

	assert.Equal(t, []string{"bob@example.com"}, sender.registered)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "bob@example.com", sender.sent[0].To)
	assert.Equal(t, "Your comment was posted", sender.sent[0].Subject)
	assert.Contains(t, sender.sent[0].Body, "<p>I disagree</p>")
}

func TestEmailHandlerReplySendsBoth(t *testing.T) {
	sender := newFakeEmailSender()
	h := mqhandler.NewEmailNotificationHandler(sender, &fakeDLQ{}, newFakeLedger(), zap.NewNop())

	require.NoError(t, h.Handle(context.Background(), emailRaw(t, replyPayload())))

	assert.ElementsMatch(t, []string{"bob@example.com", "alice@example.com"}, sender.registered)
	require.Len(t, sender.sent, 2)

	receipts := sender.sentTo("bob@example.com")
	require.Len(t, receipts, 1)
	assert.Equal(t, "Your comment was posted", receipts[0].Subject)

	notices := sender.sentTo("alice@example.com")
	require.Len(t, notices, 1)
	assert.Equal(t, "New reply to your comment", notices[0].Subject)
	assert.Contains(t, notices[0].Body, "Bob replied")
}

func TestEmailHandlerSelfReplySingleSend(t *testing.T) {
	sender := newFakeEmailSender()
	h := mqhandler.NewEmailNotificationHandler(sender, &fakeDLQ{}, newFakeLedger(), zap.NewNop())

	p := replyPayload()
	p.Parent.AuthorEmail = "Bob@Example.COM" // same mailbox, different case
	require.NoError(t, h.Handle(context.Background(), emailRaw(t, p)))

	assert.Equal(t, []string{"bob@example.com"}, sender.registered)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "bob@example.com", sender.sent[0].To)
}

func TestEmailHandlerParentWithoutAddress(t *testing.T) {
	sender := newFakeEmailSender()
	h := mqhandler.NewEmailNotificationHandler(sender, &fakeDLQ{}, newFakeLedger(), zap.NewNop())

	p := replyPayload()
	p.Parent.AuthorEmail = ""
	require.NoError(t, h.Handle(context.Background(), emailRaw(t, p)))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "bob@example.com", sender.sent[0].To)
}

func TestEmailHandlerMissingAuthorAddressParks(t *testing.T) {
	sender := newFakeEmailSender()
	dlq := &fakeDLQ{}
	h := mqhandler.NewEmailNotificationHandler(sender, dlq, newFakeLedger(), zap.NewNop())

	p := replyPayload()
	p.Comment.AuthorEmail = ""
	require.NoError(t, h.Handle(context.Background(), emailRaw(t, p)))

	require.Len(t, dlq.parked, 1)
	assert.Equal(t, mq.RoutingKeyNotificationEmail, dlq.parked[0].RoutingKey)
	assert.Empty(t, sender.sent)
	assert.Empty(t, sender.registered)
}

func TestEmailHandlerMalformedPayloadParks(t *testing.T) {
	sender := newFakeEmailSender()
	dlq := &fakeDLQ{}
	h := mqhandler.NewEmailNotificationHandler(sender, dlq, newFakeLedger(), zap.NewNop())

	require.NoError(t, h.Handle(context.Background(), json.RawMessage(`not json`)))

	require.Len(t, dlq.parked, 1)
	assert.Empty(t, sender.sent)
}

func TestEmailHandlerRedeliveryRepeatsOnlyFailedStep(t *testing.T) {
	sender := newFakeEmailSender()
	ledger := newFakeLedger()
	h := mqhandler.NewEmailNotificationHandler(sender, &fakeDLQ{}, ledger, zap.NewNop())

	raw := emailRaw(t, replyPayload())

	// First delivery: the receipt goes out, the reply notice fails.
	sender.sendErrs["alice@example.com"] = transientErr("mailbox busy")
	err := h.Handle(context.Background(), raw)
	require.Error(t, err)
	assert.Len(t, sender.sentTo("bob@example.com"), 1)
	assert.Empty(t, sender.sentTo("alice@example.com"))

	// Redelivery after the provider recovered.
	delete(sender.sendErrs, "alice@example.com")
	require.NoError(t, h.Handle(context.Background(), raw))

	assert.Len(t, sender.sentTo("bob@example.com"), 1)
	assert.Len(t, sender.sentTo("alice@example.com"), 1)
}

func TestEmailHandlerRegisterFailure(t *testing.T) {
	t.Run("transient requeues", func(t *testing.T) {
		sender := newFakeEmailSender()
		sender.registerErrs["bob@example.com"] = transientErr("provider restarting")
		dlq := &fakeDLQ{}
		h := mqhandler.NewEmailNotificationHandler(sender, dlq, newFakeLedger(), zap.NewNop())

		err := h.Handle(context.Background(), emailRaw(t, replyPayload()))
		require.Error(t, err)
		assert.Empty(t, sender.sent)
		assert.Empty(t, dlq.parked)
	})

	t.Run("permanent parks", func(t *testing.T) {
		sender := newFakeEmailSender()
		sender.registerErrs["bob@example.com"] = permanentErr("address blocked")
		dlq := &fakeDLQ{}
		h := mqhandler.NewEmailNotificationHandler(sender, dlq, newFakeLedger(), zap.NewNop())

		err := h.Handle(context.Background(), emailRaw(t, replyPayload()))
		require.NoError(t, err)
		assert.Empty(t, sender.sent)
		require.Len(t, dlq.parked, 1)
	})
}
