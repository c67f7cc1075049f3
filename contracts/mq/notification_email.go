package mq

// EmailNotificationPayload is published on notification.email once per comment
// whose author left an address. Parent is the replied-to comment captured at
// dispatch time, nil for top-level comments; when its author's address exists
// and differs from the comment author's, the worker also sends the reply
// notice.
type EmailNotificationPayload struct {
	RequestID string           `json:"request_id,omitempty"`
	Comment   CommentSnapshot  `json:"comment"`
	Parent    *CommentSnapshot `json:"parent,omitempty"`
}
