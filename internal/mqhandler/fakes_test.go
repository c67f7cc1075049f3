package mqhandler_test

import (
	"context"
	"fmt"

	"github.com/commentd/internal/model"
)

type fakeIMSender struct {
	texts   []string
	sendErr error
}

func (s *fakeIMSender) SendMessage(_ context.Context, text string) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.texts = append(s.texts, text)
	return nil
}

type sentEmail struct {
	To      string
	Subject string
	Body    string
}

type fakeEmailSender struct {
	registered   []string
	sent         []sentEmail
	registerErrs map[string]error
	sendErrs     map[string]error
}

func newFakeEmailSender() *fakeEmailSender {
	return &fakeEmailSender{
		registerErrs: make(map[string]error),
		sendErrs:     make(map[string]error),
	}
}

func (s *fakeEmailSender) RegisterRecipient(_ context.Context, email, _ string) error {
	if err := s.registerErrs[email]; err != nil {
		return err
	}
	s.registered = append(s.registered, email)
	return nil
}

func (s *fakeEmailSender) Send(_ context.Context, to, subject, html string) error {
	if err := s.sendErrs[to]; err != nil {
		return err
	}
	s.sent = append(s.sent, sentEmail{To: to, Subject: subject, Body: html})
	return nil
}

func (s *fakeEmailSender) sentTo(addr string) []sentEmail {
	var out []sentEmail
	for _, e := range s.sent {
		if e.To == addr {
			out = append(out, e)
		}
	}
	return out
}

type parkedMessage struct {
	RoutingKey    string
	Payload       []byte
	OriginalError string
}

type fakeDLQ struct {
	parked []parkedMessage
}

func (d *fakeDLQ) PublishToDLQ(routingKey string, payload []byte, originalError string) error {
	d.parked = append(d.parked, parkedMessage{
		RoutingKey:    routingKey,
		Payload:       payload,
		OriginalError: originalError,
	})
	return nil
}

type fakeLedger struct {
	held map[string]bool
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{held: make(map[string]bool)}
}

func ledgerKey(step string, commentID int64) string {
	return fmt.Sprintf("%s:%d", step, commentID)
}

func (l *fakeLedger) AcquireOnce(_ context.Context, step string, commentID int64) bool {
	k := ledgerKey(step, commentID)
	if l.held[k] {
		return false
	}
	l.held[k] = true
	return true
}

func (l *fakeLedger) Release(_ context.Context, step string, commentID int64) {
	delete(l.held, ledgerKey(step, commentID))
}

func transientErr(msg string) error {
	return &model.DeliveryError{Endpoint: "/v1/send", Status: 503, Msg: msg, Transient: true}
}

func permanentErr(msg string) error {
	return &model.DeliveryError{Endpoint: "/v1/send", Status: 422, Msg: msg, Transient: false}
}
