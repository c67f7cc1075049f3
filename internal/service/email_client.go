package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/commentd/internal/model"
	"github.com/commentd/pkg/circuitbreaker"
	"github.com/commentd/pkg/config"
	"github.com/commentd/pkg/metrics"
	"github.com/commentd/pkg/trace"
)

// EmailClient talks to the mail provider. Recipients must be registered
// before they can be addressed: POST {url}/recipients, then POST {url}/send
// delivers one message.
type EmailClient struct {
	baseURL    string
	from       string
	httpClient *http.Client
	cb         *circuitbreaker.CircuitBreaker
}

func NewEmailClient(cfg config.EmailConfig) *EmailClient {
	return &EmailClient{
		baseURL: strings.TrimSuffix(cfg.URL, "/"),
		from:    cfg.From,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig()),
	}
}

// RegisterRecipient makes sure an address exists on the provider side. A 409
// means it already does, which is as good as registering it.
func (c *EmailClient) RegisterRecipient(ctx context.Context, email, name string) error {
	payload := map[string]string{
		"email": email,
		"name":  name,
	}

	err := c.call(ctx, "/recipients", payload)
	var de *model.DeliveryError
	if errors.As(err, &de) && de.Status == http.StatusConflict {
		return nil
	}
	return err
}

// Send delivers one HTML email through the provider.
func (c *EmailClient) Send(ctx context.Context, to, subject, html string) error {
	payload := map[string]string{
		"from":    c.from,
		"to":      to,
		"subject": subject,
		"html":    html,
	}
	return c.call(ctx, "/send", payload)
}

func (c *EmailClient) call(ctx context.Context, endpoint string, payload any) error {
	err := c.cb.Execute(func() error {
		return c.post(ctx, endpoint, payload)
	})
	if errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen) {
		return &model.DeliveryError{Endpoint: endpoint, Msg: err.Error(), Transient: true}
	}
	return err
}

func (c *EmailClient) post(ctx context.Context, endpoint string, payload any) error {
	start := time.Now()

	b, err := json.Marshal(payload)
	if err != nil {
		return &model.DeliveryError{Endpoint: endpoint, Msg: err.Error(), Transient: false}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(b))
	if err != nil {
		return &model.DeliveryError{Endpoint: endpoint, Msg: err.Error(), Transient: false}
	}
	req.Header.Set("Content-Type", "application/json")
	if requestID := trace.FromContext(ctx); requestID != "" {
		req.Header.Set(trace.HeaderName(), requestID)
	}

	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		metrics.RecordProviderCallLatency(endpoint, "error", latency)
		return &model.DeliveryError{Endpoint: endpoint, Msg: err.Error(), Transient: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		metrics.RecordProviderCallLatency(endpoint, "5xx", latency)
		return &model.DeliveryError{Endpoint: endpoint, Status: resp.StatusCode, Msg: "provider error", Transient: true}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RecordProviderCallLatency(endpoint, fmt.Sprintf("%d", resp.StatusCode), latency)
		return &model.DeliveryError{Endpoint: endpoint, Status: resp.StatusCode, Msg: "provider rejected request", Transient: false}
	}

	metrics.RecordProviderCallLatency(endpoint, "success", latency)
	return nil
}
