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

// IMClient talks to the instant-messaging provider, an opaque HTTP API with a
// single endpoint: POST {url}/messages carrying a bot token and the text.
type IMClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	cb         *circuitbreaker.CircuitBreaker
}

func NewIMClient(cfg config.IMConfig) *IMClient {
	return &IMClient{
		baseURL: strings.TrimSuffix(cfg.URL, "/"),
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig()),
	}
}

// SendMessage posts one text message.
func (c *IMClient) SendMessage(ctx context.Context, text string) error {
	payload := map[string]string{
		"token": c.token,
		"text":  text,
	}

	err := c.cb.Execute(func() error {
		return c.post(ctx, "/messages", payload)
	})
	if errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen) {
		return &model.DeliveryError{Endpoint: "/messages", Msg: err.Error(), Transient: true}
	}
	return err
}

func (c *IMClient) post(ctx context.Context, endpoint string, payload any) error {
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
