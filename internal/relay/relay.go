// Package relay forwards normalized attribute payloads to the downstream
// consumer endpoint. Delivery is fire-and-forget: one call per non-empty
// attribute per data kind per firing, no batching, no retry and no
// acknowledgement tracking.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"bindrelay/internal/core"
)

// Payload is the flat publish-data body the downstream consumer accepts.
type Payload struct {
	ProducerID string            `json:"producerId"`
	BindingID  string            `json:"bindingId"`
	AssetID    string            `json:"assetId"`
	AssetType  string            `json:"assetType"`
	DataType   core.DataKind     `json:"dataType"`
	Attribute  string            `json:"attribute"`
	Values     []core.ValueEntry `json:"values"`
}

// Client posts payloads to the relay endpoint.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a relay client for the given endpoint base URL.
func NewClient(baseURL string) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("relay url is empty")
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// PublishValues adapts a task firing's attribute result onto the flat
// publish-data payload. It satisfies the runner's Publisher dependency.
func (c *Client) PublishValues(ctx context.Context, task *core.BindingTask, assetType string, kind core.DataKind, attribute string, values []core.ValueEntry) error {
	return c.Publish(ctx, Payload{
		ProducerID: task.ProducerID,
		BindingID:  task.BindingID,
		AssetID:    task.AssetID,
		AssetType:  assetType,
		DataType:   kind,
		Attribute:  attribute,
		Values:     values,
	})
}

// Publish sends one attribute payload downstream. A non-2xx response is an
// error; the caller logs it and moves on, the data for this cycle is lost.
func (c *Client) Publish(ctx context.Context, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode publish payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/publish-data", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create publish request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("publish %s: %w", payload.Attribute, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("publish %s: status %d: %s", payload.Attribute, resp.StatusCode, string(msg))
	}
	return nil
}
