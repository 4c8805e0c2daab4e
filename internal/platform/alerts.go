package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"bindrelay/internal/core"
)

// AlertClient reads alert history from the Alerta service.
type AlertClient struct {
	baseURL string
	key     string
	client  *http.Client
}

// NewAlertClient creates a client authenticated with an Alerta API key.
func NewAlertClient(baseURL, key string) (*AlertClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("alert service url is empty")
	}
	return &AlertClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		client:  newHTTPClient(),
	}, nil
}

// FindForAsset returns every alert whose resource is the given asset.
func (c *AlertClient) FindForAsset(ctx context.Context, assetID string) ([]core.Alert, error) {
	reqURL := c.baseURL + "/alerts?resource=" + url.QueryEscape(assetID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create alerts request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+c.key)
	req.Header.Set("Accept", "application/ld+json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch alerts for %s: %w", assetID, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("fetch alerts for %s: %w", assetID, err)
	}

	var payload struct {
		Alerts []core.Alert `json:"alerts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode alerts: %w", err)
	}
	return payload.Alerts, nil
}
