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

// seriesTimeLayout is the timestamp format the history store's PostgREST
// frontend expects for observedAt bounds.
const seriesTimeLayout = "2006-01-02T15:04:05-00:00"

// SeriesClient queries the time-series history store through its PostgREST
// interface.
type SeriesClient struct {
	baseURL string
	client  *http.Client
}

// NewSeriesClient creates a client for the entityhistory endpoint.
func NewSeriesClient(baseURL string) (*SeriesClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("time-series url is empty")
	}
	return &SeriesClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  newHTTPClient(),
	}, nil
}

// QueryRange reads the rows of one attribute of one entity whose observedAt
// falls inside the window, newest first.
func (c *SeriesClient) QueryRange(ctx context.Context, token, entityID, attributeID string, win core.Window) ([]core.SeriesRow, error) {
	params := url.Values{}
	params.Set("entityId", "eq."+entityID)
	params.Set("attributeId", "eq."+attributeID)
	params.Add("observedAt", "gte."+win.From.UTC().Format(seriesTimeLayout))
	params.Add("observedAt", "lt."+win.To.UTC().Format(seriesTimeLayout))
	params.Set("order", "observedAt.desc")

	reqURL := c.baseURL + "/entityhistory?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create series request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query series: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("query series: %w", err)
	}

	var rows []core.SeriesRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode series rows: %w", err)
	}
	return rows, nil
}
