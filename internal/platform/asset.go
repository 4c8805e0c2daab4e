package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"bindrelay/internal/core"
)

// AssetClient reads asset attribute snapshots from the NGSI-LD context
// broker.
type AssetClient struct {
	baseURL string
	client  *http.Client
}

// NewAssetClient creates a client for the broker's entities endpoint.
func NewAssetClient(baseURL string) (*AssetClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("asset service url is empty")
	}
	return &AssetClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  newHTTPClient(),
	}, nil
}

// GetAssetByID fetches the current full attribute snapshot of an asset.
func (c *AssetClient) GetAssetByID(ctx context.Context, assetID, token string) (*core.Asset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+assetID, nil)
	if err != nil {
		return nil, fmt.Errorf("create asset request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/ld+json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch asset %s: %w", assetID, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("fetch asset %s: %w", assetID, err)
	}

	var entity map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&entity); err != nil {
		return nil, fmt.Errorf("decode asset %s: %w", assetID, err)
	}
	return parseAsset(entity), nil
}

// parseAsset lowers a raw NGSI-LD entity into the snapshot shape the
// extractors consume. Non-object members (id, type, @context) are kept out of
// the attribute map.
func parseAsset(entity map[string]json.RawMessage) *core.Asset {
	asset := &core.Asset{Attributes: make(map[string]core.Attribute)}
	for key, raw := range entity {
		switch key {
		case "id":
			_ = json.Unmarshal(raw, &asset.ID)
			continue
		case "type":
			_ = json.Unmarshal(raw, &asset.Type)
			continue
		case "@context":
			continue
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			continue
		}
		asset.Attributes[key] = parseAttribute(obj)
	}
	return asset
}

func parseAttribute(obj map[string]json.RawMessage) core.Attribute {
	var attr core.Attribute
	for key, raw := range obj {
		switch shortName(key) {
		case "type":
			_ = json.Unmarshal(raw, &attr.Type)
		case "value":
			_ = json.Unmarshal(raw, &attr.Value)
		case "unit":
			attr.Unit = nestedString(raw)
		case "segment":
			attr.Segment = nestedString(raw)
		}
	}
	return attr
}

// nestedString reads either a plain string or the value member of a nested
// sub-property.
func nestedString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var nested struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &nested); err == nil {
		return nested.Value
	}
	return ""
}

// shortName strips the URI prefix from an expanded attribute key.
func shortName(key string) string {
	if i := strings.LastIndexAny(key, "/#"); i >= 0 {
		return key[i+1:]
	}
	return key
}
