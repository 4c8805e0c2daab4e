package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"bindrelay/internal/core"
)

// ContractClient reads contract definitions from the platform backend.
type ContractClient struct {
	baseURL string
	client  *http.Client
}

// NewContractClient creates a client for the backend's contract endpoint.
func NewContractClient(baseURL string) (*ContractClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("platform backend url is empty")
	}
	return &ContractClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  newHTTPClient(),
	}, nil
}

// GetContract fetches the contract a binding task is derived from.
func (c *ContractClient) GetContract(ctx context.Context, contractID, token string) (*core.Contract, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/contract/"+contractID, nil)
	if err != nil {
		return nil, fmt.Errorf("create contract request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch contract %s: %w", contractID, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("fetch contract %s: %w", contractID, err)
	}

	var contract core.Contract
	if err := json.NewDecoder(resp.Body).Decode(&contract); err != nil {
		return nil, fmt.Errorf("decode contract %s: %w", contractID, err)
	}
	return &contract, nil
}
