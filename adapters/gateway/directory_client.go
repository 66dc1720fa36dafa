package gateway

import (
	"context"
	"fmt"

	"github.com/layer-3/salvo/core"
)

// DirectoryClient fetches the current signer server fleet.
type DirectoryClient struct {
	*Client
}

// NewDirectoryClient creates a directory client.
func NewDirectoryClient(client *Client) *DirectoryClient {
	return &DirectoryClient{Client: client}
}

type directoryResponse struct {
	Servers []struct {
		EndpointURL string `json:"endpointURL"`
		URL         string `json:"url"`
	} `json:"servers"`
}

// Servers lists the fleet. The directory requires a valid bearer token and
// is fetched fresh on every call.
func (c *DirectoryClient) Servers(ctx context.Context, bearer string) ([]core.ServerDirectoryEntry, error) {
	var resp directoryResponse
	if err := c.getJSON(ctx, c.baseURL+"/pr/servers", bearer, &resp); err != nil {
		return nil, fmt.Errorf("fetch server directory: %w", err)
	}

	entries := make([]core.ServerDirectoryEntry, 0, len(resp.Servers))
	for _, s := range resp.Servers {
		endpoint := s.EndpointURL
		if endpoint == "" {
			endpoint = s.URL
		}
		if endpoint == "" {
			continue
		}
		entries = append(entries, core.ServerDirectoryEntry{EndpointURL: endpoint})
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("server directory is empty")
	}
	return entries, nil
}
