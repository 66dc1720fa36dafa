package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/layer-3/salvo/core"
)

// AuthClient talks to the challenge and token issuer.
type AuthClient struct {
	*Client
}

// NewAuthClient creates an issuer client.
func NewAuthClient(client *Client) *AuthClient {
	return &AuthClient{Client: client}
}

// Challenge requests a one-time message for the account to sign.
func (c *AuthClient) Challenge(ctx context.Context, address string) (string, error) {
	endpoint := fmt.Sprintf("%s/auth/challenge?address=%s", c.baseURL, url.QueryEscape(address))

	var resp struct {
		Message json.RawMessage `json:"message"`
	}
	if err := c.getJSON(ctx, endpoint, "", &resp); err != nil {
		return "", err
	}

	var message string
	if err := json.Unmarshal(resp.Message, &message); err != nil {
		// Anything other than a plain string is unusable.
		return "", core.ErrChallengeUnavailable
	}
	return message, nil
}

// Exchange trades a signed challenge for a bearer token. Issuer deployments
// have shipped several response shapes over time, so the token is looked up
// tolerantly; core.ErrInvalidLoginResponse is returned when none matches.
func (c *AuthClient) Exchange(ctx context.Context, address, signature string) (string, error) {
	endpoint := fmt.Sprintf("%s/auth/login?address=%s&signature=%s",
		c.baseURL, url.QueryEscape(address), url.QueryEscape(signature))

	var body map[string]json.RawMessage
	if err := c.getJSON(ctx, endpoint, "", &body); err != nil {
		return "", err
	}

	if token, ok := extractToken(body); ok {
		return token, nil
	}
	return "", core.ErrInvalidLoginResponse
}

var tokenKeys = []string{"token", "access_token", "accessToken", "jwt"}

func extractToken(body map[string]json.RawMessage) (string, bool) {
	for _, key := range tokenKeys {
		raw, ok := body[key]
		if !ok {
			continue
		}
		var token string
		if err := json.Unmarshal(raw, &token); err == nil && token != "" {
			return token, true
		}
	}
	// Some deployments nest the payload under "data".
	if raw, ok := body["data"]; ok {
		var nested map[string]json.RawMessage
		if err := json.Unmarshal(raw, &nested); err == nil {
			return extractToken(nested)
		}
	}
	return "", false
}
