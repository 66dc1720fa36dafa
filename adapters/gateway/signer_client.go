package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/layer-3/salvo/core"
)

// SignerClient requests withdrawal attestations from individual signer
// servers. Unlike the issuer clients it is not rooted at one base URL:
// every call targets a directory entry.
type SignerClient struct {
	http *http.Client
}

// NewSignerClient creates a signer client.
func NewSignerClient(httpClient *http.Client) *SignerClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &SignerClient{http: httpClient}
}

type signRequest struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

type signResponse struct {
	Success            *bool  `json:"success"`
	Status             string `json:"status"`
	Signature          string `json:"signature"`
	ExpectedExpiration int64  `json:"expectedExpiration"`
	Code               string `json:"code"`
}

// SignWithdrawal asks one server to attest to the withdrawal. Servers may
// report "not authenticated" or an explicit failure flag instead of a
// transport error; both surface as ordinary errors for the collector to
// count as soft failures.
func (c *SignerClient) SignWithdrawal(ctx context.Context, endpointURL, address string, amount decimal.Decimal) (core.ServerSignature, error) {
	client := &Client{baseURL: endpointURL, http: c.http}

	var resp signResponse
	req := signRequest{Address: address, Amount: amount.String()}
	if err := client.postJSON(ctx, endpointURL+"/sign", "", req, &resp); err != nil {
		return core.ServerSignature{}, err
	}

	if resp.Success != nil && !*resp.Success {
		return core.ServerSignature{}, fmt.Errorf("server %s reported failure", endpointURL)
	}
	if resp.Status == "failed" || resp.Status == "not_authenticated" || resp.Status == "notAuthenticated" {
		return core.ServerSignature{}, fmt.Errorf("server %s reported %q", endpointURL, resp.Status)
	}
	if resp.Signature == "" {
		return core.ServerSignature{}, fmt.Errorf("server %s returned no signature", endpointURL)
	}

	return core.ServerSignature{
		Signature:          resp.Signature,
		ExpectedExpiration: resp.ExpectedExpiration,
		Code:               resp.Code,
	}, nil
}
