package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignWithdrawal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sign", r.URL.Path)
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "0xabc", req["address"])
		assert.Equal(t, "12.5", req["amount"])

		w.Write([]byte(`{"signature":"0xsig","expectedExpiration":1700000600,"code":"BATCH-9"}`))
	}))
	defer srv.Close()

	client := NewSignerClient(srv.Client())
	sig, err := client.SignWithdrawal(context.Background(), srv.URL, "0xabc", decimal.RequireFromString("12.5"))
	require.NoError(t, err)
	assert.Equal(t, "0xsig", sig.Signature)
	assert.EqualValues(t, 1700000600, sig.ExpectedExpiration)
	assert.Equal(t, "BATCH-9", sig.Code)
}

func TestSignWithdrawalSoftFailures(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"explicit failure flag", `{"success":false}`},
		{"failed status", `{"status":"failed"}`},
		{"not authenticated", `{"status":"not_authenticated"}`},
		{"missing signature", `{"expectedExpiration":1700000600,"code":"B"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			client := NewSignerClient(srv.Client())
			_, err := client.SignWithdrawal(context.Background(), srv.URL, "0xabc", decimal.NewFromInt(1))
			assert.Error(t, err)
		})
	}
}

func TestSignWithdrawalTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"signature":"0xsig"}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	client := NewSignerClient(srv.Client())
	_, err := client.SignWithdrawal(ctx, srv.URL, "0xabc", decimal.NewFromInt(1))
	assert.Error(t, err)
}
