package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tolelom/tolstake/core"
	"github.com/tolelom/tolstake/ledger"
)

// Client calls a ledger node over JSON-RPC.
type Client struct {
	url       string
	authToken string
	hc        *http.Client
}

// NewClient creates a Client for the node at url. A bare host:port gets an
// http:// scheme.
func NewClient(url, authToken string) *Client {
	if !strings.Contains(url, "://") {
		if strings.HasPrefix(url, ":") {
			url = "localhost" + url
		}
		url = "http://" + url
	}
	return &Client{
		url:       url,
		authToken: authToken,
		hc:        &http.Client{Timeout: 15 * time.Second},
	}
}

// Call invokes method with params and decodes the result into out, which
// may be nil. Server-side failures are returned as *Error.
func (c *Client) Call(ctx context.Context, method string, params, out any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	body, err := json.Marshal(Request{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  method,
		Params:  raw,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: http status %s", method, resp.Status)
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *Error          `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("%s: decode response: %w", method, err)
	}
	if envelope.Error != nil {
		return envelope.Error
	}
	if out == nil || len(envelope.Result) == 0 {
		return nil
	}
	return json.Unmarshal(envelope.Result, out)
}

// Nonce returns the next nonce for address.
func (c *Client) Nonce(ctx context.Context, address string) (uint64, error) {
	var acc core.Account
	if err := c.Call(ctx, "getBalance", map[string]string{"address": address}, &acc); err != nil {
		return 0, err
	}
	return acc.Nonce, nil
}

// SendTx submits a signed transaction and returns its receipt.
func (c *Client) SendTx(ctx context.Context, tx *core.Transaction) (*ledger.Receipt, error) {
	var rcpt ledger.Receipt
	if err := c.Call(ctx, "sendTx", tx, &rcpt); err != nil {
		return nil, err
	}
	return &rcpt, nil
}
