package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// rpcRequest is a minimal JSON-RPC 2.0 envelope; the only chain read the
// client performs is eth_getBalance for the profile header.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      int    `json:"id"`
}

type rpcResponse struct {
	Result string `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// WalletBalance returns the latest balance of an address as a hex wei
// string, straight from the RPC endpoint.
func (c *Client) WalletBalance(ctx context.Context, address string) (string, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "eth_getBalance",
		Params:  []any{address, "latest"},
		ID:      1,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("balance fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("balance fetch failed (%s)", resp.Status)
	}

	var payload rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("balance fetch failed: %w", err)
	}
	if payload.Error != nil {
		return "", fmt.Errorf("balance fetch failed: rpc error %d: %s", payload.Error.Code, payload.Error.Message)
	}
	return payload.Result, nil
}
