package wallets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/martinw82/memeforge-09062025/pkg/constants"
)

// Provider is the in-page provider transport: an EIP-1193 style object
// exposing account and signing RPC methods. Each request takes a single
// params value and resolves to the raw JSON result.
type Provider interface {
	Request(ctx context.Context, method string, params any) (json.RawMessage, error)
}

// ProviderRPCError is the structured error an injected provider returns,
// carrying the wallet error code (4001 user rejected, 4902 unknown chain).
type ProviderRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *ProviderRPCError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// Wallet error codes from EIP-1193/EIP-3085.
const (
	ProviderCodeUserRejected = 4001
	ProviderCodeUnknownChain = 4902
)

// ProviderErrorCode extracts the wallet error code from err, or 0.
func ProviderErrorCode(err error) int {
	var rpcErr *ProviderRPCError
	if errors.As(err, &rpcErr) {
		return rpcErr.Code
	}
	return 0
}

// HTTPProvider implements Provider over plain JSON-RPC 2.0. It serves
// headless embeddings and tests; a browser host injects its own Provider.
type HTTPProvider struct {
	endpoint string
	client   *http.Client
	nextID   atomic.Uint64
}

// NewHTTPProvider creates a provider bound to a JSON-RPC endpoint.
func NewHTTPProvider(endpoint string) *HTTPProvider {
	return &HTTPProvider{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: constants.BalanceQueryTimeout,
			Transport: &http.Transport{
				TLSHandshakeTimeout:   constants.TLSHandshakeTimeout,
				ResponseHeaderTimeout: constants.ResponseHeaderTimeout,
			},
		},
	}
}

var _ Provider = (*HTTPProvider)(nil)

type jsonrpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type jsonrpcResponse struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      uint64            `json:"id"`
	Result  json.RawMessage   `json:"result,omitempty"`
	Error   *ProviderRPCError `json:"error,omitempty"`
}

// Request implements Provider.
func (p *HTTPProvider) Request(ctx context.Context, method string, params any) (json.RawMessage, error) {
	req := jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      p.nextID.Add(1),
		Method:  method,
		Params:  params,
	}

	var resp jsonrpcResponse
	if err := postJSON(ctx, p.client, p.endpoint, req, nil, &resp); err != nil {
		return nil, fmt.Errorf("provider request %s failed: %w", method, err)
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Result, nil
}
