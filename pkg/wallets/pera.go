package wallets

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/martinw82/memeforge-09062025/pkg/chains"
	"github.com/martinw82/memeforge-09062025/pkg/constants"
	"github.com/martinw82/memeforge-09062025/pkg/types"
)

// DefaultPeraConnectURL is the mobile-wallet pairing service endpoint.
const DefaultPeraConnectURL = "https://connect-api.perawallet.app"

const peraPollInterval = 2 * time.Second

// PeraClient is the mobile-wallet SDK transport. A connect creates a pairing
// session the user approves on their phone (via deep link); signing submits
// an array of transaction groups and gets raw signed bytes back.
type PeraClient struct {
	baseURL   string
	client    *http.Client
	logger    *slog.Logger
	sessionID string
	address   string
}

// PeraOption configures a PeraClient.
type PeraOption func(*PeraClient)

// WithPeraBaseURL overrides the pairing service endpoint.
func WithPeraBaseURL(url string) PeraOption {
	return func(p *PeraClient) {
		p.baseURL = url
	}
}

// NewPeraClient creates a mobile-wallet transport.
func NewPeraClient(logger *slog.Logger, opts ...PeraOption) *PeraClient {
	if logger == nil {
		logger = slog.Default()
	}
	p := &PeraClient{
		baseURL: DefaultPeraConnectURL,
		logger:  logger,
		client: &http.Client{
			Transport: &http.Transport{
				TLSHandshakeTimeout:   constants.TLSHandshakeTimeout,
				ResponseHeaderTimeout: constants.ResponseHeaderTimeout,
			},
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ Transport = (*PeraClient)(nil)

// Type implements Transport.
func (p *PeraClient) Type() types.WalletType {
	return types.WalletPera
}

// Available implements Transport.
func (p *PeraClient) Available() bool {
	return p.baseURL != ""
}

type peraSessionResponse struct {
	SessionID string `json:"sessionId"`
	DeepLink  string `json:"deepLink"`
	Status    string `json:"status"` // "pending", "approved", "rejected"
	Address   string `json:"address,omitempty"`
}

// Connect implements Transport. It creates a pairing session and polls until
// the user approves or rejects it on the device.
func (p *PeraClient) Connect(ctx context.Context) (string, error) {
	var created peraSessionResponse
	if err := postJSON(ctx, p.client, p.baseURL+"/v1/sessions", map[string]string{"id": uuid.NewString()}, nil, &created); err != nil {
		return "", fmt.Errorf("failed to create pairing session: %w", err)
	}
	p.sessionID = created.SessionID

	p.logger.Info("waiting for mobile wallet approval", "deepLink", created.DeepLink)

	// Approval is user-paced: keep polling until the session resolves or
	// the caller cancels.
	for {
		var session peraSessionResponse
		if err := getJSON(ctx, p.client, p.baseURL+"/v1/sessions/"+p.sessionID, &session); err != nil {
			return "", fmt.Errorf("failed to poll pairing session: %w", err)
		}

		switch session.Status {
		case "approved":
			if session.Address == "" {
				return "", chains.ErrNoAccountsReturned
			}
			p.address = session.Address
			return session.Address, nil
		case "rejected":
			return "", chains.ErrUserRejected
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(peraPollInterval):
		}
	}
}

// Disconnect implements Transport.
func (p *PeraClient) Disconnect(ctx context.Context) error {
	if p.sessionID == "" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, p.baseURL+"/v1/sessions/"+p.sessionID, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err == nil {
		resp.Body.Close()
	}
	p.sessionID = ""
	p.address = ""
	return nil
}

type peraSignRequest struct {
	// Groups is an array of transaction groups, each an array of
	// base64-encoded unsigned transactions.
	Groups [][]string `json:"groups"`
	Signer string     `json:"signer"`
}

type peraSignResponse struct {
	Status string `json:"status"`
	// SignedGroups mirrors the request shape with base64 signed bytes.
	SignedGroups [][]string `json:"signedGroups"`
}

// SignTransaction implements Transport. The SDK protocol signs transaction
// groups; a single mint transaction travels as a one-element group.
func (p *PeraClient) SignTransaction(ctx context.Context, txn []byte) ([]byte, error) {
	if p.sessionID == "" {
		return nil, chains.ErrNotConnected
	}

	req := peraSignRequest{
		Groups: [][]string{{base64.StdEncoding.EncodeToString(txn)}},
		Signer: p.address,
	}

	var resp peraSignResponse
	if err := postJSON(ctx, p.client, p.baseURL+"/v1/sessions/"+p.sessionID+"/sign", req, nil, &resp); err != nil {
		return nil, fmt.Errorf("signing request failed: %w", err)
	}

	if resp.Status == "rejected" {
		return nil, chains.ErrUserRejected
	}
	if len(resp.SignedGroups) == 0 || len(resp.SignedGroups[0]) == 0 {
		return nil, fmt.Errorf("wallet returned no signed transactions")
	}

	signed, err := base64.StdEncoding.DecodeString(resp.SignedGroups[0][0])
	if err != nil {
		return nil, fmt.Errorf("failed to decode signed transaction: %w", err)
	}
	return signed, nil
}
