package wallets

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/martinw82/memeforge-09062025/pkg/chains"
	"github.com/martinw82/memeforge-09062025/pkg/constants"
	"github.com/martinw82/memeforge-09062025/pkg/types"
)

// bridge protocol method names
const (
	bridgeMethodSessionRequest = "session_request"
	bridgeMethodSignTxn        = "algo_signTxn"
)

// BridgeClient is the generic bridge-protocol transport: a relay-mediated
// pairing between the application and a remote wallet, established via QR
// code or deep link. Signing is modeled as one request/response round trip
// with an explicit timeout rather than a persistent event stream.
type BridgeClient struct {
	relayURL string
	logger   *slog.Logger
	dialer   *websocket.Dialer

	mu      sync.Mutex
	conn    *websocket.Conn
	topic   string
	key     string
	address string
	pending map[string]chan *bridgeEnvelope
	done    chan struct{}
}

// BridgeOption configures a BridgeClient.
type BridgeOption func(*BridgeClient)

// WithRelayURL overrides the relay endpoint.
func WithRelayURL(url string) BridgeOption {
	return func(b *BridgeClient) {
		b.relayURL = url
	}
}

// NewBridgeClient creates a bridge-protocol transport.
func NewBridgeClient(logger *slog.Logger, opts ...BridgeOption) *BridgeClient {
	if logger == nil {
		logger = slog.Default()
	}
	b := &BridgeClient{
		relayURL: constants.DefaultBridgeRelayURL,
		logger:   logger,
		dialer:   websocket.DefaultDialer,
		pending:  make(map[string]chan *bridgeEnvelope),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

var _ Transport = (*BridgeClient)(nil)

type bridgeEnvelope struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      string            `json:"id"`
	Method  string            `json:"method,omitempty"`
	Params  json.RawMessage   `json:"params,omitempty"`
	Result  json.RawMessage   `json:"result,omitempty"`
	Error   *ProviderRPCError `json:"error,omitempty"`
}

// Type implements Transport.
func (b *BridgeClient) Type() types.WalletType {
	return types.WalletBridge
}

// Available implements Transport.
func (b *BridgeClient) Available() bool {
	return b.relayURL != ""
}

// PairingURI returns the QR/deep-link URI for the current session, or ""
// before Connect.
func (b *BridgeClient) PairingURI() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.topic == "" {
		return ""
	}
	return fmt.Sprintf("wc:%s@1?bridge=%s&key=%s", b.topic, url.QueryEscape(b.relayURL), b.key)
}

// Connect implements Transport. It opens the relay session, publishes a
// session request under a fresh topic and waits for the wallet's approval.
func (b *BridgeClient) Connect(ctx context.Context) (string, error) {
	b.mu.Lock()
	if b.conn != nil {
		b.mu.Unlock()
		return b.address, nil
	}

	conn, _, err := b.dialer.DialContext(ctx, b.relayURL, nil)
	if err != nil {
		b.mu.Unlock()
		return "", fmt.Errorf("failed to reach relay: %w", err)
	}

	keyBytes := make([]byte, 32)
	if _, err := rand.Read(keyBytes); err != nil {
		conn.Close()
		b.mu.Unlock()
		return "", fmt.Errorf("failed to generate session key: %w", err)
	}

	b.conn = conn
	b.topic = uuid.NewString()
	b.key = hex.EncodeToString(keyBytes)
	b.done = make(chan struct{})
	go b.readLoop(conn, b.done)
	b.mu.Unlock()

	b.logger.Info("bridge session created", "uri", b.PairingURI())

	params, _ := json.Marshal([]map[string]string{{"topic": b.topic}})
	// Session approval is user-paced: no timeout beyond the caller's ctx.
	env, err := b.roundTrip(ctx, bridgeMethodSessionRequest, params, 0)
	if err != nil {
		b.teardown()
		return "", err
	}

	var approval struct {
		Accounts []string `json:"accounts"`
	}
	if err := json.Unmarshal(env.Result, &approval); err != nil {
		b.teardown()
		return "", fmt.Errorf("malformed session approval: %w", err)
	}
	if len(approval.Accounts) == 0 {
		b.teardown()
		return "", chains.ErrNoAccountsReturned
	}

	b.mu.Lock()
	b.address = approval.Accounts[0]
	b.mu.Unlock()
	return approval.Accounts[0], nil
}

// Disconnect implements Transport.
func (b *BridgeClient) Disconnect(ctx context.Context) error {
	b.teardown()
	return nil
}

// SignTransaction implements Transport. The wire format follows the custom
// RPC method convention: params is an array holding an array of objects with
// a base64-encoded unsigned transaction; the result is an array of
// base64-encoded signed payloads.
func (b *BridgeClient) SignTransaction(ctx context.Context, txn []byte) ([]byte, error) {
	b.mu.Lock()
	connected := b.conn != nil
	b.mu.Unlock()
	if !connected {
		return nil, chains.ErrNotConnected
	}

	params, _ := json.Marshal([][]map[string]string{{
		{"txn": base64.StdEncoding.EncodeToString(txn)},
	}})

	env, err := b.roundTrip(ctx, bridgeMethodSignTxn, params, constants.SigningRequestTimeout)
	if err != nil {
		return nil, err
	}

	var signed []string
	if err := json.Unmarshal(env.Result, &signed); err != nil {
		return nil, fmt.Errorf("malformed signing response: %w", err)
	}
	if len(signed) == 0 {
		return nil, fmt.Errorf("wallet returned no signed transactions")
	}

	raw, err := base64.StdEncoding.DecodeString(signed[0])
	if err != nil {
		return nil, fmt.Errorf("failed to decode signed transaction: %w", err)
	}
	return raw, nil
}

// roundTrip writes one request and blocks for its matching response. A zero
// timeout means the call is bounded only by ctx.
func (b *BridgeClient) roundTrip(ctx context.Context, method string, params json.RawMessage, timeout time.Duration) (*bridgeEnvelope, error) {
	id := uuid.NewString()
	ch := make(chan *bridgeEnvelope, 1)

	b.mu.Lock()
	conn := b.conn
	if conn == nil {
		b.mu.Unlock()
		return nil, chains.ErrNotConnected
	}
	b.pending[id] = ch
	err := conn.WriteJSON(&bridgeEnvelope{JSONRPC: "2.0", ID: id, Method: method, Params: params})
	b.mu.Unlock()

	if err != nil {
		b.forget(id)
		return nil, fmt.Errorf("failed to send %s: %w", method, err)
	}

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case env, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("relay session closed")
		}
		if env.Error != nil {
			if env.Error.Code == ProviderCodeUserRejected {
				return nil, chains.ErrUserRejected
			}
			return nil, env.Error
		}
		return env, nil
	case <-timeoutCh:
		b.forget(id)
		return nil, fmt.Errorf("%s timed out after %s", method, timeout)
	case <-ctx.Done():
		b.forget(id)
		return nil, ctx.Err()
	}
}

func (b *BridgeClient) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		var env bridgeEnvelope
		if err := conn.ReadJSON(&env); err != nil {
			b.failPending()
			return
		}

		b.mu.Lock()
		ch, ok := b.pending[env.ID]
		if ok {
			delete(b.pending, env.ID)
		}
		b.mu.Unlock()

		if ok {
			ch <- &env
		} else {
			b.logger.Debug("dropping unmatched relay message", "id", env.ID, "method", env.Method)
		}
	}
}

func (b *BridgeClient) forget(id string) {
	b.mu.Lock()
	delete(b.pending, id)
	b.mu.Unlock()
}

func (b *BridgeClient) failPending() {
	b.mu.Lock()
	for id, ch := range b.pending {
		close(ch)
		delete(b.pending, id)
	}
	b.mu.Unlock()
}

func (b *BridgeClient) teardown() {
	b.mu.Lock()
	conn := b.conn
	b.conn = nil
	b.topic = ""
	b.key = ""
	b.address = ""
	b.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	b.failPending()
}
