// Package orchestrator is the single entry point the application layer
// talks to: it owns the multi-chain connection state, drives the chain
// backends, and keeps in-memory and persisted state in agreement.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/martinw82/memeforge-09062025/pkg/chains"
	"github.com/martinw82/memeforge-09062025/pkg/constants"
	"github.com/martinw82/memeforge-09062025/pkg/types"
)

// ErrConnectInFlight is returned when a connect is already running for the
// same chain. Calls are rejected rather than queued so wallet prompts do
// not stack.
var ErrConnectInFlight = errors.New("a connect for this chain is already in flight")

// ReceiptSink receives completed mint receipts for storage. The orchestrator
// only pushes; it never reads back.
type ReceiptSink interface {
	SaveMintReceipt(ctx context.Context, receipt *types.MintReceipt) error
}

// State is a point-in-time snapshot of the connection state machine.
type State struct {
	IsConnected   bool
	ActiveChainID string // empty when nothing is connected
	Connections   map[string]types.WalletConnection
	IsConnecting  bool
	LastError     string
}

// Orchestrator owns the per-chain connections, the active chain pointer and
// in-flight operation state. All mutation funnels through its methods; the
// mutex makes that safe outside single-threaded UI contexts too.
type Orchestrator struct {
	registry *chains.Registry
	store    Store
	sink     ReceiptSink
	logger   *slog.Logger

	mu          sync.Mutex
	connections map[string]*types.WalletConnection
	activeChain string
	lastError   string
	connecting  map[string]bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithStore sets the persistence store (default: file store in the user
// cache directory).
func WithStore(s Store) Option {
	return func(o *Orchestrator) {
		o.store = s
	}
}

// WithReceiptSink sets the collaborator receiving completed mint receipts.
func WithReceiptSink(sink ReceiptSink) Option {
	return func(o *Orchestrator) {
		o.sink = sink
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// New creates an orchestrator over an already-populated registry (backends
// are constructed eagerly by the caller so availability checks work before
// any connect attempt) and restores persisted connection state.
func New(registry *chains.Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry:    registry,
		logger:      slog.Default(),
		connections: make(map[string]*types.WalletConnection),
		connecting:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.store == nil {
		o.store = NewFileStore("")
	}

	o.restore()
	return o
}

// restore loads the persisted connection map and active chain id. Restored
// records are trusted optimistically, but entries for chains no longer in
// the registry or wallet types whose transport is gone are dropped.
func (o *Orchestrator) restore() {
	o.mu.Lock()
	defer o.mu.Unlock()

	data, ok, err := o.store.Get(constants.ConnectionsStorageKey)
	if err != nil || !ok {
		return
	}

	var persisted map[string]*types.WalletConnection
	if err := json.Unmarshal(data, &persisted); err != nil {
		o.logger.Warn("discarding malformed persisted connections", "error", err)
		return
	}

	dropped := false
	for chainID, conn := range persisted {
		backend, err := o.registry.Get(chainID)
		if err != nil || !backend.IsWalletAvailable(conn.WalletType) {
			o.logger.Warn("dropping stale persisted connection", "chain", chainID, "wallet", conn.WalletType)
			dropped = true
			continue
		}
		o.connections[chainID] = conn
	}

	if data, ok, err := o.store.Get(constants.ActiveChainStorageKey); err == nil && ok {
		var active string
		if err := json.Unmarshal(data, &active); err == nil {
			if _, connected := o.connections[active]; connected {
				o.activeChain = active
			}
		}
	}
	if o.activeChain == "" && len(o.connections) > 0 {
		o.activeChain = firstChain(o.connections)
	}

	if dropped {
		o.persistLocked()
	}
}

// State returns a snapshot of the current connection state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()

	connections := make(map[string]types.WalletConnection, len(o.connections))
	for chainID, conn := range o.connections {
		connections[chainID] = *conn
	}
	return State{
		IsConnected:   len(o.connections) > 0,
		ActiveChainID: o.activeChain,
		Connections:   connections,
		IsConnecting:  len(o.connecting) > 0,
		LastError:     o.lastError,
	}
}

// SupportedChains returns the registered chain ids.
func (o *Orchestrator) SupportedChains() []string {
	return o.registry.SupportedChains()
}

// SupportedWallets returns the wallet types available on a chain.
func (o *Orchestrator) SupportedWallets(chainID string) ([]types.WalletType, error) {
	backend, err := o.registry.Get(chainID)
	if err != nil {
		return nil, err
	}
	return backend.SupportedWallets(), nil
}

// ConnectWallet connects a wallet on the given chain and makes that chain
// active. A second call for the same chain while one is in flight fails
// with ErrConnectInFlight; a connect failure records LastError and leaves
// the connection map untouched.
func (o *Orchestrator) ConnectWallet(ctx context.Context, chainID string, walletType types.WalletType) (*types.WalletConnection, error) {
	o.mu.Lock()
	if o.connecting[chainID] {
		o.mu.Unlock()
		return nil, ErrConnectInFlight
	}
	o.connecting[chainID] = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		delete(o.connecting, chainID)
		o.mu.Unlock()
	}()

	backend, err := o.registry.Get(chainID)
	if err != nil {
		o.recordError(err)
		return nil, err
	}

	conn, err := backend.ConnectWallet(ctx, walletType)
	if err != nil {
		o.recordError(err)
		return nil, err
	}

	o.mu.Lock()
	o.connections[chainID] = conn
	o.activeChain = chainID
	o.lastError = ""
	o.persistLocked()
	o.mu.Unlock()

	return conn, nil
}

// DisconnectWallet disconnects one chain and removes its entry. If that
// chain was active, any remaining connected chain becomes active.
func (o *Orchestrator) DisconnectWallet(ctx context.Context, chainID string) error {
	backend, err := o.registry.Get(chainID)
	if err != nil {
		return err
	}

	if err := backend.DisconnectWallet(ctx); err != nil {
		o.logger.Warn("backend disconnect failed", "chain", chainID, "error", err)
	}

	o.mu.Lock()
	delete(o.connections, chainID)
	if o.activeChain == chainID {
		o.activeChain = firstChain(o.connections)
	}
	o.persistLocked()
	o.mu.Unlock()

	return nil
}

// DisconnectAll disconnects every connected backend and clears both the
// in-memory state and the persisted storage. Idempotent.
func (o *Orchestrator) DisconnectAll(ctx context.Context) error {
	o.mu.Lock()
	chainIDs := make([]string, 0, len(o.connections))
	for chainID := range o.connections {
		chainIDs = append(chainIDs, chainID)
	}
	o.mu.Unlock()

	for _, chainID := range chainIDs {
		if backend, err := o.registry.Get(chainID); err == nil {
			if err := backend.DisconnectWallet(ctx); err != nil {
				o.logger.Warn("backend disconnect failed", "chain", chainID, "error", err)
			}
		}
	}

	o.mu.Lock()
	o.connections = make(map[string]*types.WalletConnection)
	o.activeChain = ""
	o.lastError = ""
	o.mu.Unlock()

	if err := o.store.Delete(constants.ConnectionsStorageKey); err != nil {
		return fmt.Errorf("failed to clear persisted connections: %w", err)
	}
	if err := o.store.Delete(constants.ActiveChainStorageKey); err != nil {
		return fmt.Errorf("failed to clear persisted active chain: %w", err)
	}
	return nil
}

// SwitchChain changes the active chain pointer. Purely local: it requires
// an existing connection and performs no network call.
func (o *Orchestrator) SwitchChain(chainID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.connections[chainID]; !ok {
		return chains.ErrNotConnected
	}
	o.activeChain = chainID
	o.persistLocked()
	return nil
}

// RefreshBalance re-queries the balance for a connected chain and replaces
// its connection record.
func (o *Orchestrator) RefreshBalance(ctx context.Context, chainID string) (*types.WalletConnection, error) {
	o.mu.Lock()
	conn, ok := o.connections[chainID]
	o.mu.Unlock()
	if !ok {
		return nil, chains.ErrNotConnected
	}

	backend, err := o.registry.Get(chainID)
	if err != nil {
		return nil, err
	}
	balance, err := backend.GetBalance(ctx, conn.Address)
	if err != nil {
		return nil, err
	}

	refreshed := *conn
	refreshed.Balance = balance

	o.mu.Lock()
	o.connections[chainID] = &refreshed
	o.persistLocked()
	o.mu.Unlock()

	return &refreshed, nil
}

// MintNFT mints on the active chain. Connection state is never mutated by a
// mint, regardless of outcome; failures come back inside the result.
func (o *Orchestrator) MintNFT(ctx context.Context, metadata types.NFTMetadata, imagePayload []byte) *types.MintResult {
	o.mu.Lock()
	activeChain := o.activeChain
	conn := o.connections[activeChain]
	o.mu.Unlock()

	if activeChain == "" || conn == nil {
		return types.MintFailure(chains.ErrNotConnected)
	}

	backend, err := o.registry.Get(activeChain)
	if err != nil {
		return types.MintFailure(err)
	}

	result := backend.MintNFT(ctx, metadata, imagePayload)

	if result.Success && o.sink != nil {
		receipt := &types.MintReceipt{
			Result:          result,
			ChainID:         activeChain,
			ContractAddress: backend.Config().ContractAddress,
			Creator:         conn.Address,
			TokenName:       metadata.Name,
			ExplorerURL:     backend.Config().ExplorerTxURL(result.TransactionHash),
			MintedAt:        time.Now().UTC(),
		}
		if err := o.sink.SaveMintReceipt(ctx, receipt); err != nil {
			o.logger.Warn("failed to push mint receipt", "chain", activeChain, "error", err)
		}
	}

	return result
}

// recordError stores the failure for the UI to render.
func (o *Orchestrator) recordError(err error) {
	o.mu.Lock()
	o.lastError = err.Error()
	o.mu.Unlock()
}

// persistLocked writes the connection map and active chain id to the store.
// Called with o.mu held, synchronously after every successful mutation.
func (o *Orchestrator) persistLocked() {
	data, err := json.Marshal(o.connections)
	if err == nil {
		err = o.store.Set(constants.ConnectionsStorageKey, data)
	}
	if err != nil {
		o.logger.Error("failed to persist connections", "error", err)
		return
	}

	active, _ := json.Marshal(o.activeChain)
	if err := o.store.Set(constants.ActiveChainStorageKey, active); err != nil {
		o.logger.Error("failed to persist active chain", "error", err)
	}
}

// firstChain picks the lexicographically first chain id, so active-chain
// reassignment after a disconnect is deterministic.
func firstChain(connections map[string]*types.WalletConnection) string {
	chainIDs := make([]string, 0, len(connections))
	for chainID := range connections {
		chainIDs = append(chainIDs, chainID)
	}
	if len(chainIDs) == 0 {
		return ""
	}
	sort.Strings(chainIDs)
	return chainIDs[0]
}
