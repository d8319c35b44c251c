// Package algo implements the account-model chain backend. Assets are
// first-class account-level objects: a mint is an asset-creation transaction
// with total supply 1 and zero decimals, all management roles assigned to
// the creating account.
package algo

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/algorand/go-algorand-sdk/v2/client/v2/common/models"
	"github.com/algorand/go-algorand-sdk/v2/encoding/msgpack"
	"github.com/algorand/go-algorand-sdk/v2/transaction"
	sdktypes "github.com/algorand/go-algorand-sdk/v2/types"

	"github.com/martinw82/memeforge-09062025/pkg/chains"
	"github.com/martinw82/memeforge-09062025/pkg/constants"
	"github.com/martinw82/memeforge-09062025/pkg/types"
	"github.com/martinw82/memeforge-09062025/pkg/utils"
	"github.com/martinw82/memeforge-09062025/pkg/wallets"
)

// Status is the backend lifecycle phase.
type Status string

const (
	StatusUninitialized       Status = "uninitialized"
	StatusWalletsInitializing Status = "wallets-initializing"
	StatusReady               Status = "ready"
)

// TransportBuilder constructs one wallet transport adapter.
type TransportBuilder func(logger *slog.Logger) (wallets.Transport, error)

// DefaultTransportBuilders returns builders for every wallet type the
// account-model chain supports.
func DefaultTransportBuilders() []TransportBuilder {
	return []TransportBuilder{
		func(logger *slog.Logger) (wallets.Transport, error) {
			return wallets.NewPeraClient(logger), nil
		},
		func(logger *slog.Logger) (wallets.Transport, error) {
			return wallets.NewBridgeClient(logger), nil
		},
	}
}

// Backend drives one account-model network.
type Backend struct {
	cfg        *chains.ChainConfig
	node       nodeClient
	uploader   chains.Uploader
	transports map[types.WalletType]wallets.Transport
	logger     *slog.Logger

	mu     sync.Mutex
	status Status
	conn   *types.WalletConnection
	active wallets.Transport
}

// New creates a backend bound to cfg's network. Transport construction
// failures are logged and leave that wallet type unavailable; they never
// fail backend construction.
func New(cfg *chains.ChainConfig, uploader chains.Uploader, logger *slog.Logger, builders ...TransportBuilder) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.RPCEndpoints) == 0 {
		return nil, fmt.Errorf("no RPC endpoints configured for chain %s", cfg.ID)
	}

	b := &Backend{
		cfg:        cfg,
		uploader:   uploader,
		transports: make(map[types.WalletType]wallets.Transport),
		logger:     logger,
		status:     StatusUninitialized,
	}

	node, err := newAlgodNode(cfg.RPCEndpoints[0])
	if err != nil {
		return nil, fmt.Errorf("failed to create node client for %s: %w", cfg.ID, err)
	}
	b.node = node

	b.status = StatusWalletsInitializing
	if len(builders) == 0 {
		builders = DefaultTransportBuilders()
	}
	for _, build := range builders {
		t, err := build(logger)
		if err != nil {
			logger.Warn("failed to create wallet transport", "chain", cfg.ID, "error", err)
			continue
		}
		b.transports[t.Type()] = t
	}
	b.status = StatusReady

	return b, nil
}

var _ chains.Backend = (*Backend)(nil)

// newWithNode wires a fake node and explicit transports (tests).
func newWithNode(cfg *chains.ChainConfig, node nodeClient, uploader chains.Uploader, logger *slog.Logger, transports ...wallets.Transport) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Backend{
		cfg:        cfg,
		node:       node,
		uploader:   uploader,
		transports: make(map[types.WalletType]wallets.Transport),
		logger:     logger,
		status:     StatusReady,
	}
	for _, t := range transports {
		b.transports[t.Type()] = t
	}
	return b
}

// ChainID implements chains.Backend.
func (b *Backend) ChainID() string {
	return b.cfg.ID
}

// Config implements chains.Backend.
func (b *Backend) Config() *chains.ChainConfig {
	return b.cfg
}

// Status returns the backend lifecycle phase.
func (b *Backend) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// SupportedWallets implements chains.Backend. Order follows the config's
// accepted list; wallet types whose transport failed to construct are
// omitted.
func (b *Backend) SupportedWallets() []types.WalletType {
	supported := make([]types.WalletType, 0, len(b.transports))
	for _, w := range b.cfg.Wallets {
		if _, ok := b.transports[w]; ok {
			supported = append(supported, w)
		}
	}
	return supported
}

// IsWalletAvailable implements chains.Backend.
func (b *Backend) IsWalletAvailable(walletType types.WalletType) bool {
	t, ok := b.transports[walletType]
	return ok && t.Available()
}

// ConnectWallet implements chains.Backend.
func (b *Backend) ConnectWallet(ctx context.Context, walletType types.WalletType) (*types.WalletConnection, error) {
	if !b.cfg.AcceptsWallet(walletType) {
		return nil, &chains.UnsupportedWalletError{Wallet: walletType, ChainID: b.cfg.ID}
	}
	t, ok := b.transports[walletType]
	if !ok || !t.Available() {
		return nil, &chains.WalletUnavailableError{Wallet: walletType}
	}

	address, err := t.Connect(ctx)
	if err != nil {
		return nil, err
	}
	if address == "" {
		return nil, chains.ErrNoAccountsReturned
	}
	if _, err := sdktypes.DecodeAddress(address); err != nil {
		return nil, fmt.Errorf("wallet returned malformed address %q: %w", utils.ShortAddress(address), err)
	}

	// Balance is best-effort: a failed query must not fail the connect.
	balance := constants.BalanceUnavailable
	balanceCtx, cancel := context.WithTimeout(ctx, constants.BalanceQueryTimeout)
	if bal, err := b.GetBalance(balanceCtx, address); err != nil {
		b.logger.Warn("balance query failed after connect", "chain", b.cfg.ID, "address", utils.ShortAddress(address), "error", err)
	} else {
		balance = bal
	}
	cancel()

	conn := &types.WalletConnection{
		Address:    address,
		Balance:    balance,
		ChainID:    b.cfg.ID,
		WalletType: walletType,
	}

	b.mu.Lock()
	b.conn = conn
	b.active = t
	b.mu.Unlock()

	b.logger.Info("wallet connected", "chain", b.cfg.ID, "wallet", walletType, "address", utils.ShortAddress(address))
	return conn, nil
}

// DisconnectWallet implements chains.Backend.
func (b *Backend) DisconnectWallet(ctx context.Context) error {
	b.mu.Lock()
	active := b.active
	b.conn = nil
	b.active = nil
	b.mu.Unlock()

	if active != nil {
		if err := active.Disconnect(ctx); err != nil {
			return fmt.Errorf("transport disconnect failed: %w", err)
		}
	}
	return nil
}

// GetBalance implements chains.Backend.
func (b *Backend) GetBalance(ctx context.Context, address string) (string, error) {
	account, err := b.node.AccountInformation(ctx, address)
	if err != nil {
		return "", fmt.Errorf("account query failed: %w", err)
	}
	return utils.FormatBaseUnitsUint(account.Amount, b.cfg.NativeCurrency.Decimals), nil
}

// UploadImage implements chains.Backend.
func (b *Backend) UploadImage(ctx context.Context, imagePayload []byte) (string, error) {
	return b.uploader.UploadImage(ctx, imagePayload)
}

// UploadMetadata implements chains.Backend.
func (b *Backend) UploadMetadata(ctx context.Context, metadata types.NFTMetadata) (string, error) {
	return b.uploader.UploadMetadata(ctx, metadata)
}

// MintNFT implements chains.Backend.
func (b *Backend) MintNFT(ctx context.Context, metadata types.NFTMetadata, imagePayload []byte) *types.MintResult {
	b.mu.Lock()
	conn := b.conn
	active := b.active
	b.mu.Unlock()
	if conn == nil || active == nil {
		return types.MintFailure(chains.ErrNotConnected)
	}

	imageURI, err := b.uploader.UploadImage(ctx, imagePayload)
	if err != nil {
		return types.MintFailure(&chains.UploadError{Stage: "image", Err: err})
	}

	metadata = metadata.WithImage(imageURI)
	metadataURI, err := b.uploader.UploadMetadata(ctx, metadata)
	if err != nil {
		return types.MintFailure(&chains.UploadError{Stage: "metadata", Err: err})
	}

	params, err := b.node.SuggestedParams(ctx)
	if err != nil {
		return types.MintFailure(&chains.TransactionError{Stage: "build", Err: err})
	}

	// Supply 1 with zero decimals makes the asset non-fungible; the creator
	// keeps every management role.
	txn, err := transaction.MakeAssetCreateTxn(
		conn.Address, nil, params,
		constants.AssetTotalSupply, constants.AssetDecimals, false,
		conn.Address, conn.Address, conn.Address, conn.Address,
		constants.AssetUnitName, metadata.Name, metadataURI, "",
	)
	if err != nil {
		return types.MintFailure(&chains.TransactionError{Stage: "build", Err: err})
	}

	signed, err := active.SignTransaction(ctx, msgpack.Encode(&txn))
	if err != nil {
		return types.MintFailure(&chains.TransactionError{Stage: "sign", Err: err})
	}

	txid, err := b.node.SendRawTransaction(ctx, signed)
	if err != nil {
		return types.MintFailure(&chains.TransactionError{Stage: "submit", Err: err})
	}

	info, err := b.waitForConfirmation(ctx, txid)
	if err != nil {
		return types.MintFailure(&chains.TransactionError{Stage: "confirm", Err: err})
	}

	b.logger.Info("asset created", "chain", b.cfg.ID, "txid", txid, "assetId", info.AssetIndex)
	return &types.MintResult{
		Success:         true,
		TransactionHash: txid,
		TokenID:         strconv.FormatUint(info.AssetIndex, 10),
	}
}

// waitForConfirmation polls the pending-transaction endpoint for a bounded
// number of rounds.
func (b *Backend) waitForConfirmation(ctx context.Context, txid string) (models.PendingTransactionInfoResponse, error) {
	var info models.PendingTransactionInfoResponse

	status, err := b.node.Status(ctx)
	if err != nil {
		return info, fmt.Errorf("node status failed: %w", err)
	}
	round := status.LastRound

	for i := 0; i < constants.MaxConfirmationRounds; i++ {
		info, err = b.node.PendingTransactionInformation(ctx, txid)
		if err == nil {
			if info.PoolError != "" {
				return info, fmt.Errorf("transaction rejected: %s", info.PoolError)
			}
			if info.ConfirmedRound > 0 {
				return info, nil
			}
		}

		if _, err := b.node.StatusAfterBlock(ctx, round); err != nil {
			return info, fmt.Errorf("wait for round %d failed: %w", round, err)
		}
		round++
	}

	return info, fmt.Errorf("transaction %s not confirmed after %d rounds", txid, constants.MaxConfirmationRounds)
}
