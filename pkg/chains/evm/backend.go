// Package evm implements the chain backend for EVM-compatible networks. One
// Backend instance wraps one injected provider and is parameterized by the
// network's numeric chain id; minting goes through a token contract call.
package evm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/martinw82/memeforge-09062025/pkg/chains"
	"github.com/martinw82/memeforge-09062025/pkg/constants"
	"github.com/martinw82/memeforge-09062025/pkg/types"
	"github.com/martinw82/memeforge-09062025/pkg/utils"
	"github.com/martinw82/memeforge-09062025/pkg/wallets"
)

// minting contract surface: mintTo(address,string) returning the token id,
// emitting the standard Transfer event.
const mintABI = `[{"inputs":[{"internalType":"address","name":"to","type":"address"},{"internalType":"string","name":"uri","type":"string"}],"name":"mintTo","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"nonpayable","type":"function"}]`

var transferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// Backend drives one EVM-compatible network through an injected provider.
type Backend struct {
	cfg      *chains.ChainConfig
	chainID  int64
	provider wallets.Provider
	uploader chains.Uploader
	mintABI  abi.ABI
	logger   *slog.Logger

	mu   sync.Mutex
	conn *types.WalletConnection
}

// New creates a backend for cfg. The chain must have a numeric chain id
// mapping in constants.ChainToEVMChainID.
func New(cfg *chains.ChainConfig, provider wallets.Provider, uploader chains.Uploader, logger *slog.Logger) (*Backend, error) {
	chainID, ok := constants.ChainToEVMChainID[cfg.ID]
	if !ok {
		return nil, &UnsupportedChainError{ChainID: cfg.ID}
	}
	if logger == nil {
		logger = slog.Default()
	}

	parsedABI, err := abi.JSON(strings.NewReader(mintABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse mint ABI: %w", err)
	}

	return &Backend{
		cfg:      cfg,
		chainID:  chainID,
		provider: provider,
		uploader: uploader,
		mintABI:  parsedABI,
		logger:   logger,
	}, nil
}

var _ chains.Backend = (*Backend)(nil)
var _ chains.NetworkSwitcher = (*Backend)(nil)

// ChainID implements chains.Backend.
func (b *Backend) ChainID() string {
	return b.cfg.ID
}

// Config implements chains.Backend.
func (b *Backend) Config() *chains.ChainConfig {
	return b.cfg
}

// SupportedWallets implements chains.Backend.
func (b *Backend) SupportedWallets() []types.WalletType {
	return []types.WalletType{types.WalletInjected}
}

// IsWalletAvailable implements chains.Backend.
func (b *Backend) IsWalletAvailable(walletType types.WalletType) bool {
	return walletType == types.WalletInjected && b.provider != nil
}

// ConnectWallet implements chains.Backend. It requests account access, then
// reconciles the provider's reported network with the configured chain id:
// mismatches trigger a switch request, and a wallet that does not know the
// chain at all gets the chain definition added before the switch is retried.
func (b *Backend) ConnectWallet(ctx context.Context, walletType types.WalletType) (*types.WalletConnection, error) {
	switch walletType {
	case types.WalletInjected:
	default:
		return nil, &chains.UnsupportedWalletError{Wallet: walletType, ChainID: b.cfg.ID}
	}
	if b.provider == nil {
		return nil, &chains.WalletUnavailableError{Wallet: walletType}
	}

	result, err := b.provider.Request(ctx, "eth_requestAccounts", nil)
	if err != nil {
		if wallets.ProviderErrorCode(err) == wallets.ProviderCodeUserRejected {
			return nil, chains.ErrUserRejected
		}
		return nil, fmt.Errorf("account request failed: %w", err)
	}

	var accounts []string
	if err := json.Unmarshal(result, &accounts); err != nil {
		return nil, fmt.Errorf("malformed accounts response: %w", err)
	}
	if len(accounts) == 0 {
		return nil, chains.ErrNoAccountsReturned
	}
	address := common.HexToAddress(accounts[0]).Hex()

	reported, err := b.reportedChainID(ctx)
	if err != nil {
		return nil, err
	}
	if reported != b.chainID {
		if err := b.SwitchNetwork(ctx, b.chainID); err != nil {
			return nil, &chains.NetworkMismatchError{Want: b.chainID, Got: reported, Err: err}
		}
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
	b.mu.Unlock()

	b.logger.Info("wallet connected", "chain", b.cfg.ID, "address", utils.ShortAddress(address))
	return conn, nil
}

// reportedChainID asks the provider which network it is currently on.
func (b *Backend) reportedChainID(ctx context.Context) (int64, error) {
	result, err := b.provider.Request(ctx, "eth_chainId", nil)
	if err != nil {
		return 0, fmt.Errorf("chain id query failed: %w", err)
	}
	var hexID string
	if err := json.Unmarshal(result, &hexID); err != nil {
		return 0, fmt.Errorf("malformed chain id response: %w", err)
	}
	id, err := hexutil.DecodeBig(hexID)
	if err != nil {
		return 0, fmt.Errorf("malformed chain id value %q: %w", hexID, err)
	}
	return id.Int64(), nil
}

// DisconnectWallet implements chains.Backend. Injected providers have no
// teardown call; dropping the session is local.
func (b *Backend) DisconnectWallet(ctx context.Context) error {
	b.mu.Lock()
	b.conn = nil
	b.mu.Unlock()
	return nil
}

// SwitchNetwork implements chains.NetworkSwitcher with the two-step
// fallback: switch, and on an unknown-chain error add the chain definition
// and switch again.
func (b *Backend) SwitchNetwork(ctx context.Context, chainID int64) error {
	if b.provider == nil {
		return &chains.WalletUnavailableError{Wallet: types.WalletInjected}
	}

	hexID := hexutil.EncodeBig(big.NewInt(chainID))
	switchParams := []map[string]string{{"chainId": hexID}}

	_, err := b.provider.Request(ctx, "wallet_switchEthereumChain", switchParams)
	if err == nil {
		return nil
	}
	switch wallets.ProviderErrorCode(err) {
	case wallets.ProviderCodeUserRejected:
		return chains.ErrUserRejected
	case wallets.ProviderCodeUnknownChain:
	default:
		return fmt.Errorf("network switch failed: %w", err)
	}

	// The wallet has never seen this chain: add its definition first.
	addParams := []map[string]any{{
		"chainId":   hexID,
		"chainName": b.cfg.Name,
		"nativeCurrency": map[string]any{
			"name":     b.cfg.NativeCurrency.Name,
			"symbol":   b.cfg.NativeCurrency.Symbol,
			"decimals": b.cfg.NativeCurrency.Decimals,
		},
		"rpcUrls":           b.cfg.RPCEndpoints,
		"blockExplorerUrls": b.cfg.ExplorerURLs,
	}}
	if _, err := b.provider.Request(ctx, "wallet_addEthereumChain", addParams); err != nil {
		if wallets.ProviderErrorCode(err) == wallets.ProviderCodeUserRejected {
			return chains.ErrUserRejected
		}
		return fmt.Errorf("chain add failed: %w", err)
	}

	if _, err := b.provider.Request(ctx, "wallet_switchEthereumChain", switchParams); err != nil {
		if wallets.ProviderErrorCode(err) == wallets.ProviderCodeUserRejected {
			return chains.ErrUserRejected
		}
		return fmt.Errorf("network switch after add failed: %w", err)
	}
	return nil
}

// GetBalance implements chains.Backend.
func (b *Backend) GetBalance(ctx context.Context, address string) (string, error) {
	result, err := b.provider.Request(ctx, "eth_getBalance", []string{address, "latest"})
	if err != nil {
		return "", fmt.Errorf("balance query failed: %w", err)
	}

	var hexBalance string
	if err := json.Unmarshal(result, &hexBalance); err != nil {
		return "", fmt.Errorf("malformed balance response: %w", err)
	}
	wei, err := hexutil.DecodeBig(hexBalance)
	if err != nil {
		return "", fmt.Errorf("malformed balance value %q: %w", hexBalance, err)
	}
	return utils.FormatBaseUnits(wei, b.cfg.NativeCurrency.Decimals), nil
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
	b.mu.Unlock()
	if conn == nil {
		return types.MintFailure(chains.ErrNotConnected)
	}
	if b.cfg.ContractAddress == "" {
		return types.MintFailure(fmt.Errorf("no minting contract configured for chain %s", b.cfg.ID))
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

	data, err := b.mintABI.Pack("mintTo", common.HexToAddress(conn.Address), metadataURI)
	if err != nil {
		return types.MintFailure(&chains.TransactionError{Stage: "build", Err: err})
	}

	txParams := []map[string]string{{
		"from": conn.Address,
		"to":   b.cfg.ContractAddress,
		"data": hexutil.Encode(data),
	}}
	result, err := b.provider.Request(ctx, "eth_sendTransaction", txParams)
	if err != nil {
		if wallets.ProviderErrorCode(err) == wallets.ProviderCodeUserRejected {
			return types.MintFailure(&chains.TransactionError{Stage: "sign", Err: chains.ErrUserRejected})
		}
		return types.MintFailure(&chains.TransactionError{Stage: "submit", Err: err})
	}

	var txHash string
	if err := json.Unmarshal(result, &txHash); err != nil {
		return types.MintFailure(&chains.TransactionError{Stage: "submit", Err: fmt.Errorf("malformed transaction hash: %w", err)})
	}

	receipt, err := b.waitForReceipt(ctx, txHash)
	if err != nil {
		return types.MintFailure(&chains.TransactionError{Stage: "confirm", Err: err})
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return types.MintFailure(&chains.TransactionError{Stage: "confirm", Err: fmt.Errorf("transaction %s reverted", txHash)})
	}

	mintResult := &types.MintResult{Success: true, TransactionHash: txHash}
	if tokenID, ok := tokenIDFromReceipt(receipt); ok {
		mintResult.TokenID = tokenID
	}

	b.logger.Info("token minted", "chain", b.cfg.ID, "txHash", txHash, "tokenId", mintResult.TokenID)
	return mintResult
}

// waitForReceipt polls the configured RPC endpoints for the transaction
// receipt, bounded rounds with a random start position for load balancing.
func (b *Backend) waitForReceipt(ctx context.Context, txHash string) (*ethtypes.Receipt, error) {
	if len(b.cfg.RPCEndpoints) == 0 {
		return nil, fmt.Errorf("no RPC endpoints configured for chain %s", b.cfg.ID)
	}

	startIdx := rand.Intn(len(b.cfg.RPCEndpoints))
	var lastErr error

	for attempt := 0; attempt < constants.MaxConfirmationRounds; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt*constants.DelayBetweenRPCCalls+constants.DelayBetweenRPCCalls) * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		endpoint := b.cfg.RPCEndpoints[(startIdx+attempt)%len(b.cfg.RPCEndpoints)]
		client, err := ethclient.Dial(endpoint)
		if err != nil {
			lastErr = &RPCError{Endpoint: endpoint, Err: err}
			continue
		}

		pollCtx, cancel := context.WithTimeout(ctx, constants.ReceiptPollTimeout)
		receipt, err := client.TransactionReceipt(pollCtx, common.HexToHash(txHash))
		client.Close()
		cancel()

		if err != nil {
			lastErr = &RPCError{Endpoint: endpoint, Err: err}
			continue
		}
		return receipt, nil
	}

	return nil, fmt.Errorf("no receipt for %s after %d attempts: %w", txHash, constants.MaxConfirmationRounds, lastErr)
}

// tokenIDFromReceipt extracts the minted token id from the Transfer event.
func tokenIDFromReceipt(receipt *ethtypes.Receipt) (string, bool) {
	for _, log := range receipt.Logs {
		if len(log.Topics) == 4 && log.Topics[0] == transferTopic {
			return new(big.Int).SetBytes(log.Topics[3].Bytes()).String(), true
		}
	}
	return "", false
}
