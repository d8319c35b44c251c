package chains

import (
	"context"

	"github.com/martinw82/memeforge-09062025/pkg/types"
)

// ChainConfig is the static descriptor of one supported chain. Values are
// loaded once at construction and never mutated.
type ChainConfig struct {
	ID              string
	Name            string
	Family          types.ChainFamily
	NativeCurrency  types.NativeCurrency
	RPCEndpoints    []string
	ExplorerURLs    []string
	Testnet         bool
	Wallets         []types.WalletType
	ContractAddress string // optional minting contract (EVM chains)
}

// AcceptsWallet reports whether walletType is in the config's accepted set.
func (c *ChainConfig) AcceptsWallet(walletType types.WalletType) bool {
	for _, w := range c.Wallets {
		if w == walletType {
			return true
		}
	}
	return false
}

// ExplorerTxURL returns a browser link for a transaction hash, or "" when no
// explorer is configured.
func (c *ChainConfig) ExplorerTxURL(txHash string) string {
	if len(c.ExplorerURLs) == 0 || txHash == "" {
		return ""
	}
	return c.ExplorerURLs[0] + "/tx/" + txHash
}

// Backend provides blockchain-specific wallet and minting operations for one
// chain. Implementations own disjoint per-chain state; cross-chain calls may
// run concurrently but a single backend is driven by one caller at a time
// (the orchestrator's single-flight guard).
type Backend interface {
	// ChainID returns the registry key (e.g. "algorand_testnet", "base").
	ChainID() string

	// Config returns the static chain descriptor.
	Config() *ChainConfig

	// SupportedWallets returns the wallet types this backend can drive.
	SupportedWallets() []types.WalletType

	// IsWalletAvailable reports whether the transport for walletType is
	// present and initialized.
	IsWalletAvailable(walletType types.WalletType) bool

	// ConnectWallet establishes a wallet session. The returned connection
	// has its balance populated best-effort: a failed balance query yields
	// the sentinel value, never a failed connect.
	ConnectWallet(ctx context.Context, walletType types.WalletType) (*types.WalletConnection, error)

	// DisconnectWallet tears down the current session. Idempotent.
	DisconnectWallet(ctx context.Context) error

	// GetBalance returns the address balance as a decimal string in native
	// display units.
	GetBalance(ctx context.Context, address string) (string, error)

	// UploadImage stores an image payload (raw bytes, base64, or data URI)
	// and returns its URI.
	UploadImage(ctx context.Context, imagePayload []byte) (string, error)

	// UploadMetadata stores a metadata document and returns its URI.
	UploadMetadata(ctx context.Context, metadata types.NFTMetadata) (string, error)

	// MintNFT uploads the image and metadata, then constructs, signs,
	// submits and confirms the chain-specific creation transaction. It
	// never returns a Go error: every failure is folded into the result.
	MintNFT(ctx context.Context, metadata types.NFTMetadata, imagePayload []byte) *types.MintResult
}

// NetworkSwitcher is an optional interface for backends that can ask the
// wallet to change its active network.
// Implemented by: the EVM backend. Account-model backends are bound to a
// single network per instance and do not implement it.
type NetworkSwitcher interface {
	// SwitchNetwork requests the wallet move to the given numeric chain id,
	// adding the chain definition first if the wallet does not know it.
	SwitchNetwork(ctx context.Context, chainID int64) error
}

// Uploader stores mint artifacts and returns their URIs. Both chain
// families share one implementation.
type Uploader interface {
	UploadImage(ctx context.Context, imagePayload []byte) (string, error)
	UploadMetadata(ctx context.Context, metadata types.NFTMetadata) (string, error)
}
