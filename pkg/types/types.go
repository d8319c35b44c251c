package types

import "time"

// ChainFamily identifies the transaction model of a chain.
type ChainFamily string

const (
	// FamilyAccountModel covers chains where assets are first-class
	// account-level objects created by a dedicated transaction type.
	FamilyAccountModel ChainFamily = "account-model"
	// FamilyEVM covers EVM-compatible chains driven through an injected
	// provider.
	FamilyEVM ChainFamily = "evm"
)

// WalletType identifies the signing transport used for a connection.
// Each chain family accepts its own subset; backends match these
// exhaustively so adding a wallet type is a compile-visible change.
type WalletType string

const (
	// WalletPera is the mobile-wallet SDK transport (account-model family).
	WalletPera WalletType = "pera"
	// WalletBridge is the relay bridge-protocol transport established via
	// QR code or deep link (account-model family).
	WalletBridge WalletType = "bridge"
	// WalletInjected is the in-page provider transport (EVM family).
	WalletInjected WalletType = "injected"
)

// NativeCurrency describes a chain's native token for display purposes.
type NativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint32 `json:"decimals"`
}

// WalletConnection is the record of one live wallet session on one chain.
// Connections are replaced, never mutated in place: reconnects and balance
// refreshes produce a new value.
type WalletConnection struct {
	Address    string     `json:"address"`
	Balance    string     `json:"balance"` // decimal string in native display units
	ChainID    string     `json:"chainId"`
	WalletType WalletType `json:"walletType"`
}

// Attribute is a single metadata trait.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// NFTMetadata is the token metadata document uploaded alongside a mint.
// Image is filled in only after the image upload step; the value must be
// treated as immutable once handed to a backend.
type NFTMetadata struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image,omitempty"`
	ExternalURL string      `json:"external_url,omitempty"`
	Attributes  []Attribute `json:"attributes,omitempty"`
}

// WithImage returns a copy of the metadata with the image URI set.
func (m NFTMetadata) WithImage(uri string) NFTMetadata {
	m.Image = uri
	return m
}

// MintResult is the terminal value of exactly one mint attempt. Mint is
// never retried automatically; a failed result carries a human-readable
// error message instead of a Go error value.
type MintResult struct {
	Success         bool   `json:"success"`
	TransactionHash string `json:"transactionHash,omitempty"`
	TokenID         string `json:"tokenId,omitempty"`
	Error           string `json:"error,omitempty"`
}

// MintFailure builds a failed result from an error.
func MintFailure(err error) *MintResult {
	return &MintResult{Success: false, Error: err.Error()}
}

// MintReceipt is the record pushed to the persistence/social layer after a
// successful mint. The core only writes these out; it never reads them back.
type MintReceipt struct {
	Result          *MintResult `json:"result"`
	ChainID         string      `json:"chainId"`
	ContractAddress string      `json:"contractAddress,omitempty"`
	Creator         string      `json:"creator"`
	TokenName       string      `json:"tokenName"`
	ExplorerURL     string      `json:"explorerUrl,omitempty"`
	MintedAt        time.Time   `json:"mintedAt"`
}
