package chains

import (
	"errors"
	"fmt"

	"github.com/martinw82/memeforge-09062025/pkg/types"
)

// Sentinel errors for conditions that carry no extra data.
var (
	// ErrUserRejected is returned when the signer explicitly declines a
	// connect or signing prompt.
	ErrUserRejected = errors.New("user rejected the request")

	// ErrNoAccountsReturned is returned when a transport completes without
	// yielding an address.
	ErrNoAccountsReturned = errors.New("wallet returned no accounts")

	// ErrNotConnected is returned when an operation requires a prior
	// successful connect.
	ErrNotConnected = errors.New("no wallet connected")
)

// WalletUnavailableError is returned when the transport for a wallet type is
// not present or failed to initialize.
type WalletUnavailableError struct {
	Wallet types.WalletType
}

func (e *WalletUnavailableError) Error() string {
	return fmt.Sprintf("wallet %s is not available", e.Wallet)
}

// UnsupportedWalletError is returned when a wallet type is not in the
// backend's supported set.
type UnsupportedWalletError struct {
	Wallet  types.WalletType
	ChainID string
}

func (e *UnsupportedWalletError) Error() string {
	return fmt.Sprintf("wallet %s is not supported on chain %s", e.Wallet, e.ChainID)
}

// NetworkMismatchError is returned when the wallet reports a different
// network than configured and switching (or adding) the chain failed.
type NetworkMismatchError struct {
	Want int64
	Got  int64
	Err  error
}

func (e *NetworkMismatchError) Error() string {
	return fmt.Sprintf("wallet is on chain %d, expected %d: %v", e.Got, e.Want, e.Err)
}

func (e *NetworkMismatchError) Unwrap() error {
	return e.Err
}

// UploadError is returned when storing the image or metadata fails.
type UploadError struct {
	Stage string // "image" or "metadata"
	Err   error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("%s upload failed: %v", e.Stage, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// TransactionError is returned when constructing, submitting or confirming
// the creation transaction fails.
type TransactionError struct {
	Stage string // "build", "sign", "submit" or "confirm"
	Err   error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction %s failed: %v", e.Stage, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}
