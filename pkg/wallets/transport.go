package wallets

import (
	"context"

	"github.com/martinw82/memeforge-09062025/pkg/types"
)

// Transport translates a chain backend's connect/sign requests into one
// specific wallet's protocol. Account-model backends hold one Transport per
// supported wallet type and route signing to whichever is connected.
type Transport interface {
	// Type returns the wallet type this transport drives.
	Type() types.WalletType

	// Available reports whether the underlying wallet mechanism is present
	// and initialized.
	Available() bool

	// Connect waits for the user to approve the session and returns the
	// selected account address. There is no built-in timeout: approval is
	// user-paced. Callers embed their own deadline via ctx when needed.
	Connect(ctx context.Context) (string, error)

	// Disconnect tears down the session. Idempotent.
	Disconnect(ctx context.Context) error

	// SignTransaction signs one encoded unsigned transaction and returns
	// the raw signed bytes ready for submission.
	SignTransaction(ctx context.Context, txn []byte) ([]byte, error)
}
