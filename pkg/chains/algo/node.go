package algo

import (
	"context"

	"github.com/algorand/go-algorand-sdk/v2/client/v2/algod"
	"github.com/algorand/go-algorand-sdk/v2/client/v2/common/models"
	sdktypes "github.com/algorand/go-algorand-sdk/v2/types"
)

// nodeClient is the slice of the algod API the backend needs, kept small so
// tests can fake a node.
type nodeClient interface {
	SuggestedParams(ctx context.Context) (sdktypes.SuggestedParams, error)
	AccountInformation(ctx context.Context, address string) (models.Account, error)
	SendRawTransaction(ctx context.Context, signedTxn []byte) (string, error)
	PendingTransactionInformation(ctx context.Context, txid string) (models.PendingTransactionInfoResponse, error)
	Status(ctx context.Context) (models.NodeStatus, error)
	StatusAfterBlock(ctx context.Context, round uint64) (models.NodeStatus, error)
}

// algodNode adapts *algod.Client to nodeClient.
type algodNode struct {
	client *algod.Client
}

func newAlgodNode(endpoint string) (*algodNode, error) {
	client, err := algod.MakeClient(endpoint, "")
	if err != nil {
		return nil, err
	}
	return &algodNode{client: client}, nil
}

var _ nodeClient = (*algodNode)(nil)

func (n *algodNode) SuggestedParams(ctx context.Context) (sdktypes.SuggestedParams, error) {
	return n.client.SuggestedParams().Do(ctx)
}

func (n *algodNode) AccountInformation(ctx context.Context, address string) (models.Account, error) {
	return n.client.AccountInformation(address).Do(ctx)
}

func (n *algodNode) SendRawTransaction(ctx context.Context, signedTxn []byte) (string, error) {
	return n.client.SendRawTransaction(signedTxn).Do(ctx)
}

func (n *algodNode) PendingTransactionInformation(ctx context.Context, txid string) (models.PendingTransactionInfoResponse, error) {
	info, _, err := n.client.PendingTransactionInformation(txid).Do(ctx)
	return info, err
}

func (n *algodNode) Status(ctx context.Context) (models.NodeStatus, error) {
	return n.client.Status().Do(ctx)
}

func (n *algodNode) StatusAfterBlock(ctx context.Context, round uint64) (models.NodeStatus, error) {
	return n.client.StatusAfterBlock(round).Do(ctx)
}
