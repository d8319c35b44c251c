package evm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinw82/memeforge-09062025/pkg/chains"
	"github.com/martinw82/memeforge-09062025/pkg/constants"
	"github.com/martinw82/memeforge-09062025/pkg/types"
	"github.com/martinw82/memeforge-09062025/pkg/wallets"
)

const testAccount = "0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1"

// fakeProvider scripts responses per RPC method and records every call.
type fakeProvider struct {
	responses map[string]any
	errors    map[string]error
	calls     []string
	params    map[string]any
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		responses: make(map[string]any),
		errors:    make(map[string]error),
		params:    make(map[string]any),
	}
}

func (f *fakeProvider) Request(ctx context.Context, method string, params any) (json.RawMessage, error) {
	f.calls = append(f.calls, method)
	f.params[method] = params
	if err, ok := f.errors[method]; ok {
		return nil, err
	}
	resp, ok := f.responses[method]
	if !ok {
		return nil, fmt.Errorf("unexpected method %s", method)
	}
	raw, _ := json.Marshal(resp)
	return raw, nil
}

func (f *fakeProvider) callCount(method string) int {
	n := 0
	for _, c := range f.calls {
		if c == method {
			n++
		}
	}
	return n
}

type fakeUploader struct {
	imageURI    string
	imageErr    error
	metadataURI string
	metadataErr error
}

func (f *fakeUploader) UploadImage(ctx context.Context, imagePayload []byte) (string, error) {
	return f.imageURI, f.imageErr
}

func (f *fakeUploader) UploadMetadata(ctx context.Context, metadata types.NFTMetadata) (string, error) {
	return f.metadataURI, f.metadataErr
}

func sepoliaConfig() *chains.ChainConfig {
	return &chains.ChainConfig{
		ID:             constants.ChainEthereumSepolia,
		Name:           "Ethereum Sepolia",
		Family:         types.FamilyEVM,
		NativeCurrency: types.NativeCurrency{Name: "Sepolia Ether", Symbol: "ETH", Decimals: 18},
		RPCEndpoints:   []string{"http://localhost:8545"},
		Testnet:        true,
		Wallets:        []types.WalletType{types.WalletInjected},
	}
}

func TestNewRejectsUnknownChain(t *testing.T) {
	cfg := sepoliaConfig()
	cfg.ID = "mystery_chain"

	_, err := New(cfg, newFakeProvider(), &fakeUploader{}, nil)

	var unsupported *UnsupportedChainError
	require.ErrorAs(t, err, &unsupported)
}

func TestConnectWalletOnExpectedNetwork(t *testing.T) {
	provider := newFakeProvider()
	provider.responses["eth_requestAccounts"] = []string{testAccount}
	provider.responses["eth_chainId"] = "0xaa36a7" // 11155111
	provider.responses["eth_getBalance"] = "0xde0b6b3a7640000" // 1 ETH

	b, err := New(sepoliaConfig(), provider, &fakeUploader{}, nil)
	require.NoError(t, err)

	conn, err := b.ConnectWallet(context.Background(), types.WalletInjected)
	require.NoError(t, err)

	assert.Equal(t, testAccount, conn.Address)
	assert.Equal(t, "1", conn.Balance)
	assert.Equal(t, constants.ChainEthereumSepolia, conn.ChainID)
	assert.Zero(t, provider.callCount("wallet_switchEthereumChain"), "no switch needed on the right network")
}

func TestConnectWalletSwitchesMismatchedNetwork(t *testing.T) {
	provider := newFakeProvider()
	provider.responses["eth_requestAccounts"] = []string{testAccount}
	provider.responses["eth_chainId"] = "0x1" // mainnet, config expects 11155111
	provider.responses["wallet_switchEthereumChain"] = nil
	provider.responses["eth_getBalance"] = "0x0"

	b, err := New(sepoliaConfig(), provider, &fakeUploader{}, nil)
	require.NoError(t, err)

	_, err = b.ConnectWallet(context.Background(), types.WalletInjected)
	require.NoError(t, err)

	require.Equal(t, 1, provider.callCount("wallet_switchEthereumChain"))
	params := provider.params["wallet_switchEthereumChain"].([]map[string]string)
	assert.Equal(t, "0xaa36a7", params[0]["chainId"], "switch must target the configured chain id")
}

func TestConnectWalletAddsUnknownChainThenSwitches(t *testing.T) {
	provider := newFakeProvider()
	provider.responses["eth_requestAccounts"] = []string{testAccount}
	provider.responses["eth_chainId"] = "0x1"
	provider.responses["wallet_addEthereumChain"] = nil
	provider.responses["eth_getBalance"] = "0x0"

	// first switch fails with the unknown-chain code, the retry succeeds
	provider.errors["wallet_switchEthereumChain"] = &wallets.ProviderRPCError{
		Code:    wallets.ProviderCodeUnknownChain,
		Message: "Unrecognized chain ID",
	}

	b, err := New(sepoliaConfig(), provider, &fakeUploader{}, nil)
	require.NoError(t, err)

	_, err = b.ConnectWallet(context.Background(), types.WalletInjected)

	// with a static script the retry also fails; the add must still have
	// been attempted between the two switches
	var mismatch *chains.NetworkMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, int64(11155111), mismatch.Want)
	assert.Equal(t, int64(1), mismatch.Got)
	assert.Equal(t, 1, provider.callCount("wallet_addEthereumChain"))
	assert.Equal(t, 2, provider.callCount("wallet_switchEthereumChain"))

	addParams := provider.params["wallet_addEthereumChain"].([]map[string]any)
	assert.Equal(t, "0xaa36a7", addParams[0]["chainId"])
	assert.Equal(t, "Ethereum Sepolia", addParams[0]["chainName"])
	assert.NotEmpty(t, addParams[0]["rpcUrls"])
}

func TestConnectWalletUserRejected(t *testing.T) {
	provider := newFakeProvider()
	provider.errors["eth_requestAccounts"] = &wallets.ProviderRPCError{
		Code:    wallets.ProviderCodeUserRejected,
		Message: "User rejected the request",
	}

	b, err := New(sepoliaConfig(), provider, &fakeUploader{}, nil)
	require.NoError(t, err)

	_, err = b.ConnectWallet(context.Background(), types.WalletInjected)
	assert.ErrorIs(t, err, chains.ErrUserRejected)
}

func TestConnectWalletNoAccounts(t *testing.T) {
	provider := newFakeProvider()
	provider.responses["eth_requestAccounts"] = []string{}

	b, err := New(sepoliaConfig(), provider, &fakeUploader{}, nil)
	require.NoError(t, err)

	_, err = b.ConnectWallet(context.Background(), types.WalletInjected)
	assert.ErrorIs(t, err, chains.ErrNoAccountsReturned)
}

func TestConnectWalletBalanceFailureUsesSentinel(t *testing.T) {
	provider := newFakeProvider()
	provider.responses["eth_requestAccounts"] = []string{testAccount}
	provider.responses["eth_chainId"] = "0xaa36a7"
	provider.errors["eth_getBalance"] = errors.New("rpc unreachable")

	b, err := New(sepoliaConfig(), provider, &fakeUploader{}, nil)
	require.NoError(t, err)

	conn, err := b.ConnectWallet(context.Background(), types.WalletInjected)
	require.NoError(t, err, "connect success must not depend on balance query success")
	assert.Equal(t, constants.BalanceUnavailable, conn.Balance)
}

func TestMintNFTWithoutConnection(t *testing.T) {
	provider := newFakeProvider()
	b, err := New(sepoliaConfig(), provider, &fakeUploader{}, nil)
	require.NoError(t, err)

	result := b.MintNFT(context.Background(), types.NFTMetadata{Name: "Meme"}, []byte("image"))

	assert.False(t, result.Success)
	assert.Empty(t, provider.calls, "no provider call without a connection")
}

func TestMintNFTRequiresContract(t *testing.T) {
	provider := newFakeProvider()
	provider.responses["eth_requestAccounts"] = []string{testAccount}
	provider.responses["eth_chainId"] = "0xaa36a7"
	provider.responses["eth_getBalance"] = "0x0"

	b, err := New(sepoliaConfig(), provider, &fakeUploader{}, nil)
	require.NoError(t, err)
	_, err = b.ConnectWallet(context.Background(), types.WalletInjected)
	require.NoError(t, err)

	result := b.MintNFT(context.Background(), types.NFTMetadata{Name: "Meme"}, []byte("image"))

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "no minting contract")
}

func TestMintNFTImageUploadFailure(t *testing.T) {
	provider := newFakeProvider()
	provider.responses["eth_requestAccounts"] = []string{testAccount}
	provider.responses["eth_chainId"] = "0xaa36a7"
	provider.responses["eth_getBalance"] = "0x0"

	cfg := sepoliaConfig()
	cfg.ContractAddress = "0x5FbDB2315678afecb367f032d93F642f64180aa3"

	b, err := New(cfg, provider, &fakeUploader{imageErr: errors.New("pin service down")}, nil)
	require.NoError(t, err)
	_, err = b.ConnectWallet(context.Background(), types.WalletInjected)
	require.NoError(t, err)

	result := b.MintNFT(context.Background(), types.NFTMetadata{Name: "Meme"}, []byte("image"))

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "image upload failed")
	assert.Zero(t, provider.callCount("eth_sendTransaction"), "no transaction submitted after a failed upload")

	// connection state untouched by the failed mint
	bal, err := b.GetBalance(context.Background(), testAccount)
	require.NoError(t, err)
	assert.Equal(t, "0", bal)
}

const testContract = "0x5FbDB2315678afecb367f032d93F642f64180aa3"

// newReceiptNode runs a JSON-RPC node serving eth_getTransactionReceipt. The
// first misses polls answer null, as a live node does before inclusion.
func newReceiptNode(t *testing.T, receipts map[common.Hash]*ethtypes.Receipt, misses int) *httptest.Server {
	polls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var call struct {
			JSONRPC string          `json:"jsonrpc"`
			ID      json.RawMessage `json:"id"`
			Method  string          `json:"method"`
			Params  json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
			t.Errorf("malformed rpc call: %v", err)
			return
		}
		if call.Method != "eth_getTransactionReceipt" {
			t.Errorf("unexpected rpc method %s", call.Method)
			return
		}
		var params []common.Hash
		require.NoError(t, json.Unmarshal(call.Params, &params))

		var result any
		polls++
		if polls > misses {
			if receipt, ok := receipts[params[0]]; ok {
				result = receipt
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      call.ID,
			"result":  result,
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func mintReceipt(txHash common.Hash, status uint64, tokenID *big.Int) *ethtypes.Receipt {
	return &ethtypes.Receipt{
		Status:            status,
		CumulativeGasUsed: 21000,
		GasUsed:           21000,
		TxHash:            txHash,
		Logs: []*ethtypes.Log{{
			Address: common.HexToAddress(testContract),
			Topics: []common.Hash{
				transferTopic,
				common.Hash{}, // mints transfer from the zero address
				common.BytesToHash(common.HexToAddress(testAccount).Bytes()),
				common.BigToHash(tokenID),
			},
			Data: []byte{},
		}},
	}
}

func mintTestBackend(t *testing.T, provider *fakeProvider, nodeURL string, uploader *fakeUploader) *Backend {
	cfg := sepoliaConfig()
	cfg.ContractAddress = testContract
	cfg.RPCEndpoints = []string{nodeURL}

	b, err := New(cfg, provider, uploader, nil)
	require.NoError(t, err)
	_, err = b.ConnectWallet(context.Background(), types.WalletInjected)
	require.NoError(t, err)
	return b
}

func TestMintNFTSuccess(t *testing.T) {
	txHash := common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111111")
	node := newReceiptNode(t, map[common.Hash]*ethtypes.Receipt{
		txHash: mintReceipt(txHash, ethtypes.ReceiptStatusSuccessful, big.NewInt(42)),
	}, 0)

	provider := newFakeProvider()
	provider.responses["eth_requestAccounts"] = []string{testAccount}
	provider.responses["eth_chainId"] = "0xaa36a7"
	provider.responses["eth_getBalance"] = "0x0"
	provider.responses["eth_sendTransaction"] = txHash.Hex()

	uploader := &fakeUploader{imageURI: "ipfs://img", metadataURI: "ipfs://meta"}
	b := mintTestBackend(t, provider, node.URL, uploader)

	result := b.MintNFT(context.Background(), types.NFTMetadata{Name: "Meme"}, []byte("image"))

	require.True(t, result.Success, "mint failed: %s", result.Error)
	assert.Equal(t, txHash.Hex(), result.TransactionHash)
	assert.Equal(t, "42", result.TokenID, "token id comes from topic 3 of the Transfer log")

	// the submitted transaction targets the contract with the metadata URI
	// packed into the mint calldata
	sent := provider.params["eth_sendTransaction"].([]map[string]string)
	assert.Equal(t, testAccount, sent[0]["from"])
	assert.Equal(t, testContract, sent[0]["to"])
	expected, err := b.mintABI.Pack("mintTo", common.HexToAddress(testAccount), "ipfs://meta")
	require.NoError(t, err)
	assert.Equal(t, hexutil.Encode(expected), sent[0]["data"])
}

func TestMintNFTPollsUntilReceiptAppears(t *testing.T) {
	txHash := common.HexToHash("0x2222222222222222222222222222222222222222222222222222222222222222")
	node := newReceiptNode(t, map[common.Hash]*ethtypes.Receipt{
		txHash: mintReceipt(txHash, ethtypes.ReceiptStatusSuccessful, big.NewInt(7)),
	}, 2)

	provider := newFakeProvider()
	provider.responses["eth_requestAccounts"] = []string{testAccount}
	provider.responses["eth_chainId"] = "0xaa36a7"
	provider.responses["eth_getBalance"] = "0x0"
	provider.responses["eth_sendTransaction"] = txHash.Hex()

	uploader := &fakeUploader{imageURI: "ipfs://img", metadataURI: "ipfs://meta"}
	b := mintTestBackend(t, provider, node.URL, uploader)

	result := b.MintNFT(context.Background(), types.NFTMetadata{Name: "Meme"}, []byte("image"))

	require.True(t, result.Success, "mint failed: %s", result.Error)
	assert.Equal(t, "7", result.TokenID)
}

func TestMintNFTRevertedTransaction(t *testing.T) {
	txHash := common.HexToHash("0x3333333333333333333333333333333333333333333333333333333333333333")
	node := newReceiptNode(t, map[common.Hash]*ethtypes.Receipt{
		txHash: mintReceipt(txHash, ethtypes.ReceiptStatusFailed, big.NewInt(0)),
	}, 0)

	provider := newFakeProvider()
	provider.responses["eth_requestAccounts"] = []string{testAccount}
	provider.responses["eth_chainId"] = "0xaa36a7"
	provider.responses["eth_getBalance"] = "0x0"
	provider.responses["eth_sendTransaction"] = txHash.Hex()

	uploader := &fakeUploader{imageURI: "ipfs://img", metadataURI: "ipfs://meta"}
	b := mintTestBackend(t, provider, node.URL, uploader)

	result := b.MintNFT(context.Background(), types.NFTMetadata{Name: "Meme"}, []byte("image"))

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "reverted")
}

func TestGetBalanceFormatsWei(t *testing.T) {
	provider := newFakeProvider()
	provider.responses["eth_getBalance"] = "0x6f05b59d3b20000" // 0.5 ETH

	b, err := New(sepoliaConfig(), provider, &fakeUploader{}, nil)
	require.NoError(t, err)

	balance, err := b.GetBalance(context.Background(), testAccount)
	require.NoError(t, err)
	assert.Equal(t, "0.5", balance)
}

func TestSupportedWallets(t *testing.T) {
	b, err := New(sepoliaConfig(), newFakeProvider(), &fakeUploader{}, nil)
	require.NoError(t, err)

	assert.Equal(t, []types.WalletType{types.WalletInjected}, b.SupportedWallets())
	assert.True(t, b.IsWalletAvailable(types.WalletInjected))
	assert.False(t, b.IsWalletAvailable(types.WalletPera))
}
