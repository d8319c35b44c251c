package constants

import "time"

const (
	DelayBetweenRPCCalls  = 200              // delay in milliseconds between RPC calls
	BalanceQueryTimeout   = 5 * time.Second  // timeout for balance queries
	UploadTimeout         = 30 * time.Second // timeout for image/metadata uploads
	SigningRequestTimeout = 5 * time.Minute  // timeout for a single bridge signing round trip
	ReceiptPollTimeout    = 2 * time.Second  // timeout for one receipt poll
	TLSHandshakeTimeout   = 10 * time.Second // timeout for TLS handshake
	ResponseHeaderTimeout = 20 * time.Second // timeout for response header
	MaxConfirmationRounds = 10               // bounded confirmation polling, both families
	MaxResponseBodySize   = 10 * 1024 * 1024 // maximum response body size in bytes (10MB)
	ConnectionsStorageKey = "memeforge.connections"
	ActiveChainStorageKey = "memeforge.active_chain"
)

// NFT asset parameters on the account-model chain. Total supply 1 with zero
// decimals is what makes the created asset non-fungible.
const (
	AssetTotalSupply = 1
	AssetDecimals    = 0
	AssetUnitName    = "MEME"
)

// Chain IDs (registry keys)
const (
	ChainAlgorandMainnet = "algorand_mainnet"
	ChainAlgorandTestnet = "algorand_testnet"
	ChainEthereumSepolia = "ethereum_sepolia"
	ChainBase            = "base"
	ChainBaseSepolia     = "base_sepolia"
	ChainPolygonAmoy     = "polygon_amoy"
)

// mapping from chain ID to numeric EVM chain ID; account-model chains have
// no entry here
var ChainToEVMChainID = map[string]int64{
	ChainEthereumSepolia: 11155111,
	ChainBase:            8453,
	ChainBaseSepolia:     84532,
	ChainPolygonAmoy:     80002,
}

var OfficialRPCEndpoints = map[string][]string{
	ChainAlgorandMainnet: {"https://mainnet-api.algonode.cloud"},
	ChainAlgorandTestnet: {"https://testnet-api.algonode.cloud"},
	ChainEthereumSepolia: {"https://rpc.sepolia.org", "https://ethereum-sepolia-rpc.publicnode.com"},
	ChainBase:            {"https://mainnet.base.org"},
	ChainBaseSepolia:     {"https://sepolia.base.org"},
	ChainPolygonAmoy:     {"https://rpc-amoy.polygon.technology"},
}

var ExplorerURLs = map[string][]string{
	ChainAlgorandMainnet: {"https://explorer.perawallet.app"},
	ChainAlgorandTestnet: {"https://testnet.explorer.perawallet.app"},
	ChainEthereumSepolia: {"https://sepolia.etherscan.io"},
	ChainBase:            {"https://basescan.org"},
	ChainBaseSepolia:     {"https://sepolia.basescan.org"},
	ChainPolygonAmoy:     {"https://amoy.polygonscan.com"},
}

// DefaultBridgeRelayURL is the fixed relay endpoint for bridge-protocol
// sessions.
const DefaultBridgeRelayURL = "wss://bridge.walletconnect.org"

// DefaultIPFSAPIURL is the IPFS node API used for uploads.
const DefaultIPFSAPIURL = "http://127.0.0.1:5001"

// BalanceUnavailable is the sentinel balance recorded when the post-connect
// balance query fails. Connection success must not depend on it.
const BalanceUnavailable = "0"
