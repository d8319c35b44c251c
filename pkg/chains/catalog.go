package chains

import (
	"github.com/martinw82/memeforge-09062025/pkg/constants"
	"github.com/martinw82/memeforge-09062025/pkg/types"
)

// DefaultConfigs returns the compiled catalog of supported chains. The
// catalog is consumed once at startup; callers may append their own
// ChainConfig values before building backends.
func DefaultConfigs() []*ChainConfig {
	return []*ChainConfig{
		{
			ID:             constants.ChainAlgorandMainnet,
			Name:           "Algorand",
			Family:         types.FamilyAccountModel,
			NativeCurrency: types.NativeCurrency{Name: "Algo", Symbol: "ALGO", Decimals: 6},
			RPCEndpoints:   constants.OfficialRPCEndpoints[constants.ChainAlgorandMainnet],
			ExplorerURLs:   constants.ExplorerURLs[constants.ChainAlgorandMainnet],
			Wallets:        []types.WalletType{types.WalletPera, types.WalletBridge},
		},
		{
			ID:             constants.ChainAlgorandTestnet,
			Name:           "Algorand Testnet",
			Family:         types.FamilyAccountModel,
			NativeCurrency: types.NativeCurrency{Name: "Algo", Symbol: "ALGO", Decimals: 6},
			RPCEndpoints:   constants.OfficialRPCEndpoints[constants.ChainAlgorandTestnet],
			ExplorerURLs:   constants.ExplorerURLs[constants.ChainAlgorandTestnet],
			Testnet:        true,
			Wallets:        []types.WalletType{types.WalletPera, types.WalletBridge},
		},
		{
			ID:             constants.ChainEthereumSepolia,
			Name:           "Ethereum Sepolia",
			Family:         types.FamilyEVM,
			NativeCurrency: types.NativeCurrency{Name: "Sepolia Ether", Symbol: "ETH", Decimals: 18},
			RPCEndpoints:   constants.OfficialRPCEndpoints[constants.ChainEthereumSepolia],
			ExplorerURLs:   constants.ExplorerURLs[constants.ChainEthereumSepolia],
			Testnet:        true,
			Wallets:        []types.WalletType{types.WalletInjected},
		},
		{
			ID:             constants.ChainBase,
			Name:           "Base",
			Family:         types.FamilyEVM,
			NativeCurrency: types.NativeCurrency{Name: "Ether", Symbol: "ETH", Decimals: 18},
			RPCEndpoints:   constants.OfficialRPCEndpoints[constants.ChainBase],
			ExplorerURLs:   constants.ExplorerURLs[constants.ChainBase],
			Wallets:        []types.WalletType{types.WalletInjected},
		},
		{
			ID:             constants.ChainBaseSepolia,
			Name:           "Base Sepolia",
			Family:         types.FamilyEVM,
			NativeCurrency: types.NativeCurrency{Name: "Sepolia Ether", Symbol: "ETH", Decimals: 18},
			RPCEndpoints:   constants.OfficialRPCEndpoints[constants.ChainBaseSepolia],
			ExplorerURLs:   constants.ExplorerURLs[constants.ChainBaseSepolia],
			Testnet:        true,
			Wallets:        []types.WalletType{types.WalletInjected},
		},
		{
			ID:             constants.ChainPolygonAmoy,
			Name:           "Polygon Amoy",
			Family:         types.FamilyEVM,
			NativeCurrency: types.NativeCurrency{Name: "POL", Symbol: "POL", Decimals: 18},
			RPCEndpoints:   constants.OfficialRPCEndpoints[constants.ChainPolygonAmoy],
			ExplorerURLs:   constants.ExplorerURLs[constants.ChainPolygonAmoy],
			Testnet:        true,
			Wallets:        []types.WalletType{types.WalletInjected},
		},
	}
}
