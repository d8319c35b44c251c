package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinw82/memeforge-09062025/pkg/chains"
	"github.com/martinw82/memeforge-09062025/pkg/types"
)

func TestBuildRegistryDefaultCatalog(t *testing.T) {
	registry := BuildRegistry(nil, nil, nil)

	supported := registry.SupportedChains()
	assert.Equal(t, len(chains.DefaultConfigs()), len(supported))

	for _, cfg := range chains.DefaultConfigs() {
		backend, err := registry.Get(cfg.ID)
		require.NoError(t, err, "chain %s", cfg.ID)
		assert.Equal(t, cfg.ID, backend.ChainID())
	}
}

func TestBuildRegistrySkipsUnknownFamily(t *testing.T) {
	cfg := &chains.ChainConfig{
		ID:     "mystery_chain",
		Family: types.ChainFamily("quantum"),
	}

	registry := BuildRegistry(nil, nil, nil, cfg)
	assert.Empty(t, registry.SupportedChains())
}

func TestBuildRegistrySkipsBrokenConfig(t *testing.T) {
	good := &chains.ChainConfig{
		ID:             "base_sepolia",
		Name:           "Base Sepolia",
		Family:         types.FamilyEVM,
		NativeCurrency: types.NativeCurrency{Name: "Ether", Symbol: "ETH", Decimals: 18},
		Wallets:        []types.WalletType{types.WalletInjected},
	}
	// account-model chain without endpoints cannot build a node client
	broken := &chains.ChainConfig{
		ID:     "algorand_testnet",
		Family: types.FamilyAccountModel,
	}

	registry := BuildRegistry(nil, nil, nil, good, broken)
	assert.Equal(t, []string{"base_sepolia"}, registry.SupportedChains())
}
