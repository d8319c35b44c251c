package orchestrator

import (
	"log/slog"

	"github.com/martinw82/memeforge-09062025/pkg/chains"
	"github.com/martinw82/memeforge-09062025/pkg/chains/algo"
	"github.com/martinw82/memeforge-09062025/pkg/chains/evm"
	"github.com/martinw82/memeforge-09062025/pkg/types"
	"github.com/martinw82/memeforge-09062025/pkg/wallets"
)

// BuildRegistry eagerly constructs one chain backend per config, so
// availability checks work before any connect attempt. A backend that fails
// to construct is logged and its chain left unregistered; the rest of the
// catalog still comes up.
func BuildRegistry(logger *slog.Logger, uploader chains.Uploader, provider wallets.Provider, configs ...*chains.ChainConfig) *chains.Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if len(configs) == 0 {
		configs = chains.DefaultConfigs()
	}

	registry := chains.NewRegistry()
	for _, cfg := range configs {
		var (
			backend chains.Backend
			err     error
		)
		switch cfg.Family {
		case types.FamilyAccountModel:
			backend, err = algo.New(cfg, uploader, logger)
		case types.FamilyEVM:
			backend, err = evm.New(cfg, provider, uploader, logger)
		default:
			logger.Warn("unknown chain family", "chain", cfg.ID, "family", cfg.Family)
			continue
		}
		if err != nil {
			logger.Warn("failed to create chain backend", "chain", cfg.ID, "error", err)
			continue
		}

		if err := registry.Register(backend); err != nil {
			logger.Warn("failed to register chain backend", "chain", cfg.ID, "error", err)
		}
	}

	return registry
}
