package evm

import "fmt"

// UnsupportedChainError is returned when a chain id has no numeric EVM
// chain id mapping.
type UnsupportedChainError struct {
	ChainID string
}

func (e *UnsupportedChainError) Error() string {
	return fmt.Sprintf("unsupported EVM chain: %s", e.ChainID)
}

// RPCError represents an RPC-related error.
type RPCError struct {
	Endpoint string
	Err      error
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error on %s: %v", e.Endpoint, e.Err)
}

func (e *RPCError) Unwrap() error {
	return e.Err
}
