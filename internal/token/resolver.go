// Package token reads ERC-20 metadata from chain.
package token

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/oneleo/TokenlonContractAnalysis/internal/model"
)

// NativeDecimals is the precision of native ETH, reported by the exchange
// under the zero address.
const NativeDecimals = 18

// Caller performs read-only contract calls; *chain.Client satisfies it.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Resolver caches token metadata by address.
type Resolver struct {
	caller Caller
	logger *zap.Logger

	mu   sync.RWMutex
	data map[common.Address]model.TokenMeta
}

func NewResolver(caller Caller, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		caller: caller,
		logger: logger,
		data:   make(map[common.Address]model.TokenMeta),
	}
}

// Decimals returns the token's decimals. The zero address is native ETH and
// never touches the chain.
func (r *Resolver) Decimals(ctx context.Context, address string) (uint8, error) {
	if !common.IsHexAddress(address) {
		return 0, fmt.Errorf("invalid token address: %s", address)
	}
	addr := common.HexToAddress(address)
	if addr == (common.Address{}) {
		return NativeDecimals, nil
	}
	meta, err := r.Meta(ctx, addr)
	if err != nil {
		return 0, err
	}
	return meta.Decimals, nil
}

// Meta returns cached metadata or loads it from chain.
func (r *Resolver) Meta(ctx context.Context, addr common.Address) (model.TokenMeta, error) {
	r.mu.RLock()
	meta, ok := r.data[addr]
	r.mu.RUnlock()
	if ok {
		return meta, nil
	}

	meta, err := FetchMeta(ctx, r.caller, addr, r.logger)
	if err != nil {
		return meta, err
	}
	r.mu.Lock()
	r.data[addr] = meta
	r.mu.Unlock()
	return meta, nil
}

// FetchMeta loads token metadata via ERC20 calls. Only decimals is
// required; symbol and name are best effort.
func FetchMeta(ctx context.Context, caller Caller, token common.Address, logger *zap.Logger) (model.TokenMeta, error) {
	meta := model.TokenMeta{Address: token.Hex()}
	if caller == nil {
		return meta, fmt.Errorf("chain client is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	strABI, err := erc20StringABI()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 string abi: %w", err)
	}
	b32ABI, err := erc20Bytes32ABI()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	call := func(method string, parsed abi.ABI) ([]interface{}, error) {
		data, err := parsed.Pack(method)
		if err != nil {
			return nil, fmt.Errorf("pack %s: %w", method, err)
		}
		msg := ethereum.CallMsg{To: &token, Data: data}
		resp, err := caller.CallContract(ctx, msg, nil)
		if err != nil {
			return nil, fmt.Errorf("call %s: %w", method, err)
		}
		values, err := parsed.Unpack(method, resp)
		if err != nil {
			return nil, fmt.Errorf("unpack %s: %w", method, err)
		}
		return values, nil
	}

	values, err := call("decimals", strABI)
	if err != nil {
		return meta, err
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return meta, fmt.Errorf("unsupported decimals type %T", values[0])
	}
	meta.Decimals = decimals

	if values, err := call("symbol", strABI); err == nil {
		meta.Symbol, _ = values[0].(string)
	} else if values, err := call("symbol", b32ABI); err == nil {
		meta.Symbol, _ = bytes32ToString(values[0])
	} else {
		logger.Debug("symbol call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	if values, err := call("name", strABI); err == nil {
		meta.Name, _ = values[0].(string)
	} else if values, err := call("name", b32ABI); err == nil {
		meta.Name, _ = bytes32ToString(values[0])
	} else {
		logger.Debug("name call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	return meta, nil
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}
