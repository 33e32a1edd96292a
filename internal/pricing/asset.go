package pricing

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// NativeSentinel is the address the exchange uses for unwrapped ETH.
const NativeSentinel = "0x0000000000000000000000000000000000000000"

//go:embed assets.yaml
var defaultAssetsYAML []byte

// Asset is a priced asset and every token address that represents it.
// Decimals < 0 means unknown.
type Asset struct {
	Symbol        string
	CoinGeckoID   string
	UniswapSymbol string
	Decimals      int
	Addresses     []string
}

// Has reports whether token is one of the asset's addresses.
func (a Asset) Has(token string) bool {
	token = strings.ToLower(token)
	for _, addr := range a.Addresses {
		if addr == token {
			return true
		}
	}
	return false
}

// Registry maps asset symbols to assets.
type Registry map[string]Asset

type assetFile struct {
	Assets map[string]struct {
		CoinGeckoID   string   `yaml:"coingecko_id"`
		UniswapSymbol string   `yaml:"uniswap_symbol"`
		Decimals      *int     `yaml:"decimals"`
		Addresses     []string `yaml:"addresses"`
	} `yaml:"assets"`
}

// DefaultRegistry returns the built-in asset table.
func DefaultRegistry() (Registry, error) {
	return ParseRegistry(defaultAssetsYAML)
}

// LoadRegistry reads an asset table from path, or the built-in one when path
// is empty.
func LoadRegistry(path string) (Registry, error) {
	if path == "" {
		return DefaultRegistry()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read assets: %w", err)
	}
	return ParseRegistry(data)
}

// ParseRegistry decodes a YAML asset table.
func ParseRegistry(data []byte) (Registry, error) {
	var file assetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse assets: %w", err)
	}
	if len(file.Assets) == 0 {
		return nil, fmt.Errorf("asset table is empty")
	}

	reg := make(Registry, len(file.Assets))
	for symbol, entry := range file.Assets {
		asset := Asset{
			Symbol:        symbol,
			CoinGeckoID:   entry.CoinGeckoID,
			UniswapSymbol: entry.UniswapSymbol,
			Decimals:      -1,
		}
		if entry.Decimals != nil {
			if *entry.Decimals < 0 || *entry.Decimals > 77 {
				return nil, fmt.Errorf("asset %s: decimals out of range: %d", symbol, *entry.Decimals)
			}
			asset.Decimals = *entry.Decimals
		}
		if len(entry.Addresses) == 0 {
			return nil, fmt.Errorf("asset %s: no addresses", symbol)
		}
		for _, addr := range entry.Addresses {
			addr = strings.TrimSpace(addr)
			if !common.IsHexAddress(addr) {
				return nil, fmt.Errorf("asset %s: invalid address: %s", symbol, addr)
			}
			asset.Addresses = append(asset.Addresses, strings.ToLower(common.HexToAddress(addr).Hex()))
		}
		reg[symbol] = asset
	}
	return reg, nil
}

// Get returns the asset for symbol.
func (r Registry) Get(symbol string) (Asset, error) {
	asset, ok := r[symbol]
	if !ok {
		return Asset{}, fmt.Errorf("unknown asset %q", symbol)
	}
	return asset, nil
}

// Symbols returns the registered symbols, sorted.
func (r Registry) Symbols() []string {
	out := make([]string, 0, len(r))
	for symbol := range r {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}

// DecimalsLookup resolves a token's decimals, usually from chain.
type DecimalsLookup interface {
	Decimals(ctx context.Context, address string) (uint8, error)
}

// ResolveDecimals fills in unknown decimals from the asset's first address.
func (r Registry) ResolveDecimals(ctx context.Context, lookup DecimalsLookup) error {
	for _, symbol := range r.Symbols() {
		asset := r[symbol]
		if asset.Decimals >= 0 {
			continue
		}
		if lookup == nil {
			return fmt.Errorf("asset %s: decimals unknown and no rpc configured", symbol)
		}
		decimals, err := lookup.Decimals(ctx, asset.Addresses[0])
		if err != nil {
			return fmt.Errorf("asset %s decimals: %w", symbol, err)
		}
		asset.Decimals = int(decimals)
		r[symbol] = asset
	}
	return nil
}

// NeedsLookup reports whether any asset lacks decimals.
func (r Registry) NeedsLookup() bool {
	for _, asset := range r {
		if asset.Decimals < 0 {
			return true
		}
	}
	return false
}
