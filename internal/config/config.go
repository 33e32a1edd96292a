package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "PRICESCOPE"

// Common holds settings shared by every command.
type Common struct {
	DataDir      string
	LogLevel     string
	MetricsFile  string
	MaxRetries   int
	RetryBackoff time.Duration
	HTTPTimeout  time.Duration
}

// SyncConfig holds configuration for the sync command.
type SyncConfig struct {
	Common
	GraphURL          string
	UniswapURL        string
	CandleSymbols     []string
	CoinGeckoURL      string
	CoinGeckoAPIKey   string
	CoinIDs           []string
	LookbackDays      int
	StaleAfter        time.Duration
	BackfillCeiling   int
	PageSize          int
	CheckpointEnabled bool
}

// MatchConfig holds configuration for the match command.
type MatchConfig struct {
	Common
	Base       string
	Quote      string
	Sides      []string
	Reference  string
	MinQuote   float64
	From       int64
	To         int64
	StdN       float64
	AssetsFile string
	RPCURL     string
	OutDir     string
	Out        string
}

// TxIndexConfig holds configuration for the txindex command.
type TxIndexConfig struct {
	Common
	RPCURL   string
	Days     int
	BinWidth uint64
	OutDir   string
}

// LoadSync merges config file, environment variables, and flags into SyncConfig.
func LoadSync(cfgFile string, flags *pflag.FlagSet) (SyncConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("uniswap-url", "https://api.thegraph.com/subgraphs/name/uniswap/uniswap-v3")
		v.SetDefault("candle-symbol", []string{"WETH", "WBTC"})
		v.SetDefault("coingecko-url", "https://api.coingecko.com/api/v3")
		v.SetDefault("coin", []string{"ethereum", "bitcoin"})
		v.SetDefault("lookback-days", 90)
		v.SetDefault("stale-after", time.Hour)
		v.SetDefault("backfill-ceiling", 5000)
		v.SetDefault("page-size", 1000)
		v.SetDefault("checkpoint-enabled", true)
	})
	if err != nil {
		return SyncConfig{}, err
	}

	cfg := SyncConfig{
		Common:            common(v),
		GraphURL:          v.GetString("graph-url"),
		UniswapURL:        v.GetString("uniswap-url"),
		CandleSymbols:     getStringSlice(v, "candle-symbol"),
		CoinGeckoURL:      v.GetString("coingecko-url"),
		CoinGeckoAPIKey:   v.GetString("coingecko-api-key"),
		CoinIDs:           getStringSlice(v, "coin"),
		LookbackDays:      v.GetInt("lookback-days"),
		StaleAfter:        v.GetDuration("stale-after"),
		BackfillCeiling:   v.GetInt("backfill-ceiling"),
		PageSize:          v.GetInt("page-size"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
	}

	if cfg.GraphURL == "" {
		return cfg, fmt.Errorf("graph url is required (--graph-url or GRAPH_URL)")
	}
	if cfg.LookbackDays <= 0 {
		return cfg, fmt.Errorf("lookback days must be greater than zero")
	}
	if cfg.PageSize <= 0 {
		return cfg, fmt.Errorf("page size must be greater than zero")
	}
	return cfg, nil
}

// LoadMatch merges config file, environment variables, and flags into MatchConfig.
func LoadMatch(cfgFile string, flags *pflag.FlagSet) (MatchConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("base", "ethereum")
		v.SetDefault("quote", "tether")
		v.SetDefault("side", []string{"sell", "buy"})
		v.SetDefault("reference", "coingecko")
		v.SetDefault("std-n", 2.0)
		v.SetDefault("out-dir", "./data/charts")
		v.SetDefault("out", "./data/matched_trades.jsonl")
	})
	if err != nil {
		return MatchConfig{}, err
	}

	cfg := MatchConfig{
		Common:     common(v),
		Base:       v.GetString("base"),
		Quote:      v.GetString("quote"),
		Sides:      getStringSlice(v, "side"),
		Reference:  v.GetString("reference"),
		MinQuote:   v.GetFloat64("min-quote"),
		StdN:       v.GetFloat64("std-n"),
		AssetsFile: v.GetString("assets"),
		RPCURL:     v.GetString("rpc"),
		OutDir:     v.GetString("out-dir"),
		Out:        v.GetString("out"),
	}
	if v.GetBool("large") && cfg.MinQuote == 0 {
		cfg.MinQuote = LargeTradeQuote
	}

	if cfg.From, err = ParseTimestamp(v.GetString("from")); err != nil {
		return cfg, fmt.Errorf("parse from: %w", err)
	}
	if cfg.To, err = ParseTimestamp(v.GetString("to")); err != nil {
		return cfg, fmt.Errorf("parse to: %w", err)
	}
	if cfg.To != 0 && cfg.From > cfg.To {
		return cfg, fmt.Errorf("from must be <= to")
	}
	for _, side := range cfg.Sides {
		if side != "sell" && side != "buy" {
			return cfg, fmt.Errorf("invalid side %q (sell or buy)", side)
		}
	}
	if cfg.Reference != "coingecko" && cfg.Reference != "uniswap" {
		return cfg, fmt.Errorf("invalid reference %q (coingecko or uniswap)", cfg.Reference)
	}
	if cfg.MinQuote < 0 {
		return cfg, fmt.Errorf("min quote must be >= 0")
	}
	return cfg, nil
}

// LargeTradeQuote is the quote amount, in whole units, above which a trade
// counts as large.
const LargeTradeQuote = 5000

// LoadTxIndex merges config file, environment variables, and flags into TxIndexConfig.
func LoadTxIndex(cfgFile string, flags *pflag.FlagSet) (TxIndexConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("days", 3)
		v.SetDefault("bin-width", 40)
		v.SetDefault("out-dir", "./data/charts")
	})
	if err != nil {
		return TxIndexConfig{}, err
	}

	cfg := TxIndexConfig{
		Common:   common(v),
		RPCURL:   v.GetString("rpc"),
		Days:     v.GetInt("days"),
		BinWidth: v.GetUint64("bin-width"),
		OutDir:   v.GetString("out-dir"),
	}
	if cfg.RPCURL == "" {
		return cfg, fmt.Errorf("rpc url is required (--rpc or ETHEREUM_NODE_URL)")
	}
	if cfg.Days <= 0 {
		return cfg, fmt.Errorf("days must be greater than zero")
	}
	if cfg.BinWidth == 0 {
		return cfg, fmt.Errorf("bin width must be greater than zero")
	}
	return cfg, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet, defaults func(*viper.Viper)) (*viper.Viper, error) {
	LoadDotenv()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// Names used by the earlier scripts.
	_ = v.BindEnv("graph-url", envPrefix+"_GRAPH_URL", "GRAPH_URL")
	_ = v.BindEnv("rpc", envPrefix+"_RPC", "ETHEREUM_NODE_URL")

	v.SetDefault("data-dir", "./data")
	v.SetDefault("log-level", "info")
	v.SetDefault("max-retries", 0)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("http-timeout", 30*time.Second)
	if defaults != nil {
		defaults(v)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func common(v *viper.Viper) Common {
	return Common{
		DataDir:      v.GetString("data-dir"),
		LogLevel:     v.GetString("log-level"),
		MetricsFile:  v.GetString("metrics-file"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		HTTPTimeout:  v.GetDuration("http-timeout"),
	}
}

// ParseTimestamp parses a timestamp value (unix seconds or RFC3339).
func ParseTimestamp(input string) (int64, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, nil
	}

	if isNumeric(input) {
		return strconv.ParseInt(input, 10, 64)
	}

	tm, err := time.Parse(time.RFC3339, input)
	if err != nil {
		return 0, err
	}
	return tm.Unix(), nil
}

func isNumeric(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return input != ""
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
