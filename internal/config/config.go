// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Chain       ChainConfig       `mapstructure:"chain"`
	Tokens      []TokenConfig     `mapstructure:"tokens"`
	Liquidity   LiquidityConfig   `mapstructure:"liquidity"`
	Routing     RoutingConfig     `mapstructure:"routing"`
	Swap        SwapConfig        `mapstructure:"swap"`
	Monitor     MonitorConfig     `mapstructure:"monitor"`
	Alerting    AlertingConfig    `mapstructure:"alerting"`
	Analytics   AnalyticsConfig   `mapstructure:"analytics"`
	Binance     BinanceConfig     `mapstructure:"binance"`
	Advisory    AdvisoryConfig    `mapstructure:"advisory"`
	EventStream EventStreamConfig `mapstructure:"eventstream"`
	Health      HealthConfig      `mapstructure:"health"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	TUIMode     bool   `mapstructure:"-"` // Set at runtime, not from config file
}

// ChainConfig holds node endpoints and call policy.
type ChainConfig struct {
	RPCURLs           []string      `mapstructure:"rpc_urls"` // tried in order, rotated on failure
	ChainID           uint64        `mapstructure:"chain_id"`
	PrivateKey        string        `mapstructure:"private_key"`
	CallTimeout       time.Duration `mapstructure:"call_timeout"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	InitialDelay      time.Duration `mapstructure:"initial_delay"`
	MaxDelay          time.Duration `mapstructure:"max_delay"`
	BackoffFactor     float64       `mapstructure:"backoff_factor"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	MaxGasPriceGwei   float64       `mapstructure:"max_gas_price_gwei"`
	GasPriceCacheTTL  time.Duration `mapstructure:"gas_price_cache_ttl"`
	GasLimitFallback  uint64        `mapstructure:"gas_limit_fallback"`
}

// TokenConfig registers an ERC20 token by symbol.
type TokenConfig struct {
	Symbol   string `mapstructure:"symbol"`
	Name     string `mapstructure:"name"`
	Address  string `mapstructure:"address"`
	Decimals uint8  `mapstructure:"decimals"`
}

// LiquidityConfig controls pool discovery and caching.
type LiquidityConfig struct {
	Pools          []string      `mapstructure:"pools"`
	FactoryAddress string        `mapstructure:"factory_address"` // optional UniswapV2 factory to enumerate
	MaxPools       int           `mapstructure:"max_pools"`
	DefaultFeePPM  uint32        `mapstructure:"default_fee_ppm"`
	PoolTTL        time.Duration `mapstructure:"pool_ttl"`
	GraphTTL       time.Duration `mapstructure:"graph_ttl"`
	Concurrency    int           `mapstructure:"concurrency"`
}

// RoutingConfig holds path search limits.
type RoutingConfig struct {
	MaxHops int `mapstructure:"max_hops"`
}

// SwapConfig holds estimation and execution parameters.
type SwapConfig struct {
	RouterAddress    string        `mapstructure:"router_address"`
	MaxSlippage      float64       `mapstructure:"max_slippage"`     // fraction, 0.05 = 5%
	DefaultSlippage  float64       `mapstructure:"default_slippage"` // fraction
	Deadline         time.Duration `mapstructure:"deadline"`
	GasBase          uint64        `mapstructure:"gas_base"`
	GasPerHop        uint64        `mapstructure:"gas_per_hop"`
	GasBufferPercent uint64        `mapstructure:"gas_buffer_percent"`
}

// MaxSlippageDecimal returns the slippage cap as decimal.
func (c *SwapConfig) MaxSlippageDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MaxSlippage)
}

// DefaultSlippageDecimal returns the default tolerance as decimal.
func (c *SwapConfig) DefaultSlippageDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.DefaultSlippage)
}

// RouterAddressHex returns the router address as common.Address.
func (c *SwapConfig) RouterAddressHex() common.Address {
	return common.HexToAddress(c.RouterAddress)
}

// MonitorConfig holds transaction tracking policy.
type MonitorConfig struct {
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxPollErrors   int           `mapstructure:"max_poll_errors"`
	Retention       time.Duration `mapstructure:"retention"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// AlertingConfig holds metrics collection settings.
type AlertingConfig struct {
	CollectInterval  time.Duration `mapstructure:"collect_interval"`
	MetricsRetention time.Duration `mapstructure:"metrics_retention"`
}

// AnalyticsConfig selects the trade analytics store.
type AnalyticsConfig struct {
	Backend       string        `mapstructure:"backend"` // memory | redis
	TTL           time.Duration `mapstructure:"ttl"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
}

// BinanceConfig holds the external price feed settings.
type BinanceConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	WebSocketURL string   `mapstructure:"websocket_url"` // wss://stream.binance.com:9443 or wss://stream.binance.us:9443 for US
	Symbols      []string `mapstructure:"symbols"`       // e.g. ETHUSDC, base asset maps to a token symbol
}

// AdvisoryConfig holds the text-generation service settings.
type AdvisoryConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// EventStreamConfig holds the WebSocket event broadcast settings.
type EventStreamConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// HealthConfig holds the health server settings.
type HealthConfig struct {
	Port int `mapstructure:"port"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	ServiceName     string `mapstructure:"service_name"`
	TraceProvider   string `mapstructure:"trace_provider"`   // zipkin | otlp_grpc | otlp_http | console | empty
	MetricsProvider string `mapstructure:"metrics_provider"` // prometheus | otlp
	OTLPEndpoint    string `mapstructure:"otlp_endpoint"`
	OTLPHeaders     string `mapstructure:"otlp_headers"`
	PrometheusPort  int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("SWAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "SWAP_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "SWAP_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "SWAP_LOG_LEVEL", "LOG_LEVEL")

	// Chain
	v.BindEnv("chain.rpc_urls", "SWAP_RPC_URLS", "ETH_RPC_URLS")
	v.BindEnv("chain.chain_id", "SWAP_CHAIN_ID", "ETH_CHAIN_ID")
	v.BindEnv("chain.private_key", "SWAP_PRIVATE_KEY", "PRIVATE_KEY")

	// Swap
	v.BindEnv("swap.router_address", "SWAP_ROUTER_ADDRESS", "ROUTER_ADDRESS")
	v.BindEnv("liquidity.factory_address", "SWAP_FACTORY_ADDRESS", "FACTORY_ADDRESS")

	// Analytics
	v.BindEnv("analytics.backend", "SWAP_ANALYTICS_BACKEND")
	v.BindEnv("analytics.redis_addr", "SWAP_REDIS_ADDR", "REDIS_ADDR")
	v.BindEnv("analytics.redis_password", "SWAP_REDIS_PASSWORD", "REDIS_PASSWORD")

	// Binance
	v.BindEnv("binance.websocket_url", "SWAP_BINANCE_WS_URL", "BINANCE_WS_URL")
	v.BindEnv("binance.symbols", "SWAP_BINANCE_SYMBOLS", "BINANCE_SYMBOLS")

	// Advisory
	v.BindEnv("advisory.base_url", "SWAP_ADVISORY_URL", "DEEPSEEK_BASE_URL")
	v.BindEnv("advisory.api_key", "SWAP_ADVISORY_API_KEY", "DEEPSEEK_API_KEY")

	// Telemetry
	v.BindEnv("telemetry.enabled", "SWAP_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "SWAP_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "SWAP_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	v.BindEnv("telemetry.otlp_headers", "SWAP_OTEL_HEADERS", "OTEL_EXPORTER_OTLP_HEADERS")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "swap-router")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Chain defaults
	v.SetDefault("chain.chain_id", 1)
	v.SetDefault("chain.call_timeout", "5s")
	v.SetDefault("chain.max_attempts", 3)
	v.SetDefault("chain.initial_delay", "1s")
	v.SetDefault("chain.max_delay", "10s")
	v.SetDefault("chain.backoff_factor", 2)
	v.SetDefault("chain.requests_per_minute", 600)
	v.SetDefault("chain.max_gas_price_gwei", 500)
	v.SetDefault("chain.gas_price_cache_ttl", "12s")
	v.SetDefault("chain.gas_limit_fallback", 300000)

	// Liquidity defaults (UniswapV2 mainnet pairs)
	v.SetDefault("liquidity.pools", []string{
		"0xB4e16d0168e52d35CaCD2c6185b44281Ec28C9Dc", // USDC/WETH
		"0xA478c2975Ab1Ea89e8196811F51A7B7Ade33eB11", // DAI/WETH
		"0x0d4a11d5EEaaC28EC3F61d100daF4d40471f1852", // WETH/USDT
		"0xAE461cA67B15dc8dc81CE7615e0320dA1A9aB8D5", // DAI/USDC
		"0xBb2b8038a1640196FbE3e38816F3e67Cba72D940", // WBTC/WETH
	})
	v.SetDefault("liquidity.max_pools", 50)
	v.SetDefault("liquidity.default_fee_ppm", 3000) // 0.3%
	v.SetDefault("liquidity.pool_ttl", "60s")
	v.SetDefault("liquidity.graph_ttl", "30s")
	v.SetDefault("liquidity.concurrency", 8)

	// Routing defaults
	v.SetDefault("routing.max_hops", 3)

	// Swap defaults
	v.SetDefault("swap.router_address", "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D") // UniswapV2Router02
	v.SetDefault("swap.max_slippage", 0.05)
	v.SetDefault("swap.default_slippage", 0.005)
	v.SetDefault("swap.deadline", "300s")
	v.SetDefault("swap.gas_base", 100000)
	v.SetDefault("swap.gas_per_hop", 50000)
	v.SetDefault("swap.gas_buffer_percent", 10)

	// Monitor defaults
	v.SetDefault("monitor.poll_interval", "5s")
	v.SetDefault("monitor.timeout", "1h")
	v.SetDefault("monitor.max_poll_errors", 5)
	v.SetDefault("monitor.retention", "24h")
	v.SetDefault("monitor.cleanup_interval", "1h")

	// Alerting defaults
	v.SetDefault("alerting.collect_interval", "60s")
	v.SetDefault("alerting.metrics_retention", "24h")

	// Analytics defaults
	v.SetDefault("analytics.backend", "memory")
	v.SetDefault("analytics.ttl", "24h")
	v.SetDefault("analytics.redis_addr", "localhost:6379")

	// Binance defaults
	v.SetDefault("binance.enabled", true)
	v.SetDefault("binance.websocket_url", "wss://stream.binance.com:9443")
	v.SetDefault("binance.symbols", []string{"ETHUSDC", "BTCUSDC"})

	// Advisory defaults
	v.SetDefault("advisory.base_url", "https://api.deepseek.com")
	v.SetDefault("advisory.model", "deepseek-chat")
	v.SetDefault("advisory.timeout", "10s")

	// Event stream and health
	v.SetDefault("eventstream.enabled", true)
	v.SetDefault("eventstream.port", 8082)
	v.SetDefault("health.port", 8081)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "swap-router")
	v.SetDefault("telemetry.trace_provider", "zipkin")
	v.SetDefault("telemetry.metrics_provider", "prometheus")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.Chain.RPCURLs) == 0 {
		return fmt.Errorf("chain.rpc_urls is required")
	}
	if c.Chain.MaxAttempts < 1 {
		return fmt.Errorf("chain.max_attempts must be at least 1")
	}
	if c.Chain.BackoffFactor <= 1 {
		return fmt.Errorf("chain.backoff_factor must be greater than 1")
	}
	if !common.IsHexAddress(c.Swap.RouterAddress) {
		return fmt.Errorf("invalid swap.router_address: %s", c.Swap.RouterAddress)
	}
	if c.Liquidity.FactoryAddress != "" && !common.IsHexAddress(c.Liquidity.FactoryAddress) {
		return fmt.Errorf("invalid liquidity.factory_address: %s", c.Liquidity.FactoryAddress)
	}
	for _, p := range c.Liquidity.Pools {
		if !common.IsHexAddress(p) {
			return fmt.Errorf("invalid pool address: %s", p)
		}
	}
	if c.Liquidity.DefaultFeePPM >= 1_000_000 {
		return fmt.Errorf("liquidity.default_fee_ppm must be below 1000000")
	}
	for _, t := range c.Tokens {
		if t.Symbol == "" || !common.IsHexAddress(t.Address) {
			return fmt.Errorf("invalid token entry: %q %q", t.Symbol, t.Address)
		}
	}
	if c.Routing.MaxHops < 1 {
		return fmt.Errorf("routing.max_hops must be at least 1")
	}
	if c.Swap.MaxSlippage < 0 || c.Swap.MaxSlippage >= 1 {
		return fmt.Errorf("swap.max_slippage must be in [0, 1)")
	}
	if c.Swap.DefaultSlippage < 0 || c.Swap.DefaultSlippage > c.Swap.MaxSlippage {
		return fmt.Errorf("swap.default_slippage must be in [0, max_slippage]")
	}
	if c.Monitor.PollInterval <= 0 || c.Monitor.Timeout <= 0 {
		return fmt.Errorf("monitor.poll_interval and monitor.timeout must be positive")
	}
	if c.Monitor.MaxPollErrors < 1 {
		return fmt.Errorf("monitor.max_poll_errors must be at least 1")
	}
	switch c.Analytics.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("analytics.backend must be memory or redis, got %q", c.Analytics.Backend)
	}
	if c.Binance.Enabled && len(c.Binance.Symbols) == 0 {
		return fmt.Errorf("binance.symbols cannot be empty when the feed is enabled")
	}
	return nil
}
