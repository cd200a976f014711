package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Solana     SolanaConfig     `yaml:"solana"`
	Settlement SettlementConfig `yaml:"settlement"`
	Cache      CacheConfig      `yaml:"cache"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	JWT        JWTConfig        `yaml:"jwt"`
	Logger     LoggerConfig     `yaml:"logger"`
}

type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           string   `yaml:"port"`
	Environment    string   `yaml:"environment"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	Host            string `yaml:"host"`
	Port            string `yaml:"port"`
	User            string `yaml:"user"`
	DBName          string `yaml:"name"`
	Password        string `yaml:"password"`
	SSLMode         string `yaml:"ssl_mode"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime"`
}

type SolanaConfig struct {
	RPCURL     string            `yaml:"rpc_url"`
	Cluster    string            `yaml:"cluster"`
	Timeout    time.Duration     `yaml:"timeout"`
	MintAddresses map[string]string `yaml:"mint_addresses"` // token_symbol -> mint_address
}

type SettlementConfig struct {
	PlatformFeeRate    float64       `yaml:"platform_fee_rate"`
	ReferralRate       float64       `yaml:"referral_rate"`
	PlatformAddress    string        `yaml:"platform_address"`
	PaymentCurrency    string        `yaml:"payment_currency"`
	TransactionTimeout time.Duration `yaml:"transaction_timeout"`
	SyncTick           time.Duration `yaml:"sync_tick"`
	TradeSyncInterval  time.Duration `yaml:"trade_sync_interval"`
	AssetSyncInterval  time.Duration `yaml:"asset_sync_interval"`
	ConsistencyInterval time.Duration `yaml:"consistency_interval"`
}

type CacheConfig struct {
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	TTL           time.Duration `yaml:"ttl"`
}

type WebSocketConfig struct {
	ReadBufferSize  int  `yaml:"read_buffer_size"`
	WriteBufferSize int  `yaml:"write_buffer_size"`
	CheckOrigin     bool `yaml:"check_origin"`
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
}

type LoggerConfig struct {
	Level      string `yaml:"level"`
	TimeFormat string `yaml:"time_format"`
	Pretty     bool   `yaml:"pretty"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	var config Config
	configData, err := os.ReadFile(configPath())
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(configData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()
	config.applyEnvOverrides()

	return &config, nil
}

func configPath() string {
	if path := os.Getenv("RWS_CONFIG"); path != "" {
		return path
	}
	return "./config.yaml"
}

func (c *Config) applyDefaults() {
	if c.Settlement.PlatformFeeRate == 0 {
		c.Settlement.PlatformFeeRate = 0.035
	}
	if c.Settlement.ReferralRate == 0 {
		c.Settlement.ReferralRate = 0.05
	}
	if c.Settlement.PaymentCurrency == "" {
		c.Settlement.PaymentCurrency = "USDC"
	}
	if c.Settlement.TransactionTimeout == 0 {
		c.Settlement.TransactionTimeout = 30 * time.Minute
	}
	if c.Settlement.SyncTick == 0 {
		c.Settlement.SyncTick = 30 * time.Second
	}
	if c.Settlement.TradeSyncInterval == 0 {
		c.Settlement.TradeSyncInterval = 2 * time.Minute
	}
	if c.Settlement.AssetSyncInterval == 0 {
		c.Settlement.AssetSyncInterval = 5 * time.Minute
	}
	if c.Settlement.ConsistencyInterval == 0 {
		c.Settlement.ConsistencyInterval = 10 * time.Minute
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 5 * time.Minute
	}
	if c.Solana.Timeout == 0 {
		c.Solana.Timeout = 15 * time.Second
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DATABASE_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.JWT.Secret = v
	}
	if v := os.Getenv("SOLANA_RPC_URL"); v != "" {
		c.Solana.RPCURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
	}
}
