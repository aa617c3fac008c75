package config

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/yegors/flightsurety/internal/surety"
)

// EnvPrefix prefixes every environment override, e.g. FLIGHTSURETY_SERVER_PORT.
const EnvPrefix = "FLIGHTSURETY_"

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `toml:"server" envPrefix:"SERVER_"`
	Logging   LoggingConfig   `toml:"logging" envPrefix:"LOGGING_"`
	Ledger    LedgerConfig    `toml:"ledger" envPrefix:"LEDGER_"`
	Oracles   OraclesConfig   `toml:"oracles" envPrefix:"ORACLES_"`
	Storage   StorageConfig   `toml:"storage" envPrefix:"STORAGE_"`
	Provision ProvisionConfig `toml:"provision" envPrefix:"PROVISION_"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host                   string   `toml:"host" env:"HOST"`
	Port                   int      `toml:"port" env:"PORT"`
	CORSAllowedOrigins     []string `toml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	MaxConnections         int      `toml:"max_connections" env:"MAX_CONNECTIONS"`
	ReadTimeoutSeconds     int      `toml:"read_timeout_seconds" env:"READ_TIMEOUT_SECONDS"`
	WriteTimeoutSeconds    int      `toml:"write_timeout_seconds" env:"WRITE_TIMEOUT_SECONDS"`
	ShutdownTimeoutSeconds int      `toml:"shutdown_timeout_seconds" env:"SHUTDOWN_TIMEOUT_SECONDS"`
	// RelayAccount submits status requests on behalf of /fetch callers. Defaults to the ledger owner.
	RelayAccount string `toml:"relay_account" env:"RELAY_ACCOUNT"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `toml:"level" env:"LEVEL"`
	Format string `toml:"format" env:"FORMAT"`
}

// LedgerConfig contains the bootstrap identities and economic constants
type LedgerConfig struct {
	Owner                 string `toml:"owner" env:"OWNER"`
	AppAddress            string `toml:"app_address" env:"APP_ADDRESS"`
	FirstAirline          string `toml:"first_airline" env:"FIRST_AIRLINE"`
	FirstAirlineName      string `toml:"first_airline_name" env:"FIRST_AIRLINE_NAME"`
	AirlineMinFunding     Amount `toml:"airline_min_funding" env:"AIRLINE_MIN_FUNDING"`
	OracleRegistrationFee Amount `toml:"oracle_registration_fee" env:"ORACLE_REGISTRATION_FEE"`
	InsuranceCap          Amount `toml:"insurance_cap" env:"INSURANCE_CAP"`
}

// OraclesConfig contains the oracle worker pool settings
type OraclesConfig struct {
	Enabled bool `toml:"enabled" env:"ENABLED"`
	// Accounts lists oracle addresses; when empty, Count accounts are generated.
	Accounts               []string `toml:"accounts" env:"ACCOUNTS" envSeparator:","`
	Count                  int      `toml:"count" env:"COUNT"`
	StatusSource           string   `toml:"status_source" env:"STATUS_SOURCE"`
	SourceURL              string   `toml:"source_url" env:"SOURCE_URL"`
	RequestTimeoutSeconds  int      `toml:"request_timeout_seconds" env:"REQUEST_TIMEOUT_SECONDS"`
	MaxRetries             int      `toml:"max_retries" env:"MAX_RETRIES"`
	LateAirlineBiasPercent int      `toml:"late_airline_bias_percent" env:"LATE_AIRLINE_BIAS_PERCENT"`
	// CacheTTLSeconds keeps http source answers shared between workers.
	CacheTTLSeconds int `toml:"cache_ttl_seconds" env:"CACHE_TTL_SECONDS"`
}

// StorageConfig contains the event journal settings
type StorageConfig struct {
	DatabasePath string `toml:"database_path" env:"DATABASE_PATH"`
}

// ProvisionConfig controls seeding at startup
type ProvisionConfig struct {
	Enabled bool `toml:"enabled" env:"ENABLED"`
	// Airlines lists the airline accounts after the first one; when empty,
	// AirlineCount-1 accounts are generated.
	Airlines          []string `toml:"airlines" env:"AIRLINES" envSeparator:","`
	AirlineCount      int      `toml:"airline_count" env:"AIRLINE_COUNT"`
	FlightsPerAirline int      `toml:"flights_per_airline" env:"FLIGHTS_PER_AIRLINE"`
}

// Status sources understood by the oracle pool.
const (
	StatusSourceRandom = "random"
	StatusSourceHTTP   = "http"
)

// Default returns the configuration of a local development deployment.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:                   "0.0.0.0",
			Port:                   3000,
			MaxConnections:         256,
			ReadTimeoutSeconds:     15,
			WriteTimeoutSeconds:    15,
			ShutdownTimeoutSeconds: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Ledger: LedgerConfig{
			Owner:                 "0x627306090abaB3A6e1400e9345bC60c78a8BEf57",
			FirstAirline:          "0xf17f52151EbEF6C7334FAD080c5704D77216b732",
			FirstAirlineName:      "AIR-0001",
			AirlineMinFunding:     NewAmount(surety.Ether(10)),
			OracleRegistrationFee: NewAmount(surety.Ether(1)),
			InsuranceCap:          NewAmount(surety.Ether(1)),
		},
		Oracles: OraclesConfig{
			Enabled:                true,
			Count:                  20,
			StatusSource:           StatusSourceRandom,
			RequestTimeoutSeconds:  10,
			MaxRetries:             3,
			LateAirlineBiasPercent: 30,
			CacheTTLSeconds:        60,
		},
		Storage: StorageConfig{
			DatabasePath: "flightsurety.db",
		},
		Provision: ProvisionConfig{
			Enabled:           true,
			AirlineCount:      5,
			FlightsPerAirline: 5,
		},
	}
}

// Load reads the TOML file at path over the defaults, then applies
// FLIGHTSURETY_* environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d is out of range", c.Server.Port))
	}
	if c.Server.MaxConnections < 0 {
		errs = append(errs, fmt.Errorf("server.max_connections must not be negative"))
	}
	errs = append(errs, checkAddress("server.relay_account", c.Server.RelayAccount, true))

	errs = append(errs,
		checkAddress("ledger.owner", c.Ledger.Owner, false),
		checkAddress("ledger.app_address", c.Ledger.AppAddress, true),
		checkAddress("ledger.first_airline", c.Ledger.FirstAirline, false),
		checkAmount("ledger.airline_min_funding", c.Ledger.AirlineMinFunding),
		checkAmount("ledger.oracle_registration_fee", c.Ledger.OracleRegistrationFee),
		checkAmount("ledger.insurance_cap", c.Ledger.InsuranceCap),
	)

	switch c.Oracles.StatusSource {
	case StatusSourceRandom:
	case StatusSourceHTTP:
		if c.Oracles.SourceURL == "" {
			errs = append(errs, fmt.Errorf("oracles.source_url is required for the http status source"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown oracles.status_source %q", c.Oracles.StatusSource))
	}
	if c.Oracles.LateAirlineBiasPercent < 0 || c.Oracles.LateAirlineBiasPercent > 100 {
		errs = append(errs, fmt.Errorf("oracles.late_airline_bias_percent must be within 0-100"))
	}
	if c.Oracles.Enabled && len(c.Oracles.Accounts) == 0 && c.Oracles.Count <= 0 {
		errs = append(errs, fmt.Errorf("oracles.count must be positive when no accounts are listed"))
	}
	for _, a := range c.Oracles.Accounts {
		errs = append(errs, checkAddress("oracles.accounts", a, false))
	}

	if c.Provision.Enabled && len(c.Provision.Airlines) == 0 && c.Provision.AirlineCount < 1 {
		errs = append(errs, fmt.Errorf("provision.airline_count must be at least 1"))
	}
	if c.Provision.FlightsPerAirline < 0 {
		errs = append(errs, fmt.Errorf("provision.flights_per_airline must not be negative"))
	}
	for _, a := range c.Provision.Airlines {
		errs = append(errs, checkAddress("provision.airlines", a, false))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func checkAddress(key, value string, optional bool) error {
	if value == "" && optional {
		return nil
	}
	if !common.IsHexAddress(value) {
		return fmt.Errorf("%s %q is not a valid address", key, value)
	}
	return nil
}

func checkAmount(key string, a Amount) error {
	if a.wei == nil || a.wei.Sign() <= 0 {
		return fmt.Errorf("%s must be positive", key)
	}
	return nil
}

// OwnerAddress is the ledger owner.
func (c *LedgerConfig) OwnerAddress() common.Address {
	return common.HexToAddress(c.Owner)
}

// FirstAirlineAddress is the airline admitted at bootstrap.
func (c *LedgerConfig) FirstAirlineAddress() common.Address {
	return common.HexToAddress(c.FirstAirline)
}

// App returns the logic layer's address. Unless configured, it is the address
// a contract deployed by the owner with nonce 1 would get, the data layer
// taking nonce 0.
func (c *LedgerConfig) App() common.Address {
	if c.AppAddress != "" {
		return common.HexToAddress(c.AppAddress)
	}
	return crypto.CreateAddress(c.OwnerAddress(), 1)
}

// Params converts the economic constants.
func (c *LedgerConfig) Params() surety.Params {
	return surety.Params{
		AirlineMinFunding:     c.AirlineMinFunding.Wei(),
		OracleRegistrationFee: c.OracleRegistrationFee.Wei(),
		InsuranceCap:          c.InsuranceCap.Wei(),
	}
}

// Relay returns the account that submits status requests for the API.
func (c *Config) Relay() common.Address {
	if c.Server.RelayAccount != "" {
		return common.HexToAddress(c.Server.RelayAccount)
	}
	return c.Ledger.OwnerAddress()
}

// Amount is a wei value written as text ("10 ether", "2 gwei", "1000").
type Amount struct {
	wei *big.Int
}

// NewAmount wraps a wei value.
func NewAmount(wei *big.Int) Amount {
	return Amount{wei: new(big.Int).Set(wei)}
}

// Wei returns a copy of the amount in wei.
func (a Amount) Wei() *big.Int {
	if a.wei == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a.wei)
}

func (a Amount) String() string {
	return surety.FormatEther(a.wei)
}

func (a *Amount) UnmarshalText(text []byte) error {
	wei, err := surety.ParseAmount(string(text))
	if err != nil {
		return err
	}
	a.wei = wei
	return nil
}

func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}
