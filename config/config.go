// Package config carrega a configuração da réplica: valores padrão, arquivo
// opcional e variáveis de ambiente com prefixo HARBERGER_, nessa ordem.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

const EnvPrefix = "HARBERGER"

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // postgres | sqlite
	DSN    string `mapstructure:"dsn"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// Config é a configuração completa do processo.
type Config struct {
	RPCURL          string `mapstructure:"rpc_url"`
	ContractAddress string `mapstructure:"contract_address"`
	TokenAddress    string `mapstructure:"token_address"` // vazio: lido de currency() no ledger
	PrivateKey      string `mapstructure:"private_key"`   // vazio: apenas preparação de transações
	ChainID         int64  `mapstructure:"chain_id"`
	Account         string `mapstructure:"account"`

	StartBlock       uint64        `mapstructure:"start_block"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	Confirmations    uint64        `mapstructure:"confirmations"`
	BatchBlocks      uint64        `mapstructure:"batch_blocks"`
	FetchConcurrency int           `mapstructure:"fetch_concurrency"`
	RetryAttempts    int           `mapstructure:"retry_attempts"`
	RetryDelay       time.Duration `mapstructure:"retry_delay"`
	ReadCacheSize    int           `mapstructure:"read_cache_size"`
	KeepCheckpoints  int           `mapstructure:"keep_checkpoints"`

	Database DatabaseConfig `mapstructure:"database"`
	HTTP     HTTPConfig     `mapstructure:"http"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("rpc_url", "http://127.0.0.1:8545")
	v.SetDefault("contract_address", "")
	v.SetDefault("token_address", "")
	v.SetDefault("private_key", "")
	v.SetDefault("chain_id", 1)
	v.SetDefault("account", "")
	v.SetDefault("start_block", 0)
	v.SetDefault("poll_interval", "5s")
	v.SetDefault("confirmations", 2)
	v.SetDefault("batch_blocks", 2000)
	v.SetDefault("fetch_concurrency", 8)
	v.SetDefault("retry_attempts", 5)
	v.SetDefault("retry_delay", "2s")
	v.SetDefault("read_cache_size", 4096)
	v.SetDefault("keep_checkpoints", 20)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "harberger.db")
	v.SetDefault("http.addr", ":8080")
}

// Load lê a configuração. path vazio usa apenas padrões e ambiente.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("arquivo de configuração inacessível: %w", err)
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("falha ao ler %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("falha ao interpretar configuração: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuração inválida: %w", err)
	}
	return &cfg, nil
}

// Validate confere os campos obrigatórios e os limites.
func (c *Config) Validate() error {
	var errs []error
	if c.RPCURL == "" {
		errs = append(errs, errors.New("rpc_url é obrigatório"))
	}
	if !common.IsHexAddress(c.ContractAddress) {
		errs = append(errs, fmt.Errorf("contract_address inválido: %q", c.ContractAddress))
	}
	if c.TokenAddress != "" && !common.IsHexAddress(c.TokenAddress) {
		errs = append(errs, fmt.Errorf("token_address inválido: %q", c.TokenAddress))
	}
	if c.Account != "" && !common.IsHexAddress(c.Account) {
		errs = append(errs, fmt.Errorf("account inválido: %q", c.Account))
	}
	if c.PrivateKey != "" && c.ChainID <= 0 {
		errs = append(errs, errors.New("chain_id deve ser positivo quando private_key é informado"))
	}
	if c.BatchBlocks == 0 {
		errs = append(errs, errors.New("batch_blocks deve ser maior que zero"))
	}
	if c.FetchConcurrency <= 0 {
		errs = append(errs, errors.New("fetch_concurrency deve ser maior que zero"))
	}
	if c.RetryAttempts <= 0 {
		errs = append(errs, errors.New("retry_attempts deve ser maior que zero"))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, errors.New("poll_interval deve ser positivo"))
	}
	if c.KeepCheckpoints < 1 {
		errs = append(errs, errors.New("keep_checkpoints deve ser ao menos 1"))
	}
	if c.RetryDelay < 0 {
		errs = append(errs, errors.New("retry_delay não pode ser negativo"))
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("database.driver não suportado: %q", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn é obrigatório"))
	}
	return errors.Join(errs...)
}

func (c *Config) Contract() common.Address { return common.HexToAddress(c.ContractAddress) }

// Token retorna o token configurado; false quando deve ser lido do ledger.
func (c *Config) Token() (common.Address, bool) {
	if c.TokenAddress == "" {
		return common.Address{}, false
	}
	return common.HexToAddress(c.TokenAddress), true
}
