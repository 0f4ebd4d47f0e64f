package config

import (
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/jessevdk/go-flags"

	"github.com/omnistake/xcm-delegator/assets"
	"github.com/omnistake/xcm-delegator/config"
	"github.com/omnistake/xcm-delegator/metrics"
	"github.com/omnistake/xcm-delegator/queue"
	"github.com/omnistake/xcm-delegator/types"
	"github.com/omnistake/xcm-delegator/util"
)

const (
	defaultLogLevel             = "info"
	defaultLogDirname           = "logs"
	defaultLogFilename          = "xdd.log"
	defaultConfigFileName       = "xdd.conf"
	defaultDataDirname          = "data"
	DefaultRPCPort              = 15812
	defaultParachainID          = 2030
	defaultPendingStatusTimeout = 24 * time.Hour
	defaultReapInterval         = time.Minute
	defaultDispatchTimeout      = 30 * time.Second
)

var (
	//   C:\Users\<username>\AppData\Local\ on Windows
	//   ~/.xdd on Linux
	//   ~/Users/<username>/Library/Application Support/Xdd on MacOS
	DefaultXddDir = btcutil.AppDataDir("xdd", false)

	DefaultRpcListener = "127.0.0.1:" + strconv.Itoa(DefaultRPCPort)
)

// CoordinatorConfig holds the identity of the local chain and who may drive
// the coordinator.
type CoordinatorConfig struct {
	ParachainID          uint32            `long:"parachainid" description:"The parachain id of the local chain; remote sovereign and derivative accounts are derived from it"`
	ControlToken         string            `long:"controltoken" description:"The API token of the control (governance) origin"`
	Operators            map[string]string `long:"operator" description:"An operator account and its API token as account:token; may be given multiple times"`
	FeeAccount           string            `long:"feeaccount" description:"The account receiving the protocol fee minted on exchange rate updates"`
	PendingStatusTimeout time.Duration     `long:"pendingstatustimeout" description:"The age after which an unanswered task is discarded, which is disabled if the value is 0"`
	ReapInterval         time.Duration     `long:"reapinterval" description:"The interval between each sweep of timed out pending statuses"`
	DispatchTimeout      time.Duration     `long:"dispatchtimeout" description:"The maximum time spent on handing a task to the outbound channel"`
}

func DefaultCoordinatorConfig() *CoordinatorConfig {
	return &CoordinatorConfig{
		ParachainID:          defaultParachainID,
		Operators:            map[string]string{},
		PendingStatusTimeout: defaultPendingStatusTimeout,
		ReapInterval:         defaultReapInterval,
		DispatchTimeout:      defaultDispatchTimeout,
	}
}

func (cfg *CoordinatorConfig) Validate() error {
	if cfg.ParachainID == 0 {
		return fmt.Errorf("parachain id must be set")
	}
	if cfg.PendingStatusTimeout < 0 {
		return fmt.Errorf("pending status timeout must not be negative")
	}
	if cfg.PendingStatusTimeout > 0 && cfg.ReapInterval <= 0 {
		return fmt.Errorf("reap interval must be positive when the pending status timeout is enabled")
	}
	if cfg.DispatchTimeout <= 0 {
		return fmt.Errorf("dispatch timeout must be positive")
	}
	tokens := make(map[string]string, len(cfg.Operators))
	for account, token := range cfg.Operators {
		if account == "" || token == "" {
			return fmt.Errorf("operator entries must be account:token")
		}
		if token == cfg.ControlToken {
			return fmt.Errorf("operator %s reuses the control token", account)
		}
		if other, ok := tokens[token]; ok {
			return fmt.Errorf("operators %s and %s share a token", other, account)
		}
		tokens[token] = account
	}
	if cfg.FeeAccount != "" {
		if _, err := types.ParseAccount(cfg.FeeAccount); err != nil {
			return fmt.Errorf("invalid fee account: %w", err)
		}
	}
	return nil
}

// Config is the main config for the xdd daemon
type Config struct {
	LogLevel string `long:"loglevel" description:"Logging level for all subsystems" choice:"debug" choice:"info" choice:"warn" choice:"error" choice:"fatal"`

	RpcListener string `long:"rpclistener" description:"the listener for admin API connections, e.g., 127.0.0.1:1234"`

	Coordinator *CoordinatorConfig `group:"coordinator" namespace:"coordinator"`

	DatabaseConfig *config.DBConfig `group:"dbconfig" namespace:"dbconfig"`

	Queue *queue.Config `group:"queue" namespace:"queue"`

	Assets *assets.Config `group:"assets" namespace:"assets"`

	Metrics *metrics.Config `group:"metrics" namespace:"metrics"`
}

func DefaultConfigWithHome(homePath string) Config {
	cfg := Config{
		LogLevel:       defaultLogLevel,
		RpcListener:    DefaultRpcListener,
		Coordinator:    DefaultCoordinatorConfig(),
		DatabaseConfig: config.DefaultDBConfigWithHomePath(DataDir(homePath)),
		Queue:          queue.DefaultConfig(),
		Assets:         assets.DefaultConfig(),
		Metrics:        metrics.DefaultConfig(),
	}

	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	return cfg
}

func DefaultConfig() Config {
	return DefaultConfigWithHome(DefaultXddDir)
}

func ConfigFile(homePath string) string {
	return filepath.Join(homePath, defaultConfigFileName)
}

func LogDir(homePath string) string {
	return filepath.Join(homePath, defaultLogDirname)
}

func LogFile(homePath string) string {
	return filepath.Join(LogDir(homePath), defaultLogFilename)
}

func DataDir(homePath string) string {
	return filepath.Join(homePath, defaultDataDirname)
}

// LoadConfig initializes and parses the config using the config file under
// the home directory, which is required to exist.
func LoadConfig(homePath string) (*Config, error) {
	cfgFile := ConfigFile(homePath)
	if !util.FileExists(cfgFile) {
		return nil, fmt.Errorf("specified config file does "+
			"not exist in %s", cfgFile)
	}

	cfg := DefaultConfigWithHome(homePath)
	fileParser := flags.NewParser(&cfg, flags.Default)
	err := flags.NewIniParser(fileParser).ParseFile(cfgFile)
	if err != nil {
		return nil, err
	}

	// Make sure everything we just loaded makes sense.
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// WriteConfig dumps cfg with comments and defaults as the config file of
// homePath.
func WriteConfig(homePath string, cfg *Config) error {
	fileParser := flags.NewParser(cfg, flags.Default)
	return flags.NewIniParser(fileParser).WriteFile(ConfigFile(homePath), flags.IniIncludeComments|flags.IniIncludeDefaults)
}

// Validate checks the given configuration to be sane.
func (cfg *Config) Validate() error {
	_, err := net.ResolveTCPAddr("tcp", cfg.RpcListener)
	if err != nil {
		return fmt.Errorf("invalid RPC listener address %s, %w", cfg.RpcListener, err)
	}

	if cfg.Coordinator == nil {
		return fmt.Errorf("empty coordinator config")
	}
	if err := cfg.Coordinator.Validate(); err != nil {
		return fmt.Errorf("invalid coordinator config: %w", err)
	}

	if cfg.DatabaseConfig == nil {
		return fmt.Errorf("empty database config")
	}
	if err := cfg.DatabaseConfig.Validate(); err != nil {
		return fmt.Errorf("invalid database config: %w", err)
	}

	if cfg.Queue == nil {
		return fmt.Errorf("empty queue config")
	}
	if err := cfg.Queue.Validate(); err != nil {
		return fmt.Errorf("invalid queue config: %w", err)
	}

	if cfg.Assets == nil {
		return fmt.Errorf("empty assets config")
	}
	if err := cfg.Assets.Validate(); err != nil {
		return fmt.Errorf("invalid assets config: %w", err)
	}

	if cfg.Metrics == nil {
		return fmt.Errorf("empty metrics config")
	}
	if err := cfg.Metrics.Validate(); err != nil {
		return fmt.Errorf("invalid metrics config: %w", err)
	}

	return nil
}
