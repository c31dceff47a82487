/*
Package options contains a set of common CLI options and helper functions to use them.
*/
package options

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cryptogogue/volwal/pkg/account"
	"github.com/cryptogogue/volwal/pkg/config"
	"github.com/cryptogogue/volwal/pkg/storage"
	"github.com/cryptogogue/volwal/pkg/wallet"
	"github.com/urfave/cli"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultTimeout is the default timeout used for node requests.
const DefaultTimeout = 10 * time.Second

// ConfigFile is a flag for commands that use wallet configuration.
var ConfigFile = cli.StringFlag{
	Name:  "config-file",
	Usage: "path to the wallet configuration file (" + config.DefaultConfigPath + " is used if present)",
}

// Debug is a flag for commands that allow debug logging.
var Debug = cli.BoolFlag{
	Name:  "debug, d",
	Usage: "enable debug logging (overrides configuration)",
}

// Timeout is a flag for commands querying nodes.
var Timeout = cli.DurationFlag{
	Name:  "timeout, s",
	Value: DefaultTimeout,
	Usage: "Timeout for the operation",
}

// Common is a set of flags every wallet command accepts.
var Common = []cli.Flag{ConfigFile, Debug}

// Account is a set of flags selecting a wallet account.
var Account = []cli.Flag{
	cli.StringFlag{
		Name:  "network, n",
		Usage: "network name",
	},
	cli.StringFlag{
		Name:  "account, a",
		Usage: "account name",
	},
}

var (
	errNoNetwork = errors.New("no network specified, use option '--network' or '-n'")
	errNoAccount = errors.New("no account specified, use option '--account' or '-a'")
)

// GetTimeoutContext returns a context.Context with the default or a user-set timeout.
func GetTimeoutContext(ctx *cli.Context) (context.Context, func()) {
	dur := ctx.Duration("timeout")
	if dur == 0 {
		dur = DefaultTimeout
	}
	return context.WithTimeout(context.Background(), dur)
}

// GetConfigFromContext loads configuration from the file given in the
// context, from the default path if it exists or returns defaults.
func GetConfigFromContext(ctx *cli.Context) (config.Config, error) {
	configFile := ctx.String("config-file")
	if len(configFile) != 0 {
		return config.LoadFile(configFile)
	}
	if _, err := os.Stat(config.DefaultConfigPath); err == nil {
		return config.LoadFile(config.DefaultConfigPath)
	}
	return config.Default(), nil
}

// GetAccountFromContext returns network and account names given in the
// context.
func GetAccountFromContext(ctx *cli.Context) (string, string, error) {
	network := ctx.String("network")
	if len(network) == 0 {
		return "", "", errNoNetwork
	}
	acc := ctx.String("account")
	if len(acc) == 0 {
		return "", "", errNoAccount
	}
	return network, acc, nil
}

// HandleLoggingParams reads logging parameters.
// If a user selected debug level -- function enables it.
// If logPath is configured -- function creates a dir and a file for logging.
func HandleLoggingParams(debug bool, cfg config.ApplicationConfiguration) (*zap.Logger, *zap.AtomicLevel, error) {
	var (
		level = zapcore.WarnLevel
		err   error
	)
	if len(cfg.LogLevel) > 0 {
		level, err = zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, nil, fmt.Errorf("log setting: %w", err)
		}
	}
	if debug {
		level = zapcore.DebugLevel
	}

	cc := zap.NewProductionConfig()
	cc.DisableCaller = true
	cc.DisableStacktrace = true
	cc.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	cc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cc.Encoding = "console"
	cc.Level = zap.NewAtomicLevelAt(level)
	cc.Sampling = nil
	cc.OutputPaths = []string{"stderr"}

	if logPath := cfg.LogPath; logPath != "" {
		if err := makeDirForFile(logPath, "logger"); err != nil {
			return nil, nil, err
		}
		cc.OutputPaths = []string{logPath}
	}

	log, err := cc.Build()
	return log, &cc.Level, err
}

func makeDirForFile(filePath string, creator string) error {
	err := os.MkdirAll(filepath.Dir(filePath), os.ModePerm)
	if err != nil {
		return fmt.Errorf("could not create dir for %s: %w", creator, err)
	}
	return nil
}

// Env is everything a command needs to work with the wallet.
type Env struct {
	Config config.Config
	Log    *zap.Logger
	Store  storage.Store
	Wallet *wallet.AppState
}

// Close releases the wallet store and flushes logs.
func (e *Env) Close() {
	_ = e.Store.Close()
	_ = e.Log.Sync()
}

// NodeClient returns an account client configured from Node settings.
func (e *Env) NodeClient() *account.Client {
	return account.NewClient(account.Options{
		Timeout:   e.Config.ApplicationConfiguration.Node.Timeout,
		CacheSize: e.Config.ApplicationConfiguration.Node.CacheSize,
	}, e.Log)
}

// GetEnv loads the configuration, sets up logging and opens the wallet.
func GetEnv(ctx *cli.Context) (*Env, cli.ExitCoder) {
	cfg, err := GetConfigFromContext(ctx)
	if err != nil {
		return nil, cli.NewExitError(err, 1)
	}
	log, _, err := HandleLoggingParams(ctx.Bool("debug"), cfg.ApplicationConfiguration)
	if err != nil {
		return nil, cli.NewExitError(err, 1)
	}
	store, err := storage.NewStore(cfg.ApplicationConfiguration.DBConfiguration)
	if err != nil {
		return nil, cli.NewExitError(fmt.Errorf("failed to open wallet storage: %w", err), 1)
	}
	w, err := wallet.New(storage.NewPersister(store), cfg.ApplicationConfiguration.Wallet, log)
	if err != nil {
		_ = store.Close()
		return nil, cli.NewExitError(fmt.Errorf("failed to load wallet: %w", err), 1)
	}
	return &Env{
		Config: cfg,
		Log:    log,
		Store:  store,
		Wallet: w,
	}, nil
}
