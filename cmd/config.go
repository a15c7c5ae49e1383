package cmd

import (
	"fmt"
	"time"

	"github.com/khanhnv2901/sitesniffer/internal/inspector"
	consts "github.com/khanhnv2901/sitesniffer/internal/shared/constants"
	sherrors "github.com/khanhnv2901/sitesniffer/internal/shared/errors"
	"github.com/likexian/whois"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	defaultTimeoutSeconds      = int(consts.DefaultTimeout / time.Second)
	defaultWhoisTimeoutSeconds = int(consts.DefaultWhoisTimeout / time.Second)
	defaultServeAddr           = "127.0.0.1:8080"
)

// CLIConfig captures runtime configuration shared across commands.
type CLIConfig struct {
	Defaults DefaultValues
	Whois    WhoisConfig
	Batch    BatchConfig
	Log      LogConfig
	Serve    ServeConfig
}

// DefaultValues are the inspector tunables shared by inspect and serve.
type DefaultValues struct {
	TimeoutSecs  int
	MaxRedirects int
	UserAgent    string
}

// WhoisConfig selects the registries queried for domain_info.
type WhoisConfig struct {
	Servers     []string
	TimeoutSecs int
}

// BatchConfig bounds multi-URL inspections and API jobs.
type BatchConfig struct {
	Concurrency int
	RateLimit   int
	Progress    bool
}

// LogConfig controls the zap logger built in the root command.
type LogConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// ServeConfig holds API server settings that may come from the config file.
type ServeConfig struct {
	Addr      string
	AuthToken string
}

var cliConfig = newCLIConfig()

func newCLIConfig() *CLIConfig {
	return &CLIConfig{
		Defaults: DefaultValues{
			TimeoutSecs:  defaultTimeoutSeconds,
			MaxRedirects: consts.DefaultMaxRedirects,
			UserAgent:    consts.DefaultUserAgent,
		},
		Whois: WhoisConfig{
			TimeoutSecs: defaultWhoisTimeoutSeconds,
		},
		Batch: BatchConfig{
			Concurrency: 4,
			RateLimit:   0,
		},
		Log: LogConfig{
			Level:      "warn",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Serve: ServeConfig{
			Addr: defaultServeAddr,
		},
	}
}

// validate rejects settings no inspection could run with.
func (c *CLIConfig) validate() error {
	switch {
	case c.Defaults.TimeoutSecs <= 0:
		return fmt.Errorf("%w: timeout must be positive, got %d", sherrors.ErrValidation, c.Defaults.TimeoutSecs)
	case c.Defaults.MaxRedirects < 0:
		return fmt.Errorf("%w: max redirects must not be negative, got %d", sherrors.ErrValidation, c.Defaults.MaxRedirects)
	case c.Whois.TimeoutSecs <= 0:
		return fmt.Errorf("%w: whois timeout must be positive, got %d", sherrors.ErrValidation, c.Whois.TimeoutSecs)
	case c.Batch.Concurrency <= 0:
		return fmt.Errorf("%w: concurrency must be positive, got %d", sherrors.ErrValidation, c.Batch.Concurrency)
	case c.Batch.RateLimit < 0:
		return fmt.Errorf("%w: rate limit must not be negative, got %d", sherrors.ErrValidation, c.Batch.RateLimit)
	}
	return nil
}

// inspectorConfig turns the CLI settings into an inspector configuration.
func (c *CLIConfig) inspectorConfig(logger *zap.Logger) inspector.Config {
	return inspector.Config{
		Timeout:      time.Duration(c.Defaults.TimeoutSecs) * time.Second,
		MaxRedirects: inspector.RedirectLimit(c.Defaults.MaxRedirects),
		UserAgent:    c.Defaults.UserAgent,
		WhoisServers: append([]string(nil), c.Whois.Servers...),
		Logger:       logger,
		Whois:        whois.NewClient().SetTimeout(time.Duration(c.Whois.TimeoutSecs) * time.Second),
	}
}

type configOverrides struct {
	TimeoutSecs      *int
	MaxRedirects     *int
	UserAgent        string
	WhoisServers     []string
	WhoisTimeoutSecs *int
	Concurrency      *int
	RateLimit        *int
	Progress         *bool
	LogLevel         string
	LogFile          string
	ServeAddr        string
	AuthToken        string
}

func loadConfigOverrides() configOverrides {
	overrides := configOverrides{}

	if viper.IsSet("defaults.timeout_secs") {
		val := viper.GetInt("defaults.timeout_secs")
		overrides.TimeoutSecs = &val
	}
	if viper.IsSet("defaults.max_redirects") {
		val := viper.GetInt("defaults.max_redirects")
		overrides.MaxRedirects = &val
	}
	if viper.IsSet("defaults.user_agent") {
		overrides.UserAgent = viper.GetString("defaults.user_agent")
	}

	if viper.IsSet("whois.servers") {
		overrides.WhoisServers = viper.GetStringSlice("whois.servers")
	}
	if viper.IsSet("whois.timeout_secs") {
		val := viper.GetInt("whois.timeout_secs")
		overrides.WhoisTimeoutSecs = &val
	}

	if viper.IsSet("batch.concurrency") {
		val := viper.GetInt("batch.concurrency")
		overrides.Concurrency = &val
	}
	if viper.IsSet("batch.rate_limit") {
		val := viper.GetInt("batch.rate_limit")
		overrides.RateLimit = &val
	}
	if viper.IsSet("batch.progress") {
		val := viper.GetBool("batch.progress")
		overrides.Progress = &val
	}

	if viper.IsSet("log.level") {
		overrides.LogLevel = viper.GetString("log.level")
	}
	if viper.IsSet("log.file") {
		overrides.LogFile = viper.GetString("log.file")
	}

	if viper.IsSet("serve.addr") {
		overrides.ServeAddr = viper.GetString("serve.addr")
	}
	if viper.IsSet("serve.auth_token") {
		overrides.AuthToken = viper.GetString("serve.auth_token")
	}

	return overrides
}

// applyConfigDefaults merges config file and environment values into the
// runtime config when the user did not explicitly set the corresponding flag.
// Flag sets are resolved through cmd.Root() so the root command's hooks can
// call it.
func applyConfigDefaults(cmd *cobra.Command) {
	overrides := loadConfigOverrides()
	rootCommand := cmd.Root()
	root := rootCommand.PersistentFlags()
	inspectFlags := subcommandFlags(rootCommand, "inspect")
	serveFlags := subcommandFlags(rootCommand, "serve")

	if overrides.TimeoutSecs != nil {
		applyIntDefault(root, "timeout", *overrides.TimeoutSecs, func(v int) {
			cliConfig.Defaults.TimeoutSecs = v
		})
	}
	if overrides.MaxRedirects != nil {
		applyIntDefault(root, "max-redirects", *overrides.MaxRedirects, func(v int) {
			cliConfig.Defaults.MaxRedirects = v
		})
	}
	if overrides.UserAgent != "" {
		setStringFlagIfUnset(root, "user-agent", overrides.UserAgent)
	}
	if len(overrides.WhoisServers) > 0 {
		flag := root.Lookup("whois-server")
		if flag == nil || !flag.Changed {
			cliConfig.Whois.Servers = overrides.WhoisServers
		}
	}
	if overrides.WhoisTimeoutSecs != nil {
		applyIntDefault(root, "whois-timeout", *overrides.WhoisTimeoutSecs, func(v int) {
			cliConfig.Whois.TimeoutSecs = v
		})
	}
	if overrides.LogLevel != "" {
		setStringFlagIfUnset(root, "log-level", overrides.LogLevel)
	}
	if overrides.LogFile != "" {
		setStringFlagIfUnset(root, "log-file", overrides.LogFile)
	}

	if overrides.Concurrency != nil {
		applyIntDefault(inspectFlags, "concurrency", *overrides.Concurrency, func(v int) {
			cliConfig.Batch.Concurrency = v
		})
	}
	if overrides.RateLimit != nil {
		applyIntDefault(inspectFlags, "rate-limit", *overrides.RateLimit, func(v int) {
			cliConfig.Batch.RateLimit = v
		})
	}
	if overrides.Progress != nil {
		applyBoolDefault(inspectFlags, "progress", *overrides.Progress, func(v bool) {
			cliConfig.Batch.Progress = v
		})
	}

	if overrides.ServeAddr != "" {
		setStringFlagIfUnset(serveFlags, "addr", overrides.ServeAddr)
	}
	if overrides.AuthToken != "" {
		setStringFlagIfUnset(serveFlags, "auth-token", overrides.AuthToken)
	}
}

// subcommandFlags returns the local flags of root's subcommand called name, or
// nil when root has no such subcommand.
func subcommandFlags(root *cobra.Command, name string) *pflag.FlagSet {
	for _, c := range root.Commands() {
		if c.Name() == name {
			return c.Flags()
		}
	}
	return nil
}

func applyIntDefault(flags *pflag.FlagSet, name string, value int, setter func(int)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func applyBoolDefault(flags *pflag.FlagSet, name string, value bool, setter func(bool)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func setStringFlagIfUnset(flags *pflag.FlagSet, name, value string) {
	if flags == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag == nil || flag.Changed {
		return
	}
	_ = flag.Value.Set(value)
}
