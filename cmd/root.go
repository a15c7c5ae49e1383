package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const envPrefix = "SITESNIFFER"

var cfgFile string
var logger = zap.NewNop()

var rootCmd = &cobra.Command{
	Use:   "sitesniffer",
	Short: "Inspect websites: addresses, registration, TLS, timing and page content",
	Long: `sitesniffer reports observable properties of websites: resolved address,
WHOIS registration, HTTP status, TLS certificate, load time and page content
(title, meta description, keywords, links, mobile friendliness, analytics).

Run a one-off inspection with "sitesniffer inspect", or expose the same
inspections over HTTP with "sitesniffer serve".`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initConfig(); err != nil {
			return err
		}
		applyConfigDefaults(cmd)
		if err := cliConfig.validate(); err != nil {
			return err
		}

		l, err := newLogger(cliConfig.Log, zapcore.Lock(os.Stderr))
		if err != nil {
			return err
		}
		logger = l
		logger.Debug("configuration loaded",
			zap.String("config_file", viper.ConfigFileUsed()),
			zap.Int("timeout_secs", cliConfig.Defaults.TimeoutSecs),
			zap.Int("max_redirects", cliConfig.Defaults.MaxRedirects),
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// initConfig reads $HOME/.sitesniffer.yaml (or --config) and SITESNIFFER_*
// environment variables. A missing default config file is not an error.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".sitesniffer")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, formatCLIError(err))
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.sitesniffer.yaml)")
	flags.IntVar(&cliConfig.Defaults.TimeoutSecs, "timeout", cliConfig.Defaults.TimeoutSecs, "Per-check timeout in seconds")
	flags.IntVar(&cliConfig.Defaults.MaxRedirects, "max-redirects", cliConfig.Defaults.MaxRedirects, "Redirects followed before giving up (0 = none)")
	flags.StringVar(&cliConfig.Defaults.UserAgent, "user-agent", cliConfig.Defaults.UserAgent, "User-Agent sent with page requests")
	flags.StringSliceVar(&cliConfig.Whois.Servers, "whois-server", cliConfig.Whois.Servers, "WHOIS servers to query in order (default: registry auto-discovery)")
	flags.IntVar(&cliConfig.Whois.TimeoutSecs, "whois-timeout", cliConfig.Whois.TimeoutSecs, "Timeout for one WHOIS exchange in seconds")
	flags.StringVar(&cliConfig.Log.Level, "log-level", cliConfig.Log.Level, "Log level (debug, info, warn, error)")
	flags.StringVar(&cliConfig.Log.File, "log-file", cliConfig.Log.File, "Also write JSON logs to this file (rotated)")

	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(versionCmd)
}
