package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/khanhnv2901/sitesniffer/internal/application/report"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show configuration and available facets",
	Long: `Display sitesniffer configuration information including:
  - Configuration file in use
  - Effective inspection settings
  - Available facets`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configFile := viper.ConfigFileUsed()
		configStatus := "✓ (loaded)"
		if configFile == "" {
			configStatus = "✗ (using defaults)"
			if home, err := os.UserHomeDir(); err == nil {
				configFile = filepath.Join(home, ".sitesniffer.yaml")
			} else {
				configFile = "~/.sitesniffer.yaml"
			}
		}

		whoisServers := "registry auto-discovery"
		if len(cliConfig.Whois.Servers) > 0 {
			whoisServers = strings.Join(cliConfig.Whois.Servers, ", ")
		}
		logFile := "(none)"
		if cliConfig.Log.File != "" {
			logFile = cliConfig.Log.File
		}

		// Get output writer (for testing support)
		out := cmd.OutOrStdout()

		fmt.Fprintln(out, "sitesniffer System Information")
		fmt.Fprintln(out, "==============================")
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Version:           %s\n", Version)
		fmt.Fprintf(out, "Platform:          %s/%s\n", runtime.GOOS, runtime.GOARCH)
		fmt.Fprintf(out, "Configuration:     %s %s\n", configFile, configStatus)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Inspection:")
		fmt.Fprintf(out, "  Timeout:            %ds\n", cliConfig.Defaults.TimeoutSecs)
		fmt.Fprintf(out, "  Max redirects:      %d\n", cliConfig.Defaults.MaxRedirects)
		fmt.Fprintf(out, "  User-Agent:         %s\n", cliConfig.Defaults.UserAgent)
		fmt.Fprintf(out, "  WHOIS servers:      %s\n", whoisServers)
		fmt.Fprintf(out, "  WHOIS timeout:      %ds\n", cliConfig.Whois.TimeoutSecs)
		fmt.Fprintf(out, "  Batch concurrency:  %d\n", cliConfig.Batch.Concurrency)
		fmt.Fprintf(out, "  Batch rate limit:   %d/s\n", cliConfig.Batch.RateLimit)
		fmt.Fprintf(out, "  Log level:          %s\n", cliConfig.Log.Level)
		fmt.Fprintf(out, "  Log file:           %s\n", logFile)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Facets (* = default):")
		defaults := make(map[report.Facet]bool, len(report.DefaultFacets))
		for _, f := range report.DefaultFacets {
			defaults[f] = true
		}
		for _, f := range report.AllFacets {
			marker := " "
			if defaults[f] {
				marker = "*"
			}
			fmt.Fprintf(out, "  %s %s\n", marker, f)
		}
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Environment variables use the %s_ prefix, e.g. %s_DEFAULTS_TIMEOUT_SECS=20\n", envPrefix, envPrefix)

		return nil
	},
}
