package cmd

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// resetCLIState restores the package-level command state before and after a
// test that runs commands or touches configuration.
func resetCLIState(t *testing.T) {
	t.Helper()
	reset := func() {
		viper.Reset()
		*cliConfig = *newCLIConfig()
		inspectOpts = inspectOptions{}
		cfgFile = ""
		logger = zap.NewNop()
		for _, c := range []*cobra.Command{rootCmd, inspectCmd, serveCmd, infoCmd, versionCmd} {
			c.Flags().VisitAll(func(f *pflag.Flag) { f.Changed = false })
			c.PersistentFlags().VisitAll(func(f *pflag.Flag) { f.Changed = false })
		}
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}
	reset()
	t.Cleanup(reset)
}

func disableColor(t *testing.T) {
	t.Helper()
	original := color.NoColor
	color.NoColor = true
	t.Cleanup(func() {
		color.NoColor = original
	})
}

// executeCommand runs the root command with args and returns stdout and
// stderr.
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}
