package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/adscope/internal/config"
	"github.com/felixgeelhaar/adscope/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "adscope",
	Short: "Remote Windows and Active Directory administration",
	Long: `adscope runs administrative operations against fleets of managed Windows
hosts: it collects Group Policy result reports from many machines at once and
investigates account lockouts by correlating domain-controller lockout events
with the logon failures that caused them on the originating machines.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

var (
	flagLogLevel  string
	flagLogFormat string
	flagConfig    string

	appConfig *config.Config
	logger    *log.Logger
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default is $HOME/.adscope/config.yaml)")
}

// setup wires logging and configuration before any subcommand runs.
func setup(cmd *cobra.Command, args []string) error {
	logger = log.New(log.Config{
		Level:  log.ParseLevel(flagLogLevel),
		Format: log.ParseFormat(flagLogFormat),
		Output: log.OutputStderr(),
	})
	log.SetDefaultLogger(logger)

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	appConfig = cfg
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command under the given context so signal
// cancellation reaches every in-flight remote operation.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
