package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/adscope/internal/correlate"
	"github.com/felixgeelhaar/adscope/internal/event"
	"github.com/felixgeelhaar/adscope/internal/remote"
)

var lockoutCmd = &cobra.Command{
	Use:   "lockout [ACCOUNT]",
	Short: "Investigate account lockouts",
	Long: `Investigate account lockouts by reading lockout events from a primary event
source (typically the domain controller holding the PDC emulator role), then
querying each lockout's originating machine for the logon failures that
preceded it and pairing every lockout with the nearest one for the same
account.

With an ACCOUNT argument the investigation is narrowed to that account; the
name is resolved to its security identifier first so results never depend on
display names.`,
	Example: `  adscope lockout --primary dc01
  adscope lockout jdoe --primary dc01 --since 24h
  adscope lockout --primary dc01 --since 2026-05-01 --until 2026-05-02`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLockout,
}

var (
	lockoutPrimary    string
	lockoutSince      string
	lockoutUntil      string
	lockoutCredential string
)

func init() {
	lockoutCmd.Flags().StringVar(&lockoutPrimary, "primary", "", "event-source host to read lockout events from")
	lockoutCmd.Flags().StringVar(&lockoutSince, "since", "48h", "window start: duration ago or timestamp")
	lockoutCmd.Flags().StringVar(&lockoutUntil, "until", "", "window end: duration ago or timestamp (default now)")
	lockoutCmd.Flags().StringVar(&lockoutCredential, "credential", "", "alternate credential as USER:SECRET")
	_ = lockoutCmd.MarkFlagRequired("primary")

	rootCmd.AddCommand(lockoutCmd)
}

func runLockout(cmd *cobra.Command, args []string) error {
	subject := ""
	if len(args) == 1 {
		subject = args[0]
	}

	cred, err := parseCredential(lockoutCredential)
	if err != nil {
		return err
	}

	now := time.Now()
	since, err := parseTimeFlag(lockoutSince, now)
	if err != nil {
		return err
	}
	until, err := parseTimeFlag(lockoutUntil, now)
	if err != nil {
		return err
	}

	transport := remote.NewAgentTransport(appConfig.Agent.Scheme, appConfig.Agent.Port)
	prober := remote.NewProber(transport, appConfig.Probe.Attempts, logger)
	source := event.NewAgentSource(transport, logger)
	resolver := event.NewAgentResolver(transport, lockoutPrimary, cred)

	correlator := correlate.New(source, resolver, prober, logger)
	results, err := correlator.Run(cmd.Context(), correlate.Options{
		PrimaryHost: lockoutPrimary,
		Credential:  cred,
		Subject:     subject,
		Window:      event.Window{Since: since, Until: until},
	})
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "no lockout events on %s in the given window\n", lockoutPrimary)
		return nil
	}

	for _, res := range results {
		printLockout(cmd, res)
	}
	return nil
}

func printLockout(cmd *cobra.Command, res correlate.Result) {
	primary := res.Primary
	fmt.Fprintf(cmd.OutOrStdout(), "%s  %s locked out (origin %s)\n",
		primary.Time.Format(time.RFC3339),
		primary.Field(event.FieldSubjectName),
		primary.Field(event.FieldCallerComputer))

	if res.Enriched() {
		fmt.Fprintf(cmd.OutOrStdout(), "    caused by logon failure at %s: %s\n",
			res.Secondary.Time.Format(time.RFC3339), res.Reason)
		return
	}

	// A miss is a diagnostic, not a failure of the investigation.
	fmt.Fprintf(cmd.ErrOrStderr(), "    no matching logon failure: %s\n", res.MissDetail)
}
