// Package cli implements the bulkctl command line.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/ignite/mailbox-bulkops/internal/app"
)

// TokenEnv is read when --token is not given.
const TokenEnv = "GMAIL_ACCESS_TOKEN"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	token      string
	user       string
	logLevel   string
	human      bool
}

// NewRootCmd creates the root command for bulkctl.
func NewRootCmd(version string) *cobra.Command {
	return newRootCmd(version, app.Options{})
}

// newRootCmd lets tests replace the provider client and engine sleeps.
func newRootCmd(version string, opts app.Options) *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:           "bulkctl",
		Short:         "Bulk delete and relabel mailbox messages",
		Long:          "bulkctl runs large Gmail delete and label modification jobs through the chunked, retrying batch engine.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: `  # Permanently delete the messages listed in ids.txt
  bulkctl delete --ids-file ids.txt

  # Archive and mark read, ids from stdin, fail on any partial failure
  cat ids.txt | bulkctl modify --ids-file - --remove INBOX --remove UNREAD --strict`,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "path to config.yaml (defaults apply when empty)")
	pf.StringVar(&flags.token, "token", "", "Gmail OAuth access token (default $"+TokenEnv+")")
	pf.StringVar(&flags.user, "user", "me", "mailbox to operate on")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level override: debug, info, warn, error")
	pf.BoolVar(&flags.human, "human", false, "human-readable logs on stderr")

	cmd.AddCommand(newDeleteCmd(flags, opts), newModifyCmd(flags, opts))
	return cmd
}
