package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var rootCmd = &cobra.Command{
	Use:   "mflow",
	Short: "mflow - meeting notification engine",
	Long: `mflow notifies people about scheduled meetings.

It groups open meeting tasks by person so that anyone invited to several
meetings at once gets a single combined notice, picks the right message
template for each person, renders it, and hands it to the local automation
bridge for delivery over WeChat or SMS.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mflow %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	registerCompletions()
	return rootCmd.Execute()
}
