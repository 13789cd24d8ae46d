package cmd

import (
	"fmt"
	"github.com/ValentinKolb/dODM/cmd/cache"
	"github.com/ValentinKolb/dODM/cmd/helpdesk"
	"github.com/ValentinKolb/dODM/cmd/model"
	"github.com/ValentinKolb/dODM/cmd/session"
	"github.com/spf13/cobra"
	"os"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dodm",
		Short: "document models over MongoDB with a Redis cache",
		Long: fmt.Sprintf(`dODM (v%s)

Schema constrained document models stored in MongoDB and mirrored into a
Redis cache, with geocoded location fields, login sessions and a
prioritized helpdesk queue sharing the same Redis instance.

The configuration can be set via command line flags or environment
variables. The format of the environment variables is DODM_<flag>
(e.g. DODM_MONGO_URI=mongodb://localhost:27017).`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dODM",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dODM v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(model.ModelCommands)
	RootCmd.AddCommand(session.SessionCommands)
	RootCmd.AddCommand(helpdesk.HelpdeskCommands)
	RootCmd.AddCommand(cache.CacheCommands)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
