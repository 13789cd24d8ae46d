package cache

import (
	"fmt"
	"github.com/ValentinKolb/dODM/cmd/util"
	"github.com/spf13/cobra"
	"time"
)

var (
	// CacheCommands represents the cache command group
	CacheCommands = &cobra.Command{
		Use:                "cache",
		Short:              "Inspect the cache",
		PersistentPreRunE:  util.OpenApp,
		PersistentPostRunE: util.CloseApp,
	}

	keysCmd = &cobra.Command{
		Use:   "keys [pattern]",
		Short: "Lists the keys matching a glob pattern and their remaining lifetime",
		Long:  "Lists the keys matching a glob pattern (e.g. 'cache:widget:*', 'sessions:user:*') and their remaining lifetime.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := util.App.Cache.Keys(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, key := range keys {
				ttl, ok, err := util.App.Cache.TTL(cmd.Context(), key)
				if err != nil {
					return err
				}
				switch {
				case !ok:
					// expired between Keys and TTL
					continue
				case ttl <= 0:
					fmt.Fprintf(cmd.OutOrStdout(), "%s (persistent)\n", key)
				default:
					fmt.Fprintf(cmd.OutOrStdout(), "%s (expires in %s)\n", key, ttl.Round(time.Second))
				}
			}
			return nil
		},
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add backend flags to the cache command
	util.SetupConfigFlags(CacheCommands)

	// Add subcommands
	CacheCommands.AddCommand(keysCmd)
}
