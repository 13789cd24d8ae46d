package model

import (
	"github.com/ValentinKolb/dODM/cmd/util"
	"github.com/spf13/cobra"
)

// ModelCommands represents the model command group
var ModelCommands = &cobra.Command{
	Use:                "model",
	Short:              "Create, read, update and delete models",
	Long:               "Operate on the kinds declared in the schema file. Reads go through the cache, writes go to the document store first and then refresh the cached snapshot.",
	PersistentPreRunE:  util.OpenApp,
	PersistentPostRunE: util.CloseApp,
}

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add backend flags to the model command
	util.SetupConfigFlags(ModelCommands)

	// Add subcommands
	ModelCommands.AddCommand(kindsCmd)
	ModelCommands.AddCommand(getCmd)
	ModelCommands.AddCommand(createCmd)
	ModelCommands.AddCommand(setCmd)
	ModelCommands.AddCommand(deleteCmd)
	ModelCommands.AddCommand(findCmd)
	ModelCommands.AddCommand(dropCmd)
}
