package session

import (
	"fmt"
	"github.com/ValentinKolb/dODM/cmd/util"
	"github.com/ValentinKolb/dODM/lib/sessions"
	"github.com/spf13/cobra"
)

var (
	privilege int

	// SessionCommands represents the session command group
	SessionCommands = &cobra.Command{
		Use:                "session",
		Short:              "Register users and manage login tokens",
		PersistentPreRunE:  util.OpenApp,
		PersistentPostRunE: util.CloseApp,
	}

	registerCmd = &cobra.Command{
		Use:   "register [username] [password] [full name]",
		Short: "Registers a new user",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []sessions.RegisterOption
			if privilege > 0 {
				opts = append(opts, sessions.WithPrivilege(privilege))
			}
			created, err := util.App.Directory.Register(cmd.Context(), args[0], args[1], args[2], opts...)
			if err != nil {
				return err
			}
			if !created {
				return fmt.Errorf("user %s already exists", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), "registered successfully")
			return nil
		},
	}
	loginCmd = &cobra.Command{
		Use:   "login [username] [password]",
		Short: "Logs a user in and prints the session token",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := util.App.Directory.Login(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "token=%s, privileges=%d\n", s.Token, s.Privileges)
			return nil
		},
	}
	tokenCmd = &cobra.Command{
		Use:   "token [token]",
		Short: "Checks a session token and prints the privilege level of its user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := util.App.Directory.LoginByToken(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "privileges=%d\n", level)
			return nil
		},
	}
	logoutCmd = &cobra.Command{
		Use:   "logout [token]",
		Short: "Invalidates a session token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := util.App.Directory.Logout(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged out successfully")
			return nil
		},
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add backend flags to the session command
	util.SetupConfigFlags(SessionCommands)

	// Add subcommands
	SessionCommands.AddCommand(registerCmd)
	SessionCommands.AddCommand(loginCmd)
	SessionCommands.AddCommand(tokenCmd)
	SessionCommands.AddCommand(logoutCmd)

	// Add flags specific to register
	registerCmd.Flags().IntVar(&privilege, "privilege", 0, util.WrapString(fmt.Sprintf("Privilege level of the new user (0 = random between 1 and %d)", sessions.MaxPrivilege)))
}
