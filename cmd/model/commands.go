package model

import (
	"fmt"
	"github.com/ValentinKolb/dODM/cmd/util"
	"github.com/spf13/cobra"
)

var (
	kindsCmd = &cobra.Command{
		Use:   "kinds",
		Short: "Lists the registered kinds and their attributes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range util.App.KindNames() {
				entry := util.App.Kinds[name].Schema()
				fmt.Fprintf(cmd.OutOrStdout(), "%s required=%v admissible=%v\n", name, entry.Required(), entry.Admissible())
			}
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [kind] [id]",
		Short: "Reads a model by id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := util.App.Kind(args[0])
			if err != nil {
				return err
			}
			m, found, err := kind.FindByID(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("%s %s not found", args[0], args[1])
			}
			return util.PrintJSON(cmd, m.Attributes())
		},
	}
	createCmd = &cobra.Command{
		Use:   "create [kind] [name=value]...",
		Short: "Creates and saves a new model",
		Long:  "Creates and saves a new model. Values that are valid JSON keep their type (e.g. count=3, tags='[\"a\"]'), everything else is stored as a string.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := util.App.Kind(args[0])
			if err != nil {
				return err
			}
			attrs, err := util.ParseAttributes(args[1:])
			if err != nil {
				return err
			}
			m, err := kind.New(cmd.Context(), attrs)
			if err != nil {
				return err
			}
			if err := m.Save(cmd.Context()); err != nil {
				return err
			}
			return util.PrintJSON(cmd, m.Attributes())
		},
	}
	setCmd = &cobra.Command{
		Use:   "set [kind] [id] [name=value]...",
		Short: "Updates attributes of a model",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := util.App.Kind(args[0])
			if err != nil {
				return err
			}
			attrs, err := util.ParseAttributes(args[2:])
			if err != nil {
				return err
			}
			m, found, err := kind.FindByID(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("%s %s not found", args[0], args[1])
			}
			for name, value := range attrs {
				if err := m.Set(cmd.Context(), name, value); err != nil {
					return err
				}
			}
			if err := m.Save(cmd.Context()); err != nil {
				return err
			}
			return util.PrintJSON(cmd, m.Attributes())
		},
	}
	deleteCmd = &cobra.Command{
		Use:   "delete [kind] [id]",
		Short: "Deletes a model from the cache and the document store",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := util.App.Kind(args[0])
			if err != nil {
				return err
			}
			m, found, err := kind.FindByID(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("%s %s not found", args[0], args[1])
			}
			if err := m.Delete(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted successfully")
			return nil
		},
	}
	findCmd = &cobra.Command{
		Use:   "find [kind] [name=value]...",
		Short: "Lists the models matching all given attribute values",
		Long:  "Lists the models matching all given attribute values. The query goes to the document store directly; cached snapshots are neither read nor refreshed.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := util.App.Kind(args[0])
			if err != nil {
				return err
			}
			filter, err := util.ParseAttributes(args[1:])
			if err != nil {
				return err
			}
			cursor, err := kind.Find(cmd.Context(), filter)
			if err != nil {
				return err
			}
			n := 0
			for m, err := range cursor.All(cmd.Context()) {
				if err != nil {
					return err
				}
				if err := util.PrintJSON(cmd, m.Attributes()); err != nil {
					return err
				}
				n++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d %s found\n", n, args[0])
			return nil
		},
	}
	dropCmd = &cobra.Command{
		Use:   "drop [kind]",
		Short: "Deletes all models of a kind from the document store",
		Long:  "Deletes all models of a kind from the document store. Cached snapshots are left to expire.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := util.App.Kind(args[0])
			if err != nil {
				return err
			}
			n, err := kind.DeleteAll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d %s deleted\n", n, args[0])
			return nil
		},
	}
)
