package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tres-passos/marketplace/internal/users"
)

var (
	usersSearch string
	usersXLSX   string
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage marketplace accounts",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts, optionally filtered and exported to a spreadsheet",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "users")
		if err != nil {
			return err
		}
		defer a.Close() //nolint:errcheck

		list := users.Filter(a.users.List(ctx), usersSearch)

		if usersXLSX != "" {
			f, err := os.Create(usersXLSX)
			if err != nil {
				return eris.Wrap(err, "users: create export file")
			}
			if err := users.ExportXLSX(list, f); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return eris.Wrap(err, "users: close export file")
			}
			zap.L().Info("users exported", zap.String("path", usersXLSX), zap.Int("count", len(list)))
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "INITIALS\tNAME\tEMAIL\tROLE")
		for _, u := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", users.Initials(u.Name, u.Email), u.Name, u.Email, u.Role.Label())
		}
		return w.Flush()
	},
}

func init() {
	usersListCmd.Flags().StringVar(&usersSearch, "search", "", "filter by name, email or role")
	usersListCmd.Flags().StringVar(&usersXLSX, "xlsx", "", "write the listing to this .xlsx file instead of stdout")
	usersCmd.AddCommand(usersListCmd)
	rootCmd.AddCommand(usersCmd)
}
