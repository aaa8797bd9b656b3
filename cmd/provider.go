package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var providerCmd = &cobra.Command{
	Use:   "provider <id>",
	Short: "Print a provider's public page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "match")
		if err != nil {
			return err
		}
		defer a.Close() //nolint:errcheck

		details, ok := a.matcher.GetProviderDetails(ctx, args[0])
		if !ok {
			return eris.Errorf("provider %s not found", args[0])
		}
		return printJSON(cmd.OutOrStdout(), details)
	},
}

func init() {
	rootCmd.AddCommand(providerCmd)
}
