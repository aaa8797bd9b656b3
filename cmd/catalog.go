package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/tres-passos/marketplace/internal/model"
)

var (
	catalogScope     model.CatalogScope
	catalogQuestions bool
	catalogItems     bool
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Print the service tree, or the questions and items for a scope",
	RunE: func(cmd *cobra.Command, args []string) error {
		if catalogQuestions && catalogItems {
			return eris.New("catalog: --questions and --items are mutually exclusive")
		}
		wantScope := catalogQuestions || catalogItems
		if level, _ := catalogScope.Lookup(); wantScope && level == model.LevelNone {
			return eris.New("catalog: --service, --sub-service or --specialty is required")
		}

		ctx := cmd.Context()
		a, err := newApp(ctx, "catalog")
		if err != nil {
			return err
		}
		defer a.Close() //nolint:errcheck

		out := cmd.OutOrStdout()
		switch {
		case catalogQuestions:
			return printJSON(out, a.catalog.GetQuestions(ctx, catalogScope))
		case catalogItems:
			return printJSON(out, a.catalog.GetServiceItems(ctx, catalogScope))
		default:
			return printJSON(out, a.catalog.GetAllServices(ctx))
		}
	},
}

func init() {
	f := catalogCmd.Flags()
	f.StringVar(&catalogScope.ServiceID, "service", "", "service id")
	f.StringVar(&catalogScope.SubServiceID, "sub-service", "", "sub-service id")
	f.StringVar(&catalogScope.SpecialtyID, "specialty", "", "specialty id")
	f.BoolVar(&catalogQuestions, "questions", false, "print the questions for the scope")
	f.BoolVar(&catalogItems, "items", false, "print the service items for the scope")
	rootCmd.AddCommand(catalogCmd)
}
