package main

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tres-passos/marketplace/internal/model"
)

var matchFile string

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Rank providers for a quote read from a YAML or JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		quote, err := readQuote(matchFile)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		a, err := newApp(ctx, "match")
		if err != nil {
			return err
		}
		defer a.Close() //nolint:errcheck

		return printJSON(cmd.OutOrStdout(), a.matcher.FindMatchingProviders(ctx, quote))
	},
}

// readQuote loads a quote from path. Files ending in .json are decoded as
// JSON with the API field names, anything else as YAML.
func readQuote(path string) (model.QuoteDetails, error) {
	var q model.QuoteDetails

	data, err := os.ReadFile(path)
	if err != nil {
		return q, eris.Wrap(err, "match: read quote file")
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, &q); err != nil {
			return q, eris.Wrap(err, "match: parse json quote")
		}
	} else if err := yaml.Unmarshal(data, &q); err != nil {
		return q, eris.Wrap(err, "match: parse yaml quote")
	}

	if level, _ := q.Scope().MostSpecific(); level == model.LevelNone {
		return q, eris.New("match: quote needs service_id, sub_service_id or specialty_id")
	}
	return q, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "encode output")
	}
	return nil
}

func init() {
	matchCmd.Flags().StringVarP(&matchFile, "file", "f", "", "quote file (.yaml, .yml or .json)")
	_ = matchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(matchCmd)
}
