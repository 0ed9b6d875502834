package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/corpintel/internal/domain/scenario"
)

var (
	scenariosJSON bool

	scenariosCmd = &cobra.Command{
		Use:   "scenarios",
		Short: "List the analysis scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listScenarios(cmd.OutOrStdout(), scenariosJSON)
		},
	}
)

func init() {
	scenariosCmd.Flags().BoolVar(&scenariosJSON, "json", false, "Print the full scenario rules as JSON")
}

func listScenarios(out io.Writer, asJSON bool) error {
	rules := scenario.All()
	if asJSON {
		data, err := json.MarshalIndent(rules, "", "  ")
		if err != nil {
			return fmt.Errorf("encode scenarios: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	for _, r := range rules {
		fmt.Fprintf(out, "%-13s %s\n", r.ID, r.DisplayName)
		fmt.Fprintf(out, "              %s\n", r.Description)
		fmt.Fprintf(out, "              keywords: %s\n", strings.Join(r.DetectKeywords, ", "))
	}
	return nil
}
