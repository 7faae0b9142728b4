package main

import (
	"encoding/json"
	"fmt"

	"github.com/bsaid97/go-attribute-transfer/handlers"
	"github.com/bsaid97/go-attribute-transfer/layers"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check <layer-file>",
	Short: "Report missing and invalid geometries of a layer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		layer, err := layers.Open(args[0], layers.ReadOptions{Workers: cfg.ParseWorkers, ReadOnly: true})
		if err != nil {
			return err
		}
		issues := handlers.CheckGeometry(layer)
		fmt.Fprintf(cmd.ErrOrStderr(), "Found %d geometry issues in %d features\n", len(issues), layer.Len())

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(issues)
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
