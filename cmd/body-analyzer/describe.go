package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var describeCmd = &cobra.Command{
	Use:   "describe <path|url>",
	Short: "Ask the vision backend to describe a photo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newAnalyzer(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}

		text, err := a.Describe(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if text == "" {
			return fmt.Errorf("vision backend returned an empty description")
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	},
}
