package main

import (
	"github.com/spf13/cobra"

	"github.com/menta2k/body-analyzer/pkg/recommend"
)

var recommendJSON bool

func init() {
	recommendCmd.Flags().BoolVar(&recommendJSON, "json", false, "print recommendations as JSON")
}

var recommendCmd = &cobra.Command{
	Use:   "recommend <body-type>",
	Short: "List dress recommendations for a body type",
	Long: `List dress recommendations for one of hourglass, pear, apple, rectangle or
inverted_triangle. Unknown body types get a generic list.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		recs := recommend.Recommend(args[0])
		out := cmd.OutOrStdout()
		if recommendJSON {
			return writeJSON(out, recs)
		}

		headerColor.Fprintln(out, displayName(args[0]))
		printRecommendations(out, recs)
		if !recommend.IsDefault(recs) {
			printAdvice(out, args[0])
		}
		return nil
	},
}
