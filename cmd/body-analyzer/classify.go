package main

import (
	"github.com/spf13/cobra"

	"github.com/menta2k/body-analyzer/pkg/recommend"
)

var (
	classifyR1   float64
	classifyR2   float64
	classifyJSON bool
)

func init() {
	classifyCmd.Flags().Float64Var(&classifyR1, "r1", 0, "waist to shoulder ratio")
	classifyCmd.Flags().Float64Var(&classifyR2, "r2", 0, "hip to shoulder ratio")
	classifyCmd.Flags().BoolVar(&classifyJSON, "json", false, "print the result as JSON")
	_ = classifyCmd.MarkFlagRequired("r1")
	_ = classifyCmd.MarkFlagRequired("r2")
}

var classifyCmd = &cobra.Command{
	Use:   "classify --r1 <ratio> --r2 <ratio>",
	Short: "Classify a body type from two ratios",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cls, err := newClassifier(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}

		res := cls.Classify(cmd.Context(), classifyR1, classifyR2)
		out := cmd.OutOrStdout()
		if classifyJSON {
			return writeJSON(out, res)
		}

		printClassification(out, res)
		bt := res.BodyType.String()
		printTips(out, bt)
		printRecommendations(out, recommend.Recommend(bt))
		return nil
	},
}
