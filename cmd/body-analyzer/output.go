package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	bodyanalyzer "github.com/menta2k/body-analyzer"
	"github.com/menta2k/body-analyzer/pkg/classifier"
	"github.com/menta2k/body-analyzer/pkg/recommend"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	bodyColor   = color.New(color.FgMagenta, color.Bold)
	tierColor   = color.New(color.FgYellow)
	dimColor    = color.New(color.Faint)
	okColor     = color.New(color.FgGreen)
	errColor    = color.New(color.FgRed, color.Bold)
	warnColor   = color.New(color.FgYellow, color.Bold)

	titleCaser = cases.Title(language.English)
)

// displayName turns "inverted_triangle" into "Inverted Triangle"
func displayName(s string) string {
	return titleCaser.String(strings.ReplaceAll(s, "_", " "))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printClassification(w io.Writer, res classifier.Result) {
	bodyColor.Fprintf(w, "%s", displayName(res.BodyType.String()))
	fmt.Fprintf(w, "  %.0f%% ", res.Confidence*100)
	tierColor.Fprintf(w, "[%s]\n", res.Tier)
	dimColor.Fprintf(w, "%s\n", classifier.Description(res.BodyType.String()))
}

func printTips(w io.Writer, bodyType string) {
	headerColor.Fprintln(w, "\nStyle tips")
	for _, tip := range classifier.StyleTips(bodyType) {
		fmt.Fprintf(w, "  • %s\n", tip)
	}
}

func printRecommendations(w io.Writer, recs []recommend.DressRecommendation) {
	headerColor.Fprintln(w, "\nRecommended dresses")
	if recommend.IsDefault(recs) {
		warnColor.Fprintln(w, "  (generic suggestions, body type not recognised)")
	}
	for _, r := range recs {
		okColor.Fprintf(w, "  %s", r.Title)
		dimColor.Fprintf(w, " (%s)\n", r.Style)
		fmt.Fprintf(w, "    %s\n", r.Reason)
	}
}

func printAdvice(w io.Writer, bodyType string) {
	a := recommend.Advice(bodyType)
	c := recommend.Colors(bodyType)

	headerColor.Fprintln(w, "\nWhat works")
	fmt.Fprintf(w, "  %s\n", strings.Join(a.WhatWorks, ", "))
	headerColor.Fprintln(w, "What to avoid")
	fmt.Fprintf(w, "  %s\n", strings.Join(a.WhatToAvoid, ", "))
	headerColor.Fprintln(w, "Colours")
	fmt.Fprintf(w, "  %s\n", strings.Join(c.BestColors, ", "))
	headerColor.Fprintln(w, "Patterns")
	fmt.Fprintf(w, "  %s\n", strings.Join(c.Patterns, ", "))
}

func printAnalysis(w io.Writer, res *bodyanalyzer.AnalysisResult) {
	headerColor.Fprintf(w, "%s", res.Source)
	dimColor.Fprintf(w, "  %dx%d  id=%s\n", res.Width, res.Height, res.ID)
	if res.LandmarkSource == bodyanalyzer.SourceFallback {
		warnColor.Fprintln(w, "  landmarks estimated, no person detected by the vision model")
	} else if res.Description != "" {
		dimColor.Fprintf(w, "  %s\n", res.Description)
	}
	fmt.Fprintf(w, "  waist/shoulder=%.3f  hip/shoulder=%.3f\n", res.Metrics.R1WaistShoulder, res.Metrics.R2HipShoulder)
	fmt.Fprint(w, "  ")
	printClassification(w, res.Classification)
}
