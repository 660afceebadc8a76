package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	bodyanalyzer "github.com/menta2k/body-analyzer"
	"github.com/menta2k/body-analyzer/internal/utils"
)

var (
	analyzeOut         string
	analyzeDebug       bool
	analyzeConcurrency int
	analyzeJSON        bool
	analyzeNoFallback  bool
)

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeOut, "out", "o", "", "output directory (default from config)")
	analyzeCmd.Flags().BoolVar(&analyzeDebug, "debug", false, "write a landmark overlay next to each result")
	analyzeCmd.Flags().IntVarP(&analyzeConcurrency, "concurrency", "j", 0, "images analysed in parallel (default from config)")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print results as JSON instead of a summary")
	analyzeCmd.Flags().BoolVar(&analyzeNoFallback, "no-fallback", false, "fail instead of estimating landmarks")
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <path|url|dir>",
	Short: "Analyze photos and recommend dresses",
	Long: `Analyze a photo (file path or http/https URL) or every image in a directory.
For each image <name>_analysis.json is written to the output directory.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if analyzeOut != "" {
			cfg.Output.OutputDir = analyzeOut
		}
		if analyzeConcurrency > 0 {
			cfg.Output.Concurrency = analyzeConcurrency
		}
		if analyzeDebug {
			cfg.Output.DebugOverlay = true
		}
		if analyzeNoFallback {
			cfg.Pose.Fallback = false
		}

		a, err := newAnalyzer(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		if err := utils.EnsureDir(cfg.Output.OutputDir); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		inputs, err := collectInputs(args[0])
		if err != nil {
			return err
		}
		if len(inputs) == 0 {
			return fmt.Errorf("no images found in %s", args[0])
		}

		return runBatch(cmd, a, inputs)
	},
}

func collectInputs(src string) ([]string, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return []string{src}, nil
	}
	if utils.DirExists(src) {
		return utils.ListImageFiles(src)
	}
	if _, err := os.Stat(src); err != nil {
		return nil, err
	}
	return []string{src}, nil
}

// runBatch analyses inputs with bounded concurrency. A failing image is
// reported and counted but does not stop the others.
func runBatch(cmd *cobra.Command, a *bodyanalyzer.Analyzer, inputs []string) error {
	out := cmd.OutOrStdout()
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(cfg.Output.Concurrency)

	var (
		mu      sync.Mutex
		failed  int
		results = make([]*bodyanalyzer.AnalysisResult, len(inputs))
	)

	for i, in := range inputs {
		g.Go(func() error {
			res, err := analyzeOne(ctx, a, in)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				errColor.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", in, err)
				return nil
			}
			results[i] = res
			if !analyzeJSON {
				printAnalysis(out, res)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if analyzeJSON {
		done := results[:0]
		for _, r := range results {
			if r != nil {
				done = append(done, r)
			}
		}
		if err := writeJSON(out, done); err != nil {
			return err
		}
	}

	if len(inputs) == 1 && failed == 0 && !analyzeJSON {
		bt := results[0].Classification.BodyType.String()
		printTips(out, bt)
		printRecommendations(out, results[0].Recommendations)
	}

	logger.Info("batch complete", zap.Int("images", len(inputs)), zap.Int("failed", failed))
	if failed > 0 {
		return fmt.Errorf("%d of %d images failed", failed, len(inputs))
	}
	return nil
}

func analyzeOne(ctx context.Context, a *bodyanalyzer.Analyzer, in string) (*bodyanalyzer.AnalysisResult, error) {
	img, err := a.Processor().LoadImageSmart(in)
	if err != nil {
		return nil, fmt.Errorf("failed to load image: %w", err)
	}
	res, err := a.Analyze(ctx, img)
	if err != nil {
		return nil, err
	}
	res.Source = in

	name := outputBase(in)
	jsonPath := utils.GenerateOutputFilename(name, cfg.Output.OutputDir, cfg.Output.Suffix, "json")
	f, err := os.Create(jsonPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := writeJSON(f, res); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", jsonPath, err)
	}
	logger.Debug("wrote result", zap.String("path", jsonPath))

	if cfg.Output.DebugOverlay {
		format := strings.ToLower(cfg.Output.OverlayFormat)
		dbgPath := utils.GenerateOutputFilename(name, cfg.Output.OutputDir, "_landmarks", format)
		overlay := a.DebugOverlay(img, res)
		if err := a.Processor().SaveImage(overlay, dbgPath, format, cfg.Output.Quality, false); err != nil {
			logger.Warn("debug overlay save failed", zap.String("path", dbgPath), zap.Error(err))
		} else {
			logger.Debug("wrote overlay", zap.String("path", dbgPath))
		}
	}
	return res, nil
}

// outputBase strips a URL down to its last path element
func outputBase(in string) string {
	if strings.HasPrefix(in, "http://") || strings.HasPrefix(in, "https://") {
		in = strings.TrimRight(strings.SplitN(in, "?", 2)[0], "/")
		if i := strings.LastIndex(in, "/"); i >= 0 {
			in = in[i+1:]
		}
		if in == "" {
			in = "remote"
		}
	}
	return in
}
