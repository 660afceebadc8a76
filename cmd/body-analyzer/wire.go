package main

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	bodyanalyzer "github.com/menta2k/body-analyzer"
	"github.com/menta2k/body-analyzer/internal/config"
	"github.com/menta2k/body-analyzer/pkg/cache"
	"github.com/menta2k/body-analyzer/pkg/classifier"
	"github.com/menta2k/body-analyzer/pkg/client"
	"github.com/menta2k/body-analyzer/pkg/llamacpp"
	"github.com/menta2k/body-analyzer/pkg/ollama"
	"github.com/menta2k/body-analyzer/pkg/pose"
	"github.com/menta2k/body-analyzer/pkg/types"
)

func newAssetSource(m config.ModelsConfig) (classifier.AssetSource, error) {
	if strings.HasPrefix(m.Source, "http://") || strings.HasPrefix(m.Source, "https://") {
		return classifier.NewHTTPSource(m.Source, classifier.WithRetries(m.Retries, m.RetryBackoff))
	}
	return classifier.NewDirSource(m.Source), nil
}

func newClassifier(ctx context.Context, c *config.Config, logger *zap.Logger) (*classifier.Classifier, error) {
	src, err := newAssetSource(c.Models)
	if err != nil {
		return nil, err
	}

	var tiers []classifier.Tier
	if c.Models.EnableNeural {
		tiers = append(tiers, &classifier.NeuralTier{
			Source:        src,
			ModelAsset:    c.Models.NeuralModel,
			MetadataAsset: c.Models.NeuralMeta,
		})
	}
	if c.Models.EnableLinear {
		tiers = append(tiers, &classifier.LinearTier{Source: src, Asset: c.Models.Coefficients})
	}

	cls := classifier.New(tiers, classifier.WithLogger(logger.Named("classifier")))
	if c.Models.WarmOnStartup {
		cls.Warm(ctx)
		logger.Info("classifier warmed", zap.Strings("loaded", cls.Loaded()))
	}
	return cls, nil
}

func newVisionClient(v config.VisionConfig) (client.VisionClient, error) {
	switch v.Backend {
	case "ollama":
		c, err := ollama.NewClient(v.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama client: %w", err)
		}
		return c, nil
	case "llamacpp":
		c, err := llamacpp.NewClient(v.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to create llama.cpp client: %w", err)
		}
		return c, nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown backend: %s (use 'ollama', 'llamacpp' or 'none')", v.Backend)
	}
}

// newStore returns nil when caching is disabled
func newStore(ctx context.Context, c config.CacheConfig, logger *zap.Logger) (cache.Store, error) {
	switch c.Backend {
	case "memory":
		return cache.NewLRU(c.Size)
	case "redis":
		r := cache.NewRedis(c.RedisAddr, c.RedisPassword, c.RedisDB, c.Prefix, c.TTL)
		if err := r.Ping(ctx); err != nil {
			logger.Warn("redis unreachable, landmark cache disabled", zap.String("addr", c.RedisAddr), zap.Error(err))
			_ = r.Close()
			return nil, nil
		}
		return r, nil
	default:
		return nil, nil
	}
}

func newAnalyzer(ctx context.Context, c *config.Config, logger *zap.Logger) (*bodyanalyzer.Analyzer, error) {
	cls, err := newClassifier(ctx, c, logger)
	if err != nil {
		return nil, err
	}

	vc, err := newVisionClient(c.Vision)
	if err != nil {
		return nil, err
	}

	var det *pose.Detector
	if vc != nil {
		opts := []pose.Option{
			pose.WithMinVisibility(c.Pose.MinVisibility),
			pose.WithLogger(logger.Named("pose")),
		}
		store, err := newStore(ctx, c.Cache, logger)
		if err != nil {
			return nil, err
		}
		if store != nil {
			opts = append(opts, pose.WithCache(store))
		}
		det = pose.NewDetector(vc, c.Vision.Model, opts...)
	} else if !c.Pose.Fallback {
		return nil, fmt.Errorf("vision backend is 'none' and pose fallback is disabled")
	}

	return bodyanalyzer.New(cls, det, bodyanalyzer.Options{
		Image: types.ModelImageOptions{
			Format:  c.Vision.Format,
			MaxDim:  c.Vision.MaxDim,
			Quality: c.Vision.Quality,
		},
		Fallback:     c.Pose.Fallback,
		MinImageSize: c.Pose.MinImageSize,
		Logger:       logger.Named("analyzer"),
	}), nil
}
