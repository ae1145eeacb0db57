package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fwojciec/chat"
	"github.com/fwojciec/chat/anthropic"
	"github.com/fwojciec/chat/chi"
	"github.com/fwojciec/chat/gemini"
	"github.com/fwojciec/chat/yaml"
	chatzap "github.com/fwojciec/chat/zap"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(load func() (yaml.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the relay server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			logger, err := chatzap.New(chatzap.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx := cmd.Context()
			upstream, err := resolveUpstream(ctx, cfg.Upstream,
				os.Getenv("ANTHROPIC_API_KEY"), os.Getenv("GEMINI_API_KEY"))
			if err != nil {
				return err
			}
			return serve(ctx, cfg, upstream, logger)
		},
	}
}

func serve(ctx context.Context, cfg yaml.Config, upstream chat.Transport, logger *zap.Logger) error {
	opts := []chi.Option{
		chi.WithLogger(logger),
		chi.WithAllowedOrigins(cfg.CORS.AllowedOrigins...),
	}
	if cfg.RateLimit.Rate > 0 {
		opts = append(opts, chi.WithRateLimit(cfg.RateLimit.Rate, cfg.RateLimit.Burst))
	}
	srv := chi.NewServer(upstream, opts...)

	logger.Info("starting relay",
		zap.String("listen", cfg.Listen),
		zap.String("provider", cfg.Upstream.Provider),
	)
	return chi.ListenAndServe(ctx, cfg.Listen, srv.Handler(), cfg.ShutdownTimeout.Duration, logger)
}

// resolveUpstream constructs the provider transport. Environment values are
// passed in; only the command reads the environment. A key in the config
// file wins over the environment.
func resolveUpstream(ctx context.Context, cfg yaml.UpstreamConfig, anthropicEnvKey, geminiEnvKey string) (chat.Transport, error) {
	key := cfg.APIKey
	switch cfg.Provider {
	case "anthropic":
		if key == "" {
			key = anthropicEnvKey
		}
		if key == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set (use upstream.api_key or the environment variable)")
		}
		var opts []anthropic.Option
		if cfg.Model != "" {
			opts = append(opts, anthropic.WithModel(cfg.Model))
		}
		if cfg.MaxTokens > 0 {
			opts = append(opts, anthropic.WithMaxTokens(cfg.MaxTokens))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
		}
		if cfg.SystemPrompt != "" {
			opts = append(opts, anthropic.WithSystemPrompt(cfg.SystemPrompt))
		}
		return anthropic.New(key, opts...), nil
	case "gemini":
		if key == "" {
			key = geminiEnvKey
		}
		if key == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY not set (use upstream.api_key or the environment variable)")
		}
		var opts []gemini.Option
		if cfg.Model != "" {
			opts = append(opts, gemini.WithModel(cfg.Model))
		}
		if cfg.MaxTokens > 0 {
			opts = append(opts, gemini.WithMaxTokens(cfg.MaxTokens))
		}
		if cfg.SystemPrompt != "" {
			opts = append(opts, gemini.WithSystemPrompt(cfg.SystemPrompt))
		}
		client, err := gemini.New(ctx, key, opts...)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown provider %q: must be \"anthropic\" or \"gemini\"", cfg.Provider)
	}
}
