package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/recruiter-solutions/match-engine/internal/aggregator"
	"github.com/recruiter-solutions/match-engine/internal/ai"
	"github.com/recruiter-solutions/match-engine/internal/ai/anthropic"
	"github.com/recruiter-solutions/match-engine/internal/ai/gemini"
	"github.com/recruiter-solutions/match-engine/internal/ai/openai"
	"github.com/recruiter-solutions/match-engine/internal/embedding"
	"github.com/recruiter-solutions/match-engine/internal/logger"
	"github.com/recruiter-solutions/match-engine/internal/matching"
	"github.com/recruiter-solutions/match-engine/internal/scheduler"
	"github.com/recruiter-solutions/match-engine/internal/secrets"
	"github.com/recruiter-solutions/match-engine/internal/server"
	"github.com/recruiter-solutions/match-engine/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the match engine HTTP server",
	Run: func(cmd *cobra.Command, _ []string) {
		serve(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("listen", "", "listen address (default :8080)")
	viper.BindPFlag("listen", serveCmd.Flags().Lookup("listen"))
}

func serve(_ *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the match-engine", zap.String("version", version))

	if config.DatabaseURL == "" {
		logger.Fatal("database url is required",
			zap.String("hint", "set DATABASE_URL or the 'database-url' key in the configuration file"))
	}

	pool, err := store.NewPool(ctx, config.DatabaseURL)
	if err != nil {
		logger.Fatal("connecting to postgres", zap.Error(err))
	}
	defer pool.Close()

	st := store.New(pool)
	if err := st.Migrate(ctx); err != nil {
		logger.Fatal("applying migrations", zap.Error(err))
	}

	scorer := buildScorer(ctx, config, st, logger)

	var embeddings *embedding.Manager
	if embedder := buildEmbedder(config, logger); embedder != nil {
		embeddings = embedding.NewManager(embedder, st, logger)
	} else {
		logger.Info("embedding provider not configured, vector ranking disabled")
	}

	agg := buildAggregator(config, st, logger)

	deps := matching.Deps{
		Candidates: st,
		Listings:   st,
		Matches:    st,
		Scorer:     scorer,
		Logger:     logger,
	}
	if embeddings != nil {
		deps.Embeddings = embeddings
	}
	if agg != nil {
		deps.External = agg
	}

	coordinator := matching.NewCoordinator(deps, matchingConfig(config))

	var sched *scheduler.Scheduler
	if agg != nil && config.Scheduler != nil && config.Scheduler.Enabled {
		sched = scheduler.New(agg, config.Scheduler.Interval, config.Scheduler.Queries, logger)
		if err := sched.Start(); err != nil {
			logger.Fatal("starting the refresh scheduler", zap.Error(err))
		}
		defer sched.Stop()
	}

	app := server.New(coordinator, embeddings, agg, st, logger).App()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.Info("shutting down")
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	logger.Info("listening", zap.String("addr", config.Listen))
	if err := app.Listen(config.Listen); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func matchingConfig(config *Config) matching.Config {
	cfg := matching.Config{DemoFallback: true}
	if m := config.Matching; m != nil {
		cfg.RequestTimeout = m.RequestTimeout
		cfg.ExternalCap = m.ExternalCap
		cfg.MaxConcurrentScores = m.MaxConcurrentScores
		cfg.DemoFallback = m.DemoFallback
	}
	return cfg
}

// buildScorer assembles the fallback scorer from the configured completion
// provider, wrapping it in the redis cache when a redis url is present. A
// missing provider still yields a usable scorer that reports unconfigured.
func buildScorer(ctx context.Context, config *Config, st *store.Store, logger *zap.Logger) matching.PairScorer {
	maxLogLength := 0
	if config.AI != nil {
		maxLogLength = config.AI.MaxLogLength
	}

	var scorer matching.PairScorer = matching.NewScorer(buildCompleter(ctx, config, logger), logger, maxLogLength)

	if config.RedisURL == "" {
		return scorer
	}

	rdb, err := store.NewRedisClient(ctx, config.RedisURL)
	if err != nil {
		logger.Warn("redis unavailable, score caching disabled", zap.Error(err))
		return scorer
	}

	ttl := time.Duration(0)
	if config.Matching != nil {
		ttl = config.Matching.CacheTTL
	}

	return matching.NewCachedScorer(scorer, rdb, ttl, logger)
}

func buildCompleter(ctx context.Context, config *Config, logger *zap.Logger) ai.Completer {
	if config.AI == nil {
		return nil
	}

	provider := strings.TrimSpace(strings.ToLower(config.AI.Provider))

	switch provider {
	case "", "openai":
		if key, model := providerKey(config.AI.OpenAI, "OPENAI_API_KEY"); key != "" {
			client, err := openai.New(key, model, logger)
			if err != nil {
				logger.Warn("building openai client failed", zap.Error(err))
				return nil
			}
			return client
		}
		if provider == "openai" {
			logger.Warn("openai provider selected but no api key configured")
		}
	case "anthropic":
		key, model := providerKey(config.AI.Anthropic, "ANTHROPIC_API_KEY")
		if key == "" {
			logger.Warn("anthropic provider selected but no api key configured")
			return nil
		}
		client, err := anthropic.New(key, model, logger)
		if err != nil {
			logger.Warn("building anthropic client failed", zap.Error(err))
			return nil
		}
		return client
	case "gemini":
		key, model := providerKey(config.AI.Gemini, "GEMINI_API_KEY")
		if key == "" {
			logger.Warn("gemini provider selected but no api key configured")
			return nil
		}
		client, err := gemini.New(ctx, key, model, logger)
		if err != nil {
			logger.Warn("building gemini client failed", zap.Error(err))
			return nil
		}
		return client
	default:
		logger.Warn("unsupported ai provider, fallback scoring disabled", zap.String("provider", config.AI.Provider))
	}

	return nil
}

// buildEmbedder returns the embedding provider. Embeddings always come from
// openai regardless of the completion provider; the stored vectors are tied
// to one model's dimensions.
func buildEmbedder(config *Config, logger *zap.Logger) ai.Embedder {
	if config.AI == nil {
		return nil
	}
	if e := config.AI.Embeddings; e != nil && !e.Enabled {
		return nil
	}

	key, model := providerKey(config.AI.OpenAI, "OPENAI_API_KEY")
	if key == "" {
		return nil
	}

	client, err := openai.New(key, model, logger)
	if err != nil {
		logger.Warn("building openai embedder failed", zap.Error(err))
		return nil
	}
	return client
}

func buildAggregator(config *Config, st *store.Store, logger *zap.Logger) *aggregator.Aggregator {
	var sources []aggregator.Source

	adzunaID := secrets.Optional(secrets.Source{Name: "adzuna app id", Env: "ADZUNA_APP_ID"})
	adzunaKey := secrets.Optional(secrets.Source{Name: "adzuna app key", Env: "ADZUNA_APP_KEY"})
	if config.Sources != nil && config.Sources.Adzuna != nil {
		if config.Sources.Adzuna.AppID != "" {
			adzunaID = config.Sources.Adzuna.AppID
		}
		if config.Sources.Adzuna.AppKey != "" {
			adzunaKey = config.Sources.Adzuna.AppKey
		}
	}
	if adzunaID != "" && adzunaKey != "" {
		sources = append(sources, aggregator.NewAdzuna(adzunaID, adzunaKey))
	}

	jsearchKey := secrets.Optional(secrets.Source{Name: "jsearch api key", Env: "JSEARCH_API_KEY"})
	if config.Sources != nil && config.Sources.JSearch != nil && config.Sources.JSearch.APIKey != "" {
		jsearchKey = config.Sources.JSearch.APIKey
	}
	if jsearchKey != "" {
		sources = append(sources, aggregator.NewJSearch(jsearchKey))
	}

	if len(sources) == 0 {
		logger.Info("no external job sources configured")
	}

	return aggregator.New(st, sources, logger)
}

// providerKey resolves a provider's api key from config (inline or file) with
// an environment variable fallback, plus the configured model name.
func providerKey(cfg *ProviderConfig, env string) (key, model string) {
	src := secrets.Source{Name: env, Env: env}
	if cfg != nil {
		src.Value = cfg.APIKey
		src.File = cfg.APIKeyFile
		model = cfg.Model
	}
	return secrets.Optional(src), model
}
