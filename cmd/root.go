package cmd

import (
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "match-engine"
)

type Config struct {
	Listen      string           `mapstructure:"listen"`
	DatabaseURL string           `mapstructure:"database-url"`
	RedisURL    string           `mapstructure:"redis-url"`
	AI          *AIConfig        `mapstructure:"ai"`
	Sources     *SourcesConfig   `mapstructure:"sources"`
	Scheduler   *SchedulerConfig `mapstructure:"scheduler"`
	Matching    *MatchingConfig  `mapstructure:"matching"`
}

type AIConfig struct {
	Provider     string           `mapstructure:"provider"`
	MaxLogLength int              `mapstructure:"max-log-length"`
	OpenAI       *ProviderConfig  `mapstructure:"openai"`
	Anthropic    *ProviderConfig  `mapstructure:"anthropic"`
	Gemini       *ProviderConfig  `mapstructure:"gemini"`
	Embeddings   *EmbeddingConfig `mapstructure:"embeddings"`
}

type ProviderConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
}

type EmbeddingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type SourcesConfig struct {
	Adzuna  *AdzunaConfig  `mapstructure:"adzuna"`
	JSearch *JSearchConfig `mapstructure:"jsearch"`
}

type AdzunaConfig struct {
	AppID  string `mapstructure:"app-id"`
	AppKey string `mapstructure:"app-key"`
}

type JSearchConfig struct {
	APIKey string `mapstructure:"api-key"`
}

type SchedulerConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	Queries  []string      `mapstructure:"queries"`
}

type MatchingConfig struct {
	RequestTimeout      time.Duration `mapstructure:"request-timeout"`
	ExternalCap         int           `mapstructure:"external-cap"`
	MaxConcurrentScores int           `mapstructure:"max-concurrent-scores"`
	DemoFallback        bool          `mapstructure:"demo-fallback"`
	CacheTTL            time.Duration `mapstructure:"cache-ttl"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "match-engine ranks platform and aggregated job listings for candidates",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envBindings := map[string]string{
		"database-url": "DATABASE_URL",
		"redis-url":    "REDIS_URL",
		"listen":       "LISTEN_ADDR",
	}
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is match-engine.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Config needed only for serve command. If there is no config, we can skip initialization
	if serveCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// The config file is optional: environment variables can carry the whole
	// configuration, but a present-and-broken file is fatal.
	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); notFound && cfgFile == "" {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, err
	}

	if config.Listen == "" {
		config.Listen = ":8080"
	}

	return config, nil
}
