package commands

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/dyluth/nextpost/internal/config"
	"github.com/dyluth/nextpost/internal/embedding"
	"github.com/dyluth/nextpost/internal/knowledge"
	"github.com/dyluth/nextpost/internal/metrics"
	"github.com/dyluth/nextpost/internal/printer"
	"github.com/dyluth/nextpost/pkg/postindex"
	"github.com/spf13/cobra"
)

// metricsJob is the Pushgateway job name metrics are grouped under.
const metricsJob = "nextpost"

var versionString = "dev"

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	versionString = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

// Execute builds the command tree and runs it against os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

type rootOptions struct {
	configPath string
	namespace  string
	verbose    bool
}

// NewRootCmd returns the nextpost command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "nextpost",
		Short: "nextpost - AI agents that plan your next social media posts",
		Long: `nextpost keeps a searchable history of your published posts and asks a small
team of AI agents (a story specialist, a feed specialist and a content coordinator)
to agree on what you should post next.

Posts are stored in Redis together with their embeddings. Start with:
  nextpost init
  nextpost seed
  nextpost next`,
		Version: versionString,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			printer.SetOutput(cmd.OutOrStdout(), cmd.ErrOrStderr())
			if opts.verbose {
				log.SetOutput(cmd.ErrOrStderr())
			} else {
				log.SetOutput(io.Discard)
			}
		},
		// Without a subcommand, show help instead of silently succeeding
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "f", config.DefaultPath, "Path to nextpost.yml")
	cmd.PersistentFlags().StringVarP(&opts.namespace, "namespace", "n", "", "Account namespace (overrides config and NEXTPOST_NAMESPACE)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Write diagnostic logs to stderr")

	cmd.AddCommand(
		newInitCmd(opts),
		newAddCmd(opts),
		newSeedCmd(opts),
		newNextCmd(opts),
		newListCmd(opts),
		newGetCmd(opts),
		newSimilarCmd(opts),
		newAnalyzeCmd(opts),
	)

	return cmd
}

// loadConfig reads the config file and applies environment and flag overrides.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, printer.Error(
			"failed to load configuration",
			err.Error(),
			[]string{fmt.Sprintf("Fix %s, or regenerate it:\n  nextpost init --force", o.configPath)},
		)
	}

	cfg.ApplyEnv()
	if o.namespace != "" {
		cfg.Namespace = o.namespace
	}
	return cfg, nil
}

// app holds the per-process resources a command works with.
type app struct {
	cfg     *config.Config
	index   *postindex.Client
	store   *knowledge.Store
	metrics *metrics.Metrics
}

// openApp loads configuration, connects to Redis and builds the knowledge store.
// Callers must Close the returned app.
func (o *rootOptions) openApp(ctx context.Context) (*app, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	redisOpts, err := cfg.RedisOptions()
	if err != nil {
		return nil, err
	}

	index, err := postindex.NewClient(redisOpts, cfg.Namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create index client: %w", err)
	}

	if err := index.Ping(ctx); err != nil {
		index.Close()
		return nil, printer.ErrorWithContext(
			"Redis connection failed",
			fmt.Sprintf("Could not connect to Redis at %s", redisOpts.Addr),
			map[string]string{"error": err.Error()},
			[]string{
				"Start Redis locally:\n  docker run -d -p 6379:6379 redis:7-alpine",
				"Point nextpost at another instance:\n  export REDIS_URL=redis://host:6379/0",
			},
		)
	}

	m := metrics.New()
	return &app{
		cfg:     cfg,
		index:   index,
		store:   knowledge.New(index, newEmbedder(cfg), knowledge.WithMetrics(m)),
		metrics: m,
	}, nil
}

// Close pushes metrics when a Pushgateway is configured and closes the Redis connection.
func (a *app) Close() {
	if url := a.cfg.Metrics.PushgatewayURL; url != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.metrics.Push(ctx, url, metricsJob); err != nil {
			log.Printf("[CLI] Failed to push metrics to %s: %v", url, err)
		}
	}
	if err := a.index.Close(); err != nil {
		log.Printf("[CLI] Failed to close Redis connection: %v", err)
	}
}

// requireAPIKey fails when an OpenAI-backed operation is about to run without credentials.
func (a *app) requireAPIKey(what string) error {
	if a.cfg.OpenAIAPIKey != "" {
		return nil
	}
	return printer.Error(
		"OPENAI_API_KEY is not set",
		fmt.Sprintf("%s needs an OpenAI API key.", what),
		[]string{"Export your key:\n  export OPENAI_API_KEY=sk-..."},
	)
}

// needsEmbeddingKey reports whether embedding text requires OpenAI credentials.
func (a *app) needsEmbeddingKey() bool {
	return a.cfg.Embedding.Provider == config.ProviderOpenAI
}

func newEmbedder(cfg *config.Config) embedding.Embedder {
	if cfg.Embedding.Provider == config.ProviderHash {
		return embedding.NewHashEmbedder(cfg.Embedding.Dimensions)
	}

	dims := cfg.Embedding.Dimensions
	if dims == 0 {
		dims = embedding.DimensionsTextEmbedding3S
		if cfg.Embedding.Model == embedding.ModelTextEmbedding3Large {
			dims = embedding.DimensionsTextEmbedding3L
		}
	}

	opts := []embedding.OpenAIEmbedderOption{embedding.WithModel(cfg.Embedding.Model, dims)}
	if cfg.OpenAIBaseURL != "" {
		opts = append(opts, embedding.WithBaseURL(cfg.OpenAIBaseURL))
	}
	return embedding.NewOpenAIEmbedder(cfg.OpenAIAPIKey, opts...)
}
