// Package cli provides the cobra command-line interface over the core
// services. It is a thin shell: all behaviour lives in the services,
// wired here exactly once at startup.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/docvault-labs/docvault-core/internal/adapters/driven/analysis/ollama"
	configfile "github.com/docvault-labs/docvault-core/internal/adapters/driven/config/file"
	"github.com/docvault-labs/docvault-core/internal/adapters/driven/embedding/hashing"
	modelfile "github.com/docvault-labs/docvault-core/internal/adapters/driven/model/file"
	"github.com/docvault-labs/docvault-core/internal/adapters/driven/normalise"
	"github.com/docvault-labs/docvault-core/internal/adapters/driven/storage/sqlite"
	"github.com/docvault-labs/docvault-core/internal/core/ports/driven"
	"github.com/docvault-labs/docvault-core/internal/core/services"
	"github.com/docvault-labs/docvault-core/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services wired once in initServices and shared by all commands.
var (
	searchService *services.Router
	auditTrail    *services.AuditTrail
	vectorizer    *services.Vectorizer
	reprocessor   *services.Reprocessor
	importer      *services.Importer
	modelStore    *modelfile.ModelStore
	metadataStore *sqlite.Store
)

var (
	flagVerbose bool
	flagDataDir string
	flagActor   string
)

// skipWiring suppresses service construction in PersistentPreRunE.
var skipWiring bool

var rootCmd = &cobra.Command{
	Use:   "docvault",
	Short: "Privacy-preserving on-device document search",
	Long: `DocVault answers natural-language questions about your local document
corpus without a single network call. Queries are sanitised, rate
limited, routed to the cheapest execution strategy that can answer
them, and recorded in a tamper-evident audit trail.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(flagVerbose)
		if cmd.Name() == "version" {
			return nil
		}
		// Tests wire in-memory services themselves.
		if skipWiring {
			return nil
		}
		return initServices(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose logging to stderr")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default ~/.docvault/data)")
	rootCmd.PersistentFlags().StringVar(&flagActor, "actor", "local-user", "actor identifier for quotas and audit entries")
}

// Execute runs the CLI. Shutdown is deferred rather than hooked on
// PersistentPostRun, which cobra skips when RunE fails: the model
// watcher and the sqlite handle must be released on both paths.
func Execute() error {
	defer shutdown()
	return rootCmd.Execute()
}

// initServices constructs the dependency graph. Optional collaborators
// that fail to initialise are logged and left nil; the router degrades
// around them.
func initServices(ctx context.Context) error {
	cfg, err := configfile.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	metadataStore, err = sqlite.NewStore(flagDataDir)
	if err != nil {
		return fmt.Errorf("opening metadata store: %w", err)
	}
	docStore := metadataStore.DocumentStore()
	embStore := metadataStore.EmbeddingStore()

	auditTrail, err = services.NewAuditTrail(ctx, metadataStore.AuditStore())
	if err != nil {
		return fmt.Errorf("opening audit trail: %w", err)
	}

	embedder := hashing.New(0)
	vectorizer = services.NewVectorizer(docStore, embStore, embedder)

	modelStore, err = modelfile.NewModelStore(cfg.GetString(configfile.KeyModelsDir))
	if err != nil {
		logger.Warn("Model store unavailable, generative analysis disabled: %v", err)
		modelStore = nil
	}

	engineCfg := ollama.Config{
		BaseURL: cfg.GetString(configfile.KeyModelBaseURL),
		Model:   cfg.GetString(configfile.KeyModelName),
		Timeout: time.Duration(cfg.GetInt(configfile.KeyModelTimeout)) * time.Second,
	}
	var engine *ollama.Engine
	if modelStore != nil {
		engine = ollama.NewEngine(engineCfg, modelStore)
	}

	guard := services.NewGuard(cfg.GetInt(configfile.KeyMaxQueryLength))
	limiter := services.NewRateLimiter(services.RateLimitConfig{
		PerMinute: cfg.GetInt(configfile.KeyRatePerMinute),
		PerHour:   cfg.GetInt(configfile.KeyRatePerHour),
	})
	extractor := services.NewExtractor(cfg.GetStringSlice(configfile.KeyVendors))

	routerCfg := services.RouterConfig{
		TopK:            cfg.GetInt(configfile.KeySearchTopK),
		SimilarityFloor: cfg.GetFloat(configfile.KeySimilarityFloor),
		AnalysisTimeout: engineCfg.Timeout,
	}

	searchService = services.NewRouter(guard, limiter, extractor, docStore,
		vectorizer, embedder, engineOrNil(engine), auditTrail, routerCfg)

	reprocessor = services.NewReprocessor(docStore, extractor, engineOrNil(engine), auditTrail)

	importer = services.NewImporter(docStore, normalise.Defaults(), extractor,
		vectorizer, auditTrail)

	return nil
}

// engineOrNil avoids handing the services a non-nil interface wrapping
// a nil pointer.
func engineOrNil(engine *ollama.Engine) driven.AnalysisEngine {
	if engine == nil {
		return nil
	}
	return engine
}

// shutdown releases adapter resources. Closed stores are nilled out so
// a second call is a no-op.
func shutdown() {
	if modelStore != nil {
		if err := modelStore.Close(); err != nil {
			logger.Warn("Closing model store: %v", err)
		}
		modelStore = nil
	}
	if metadataStore != nil {
		if err := metadataStore.Close(); err != nil {
			logger.Warn("Closing metadata store: %v", err)
		}
		metadataStore = nil
	}
}
