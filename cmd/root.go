package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/rriarchive/harvester/internal/app"
	"github.com/rriarchive/harvester/internal/article"
	internalconfig "github.com/rriarchive/harvester/internal/config"
	"github.com/rriarchive/harvester/internal/database"
	"github.com/rriarchive/harvester/internal/logging"
	"github.com/rriarchive/harvester/internal/progress"
	"github.com/rriarchive/harvester/internal/publisher"
	"github.com/rriarchive/harvester/internal/section"
	"github.com/rriarchive/harvester/internal/storage"
	"github.com/rriarchive/harvester/pkg/config"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application interface that commands use. This allows us
// to inject a mock app during tests.
type App interface {
	Close()
	GetConfig() internalconfig.Config
	GetLogger() *zap.Logger
	GetDatabase() database.Provider
	GetPublisher() publisher.Publisher
	GetEmitter() progress.Emitter
	NewRecordStore(ctx context.Context, sec *section.Section, outputRoot string) (storage.Provider, error)
	Stats(ctx context.Context, sectionName, outputRoot string) (article.Stats, error)
}

// newApp is the application factory. It is a variable so tests can replace
// it with a mock factory.
var newApp func(ctx context.Context) (App, error) = func(ctx context.Context) (App, error) {
	return app.NewApp(ctx)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvester",
		Short: "Crawls RRI language sections into per-article JSON corpora.",
		Long: `harvester walks the category pages of one Radio Romania International
language section, extracts every article it discovers, and persists each one
as an individual JSON record alongside a durable crawl index. Interrupted
runs resume without re-fetching known articles. A secondary matcher
correlates two crawled sections by shared image references.`,

		// Runs after config is loaded but before the subcommand's RunE:
		// the place to build and inject the application container.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		// Ensures services shut down gracefully.
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	// Initialize Viper configuration, honoring an explicit config file.
	cobra.OnInitialize(func() {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		}
		config.InitConfig()
	})

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ., /etc/harvester, $HOME/.harvester)")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newSectionsCmd())
	cmd.AddCommand(newMatchCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

// Execute is the main entry point. It installs the default logger, wires
// signal-driven cancellation so a crawl stops cleanly between articles, and
// runs the root command.
func Execute() {
	logging.InitLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logging.L.Fatal("Command execution failed", zap.Error(err))
	}
}
