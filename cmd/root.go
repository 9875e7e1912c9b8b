package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gocolly/colly/v2"
	"github.com/openswoop/coursegraph/pkg/config"
	"github.com/openswoop/coursegraph/pkg/database"
	"github.com/openswoop/coursegraph/pkg/embed"
	"github.com/openswoop/coursegraph/pkg/logger"
	"github.com/openswoop/coursegraph/pkg/scrape"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/api/option"
)

var (
	cfgFile string
	noCache bool

	cfg config.Config
	log *logger.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "coursegraph",
	Short: "A tool for scraping the Uppsala University course catalog",
	Long: `Scrapes the course pages of the Uppsala University catalog into a
document store, embeds each course for similarity search and links courses
through the prerequisites named in their entry requirements.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Configure(viper.GetViper(), cfgFile); err != nil {
			return err
		}
		var err error
		if cfg, err = config.Load(viper.GetViper()); err != nil {
			return err
		}
		if log, err = logger.New(cfg.LogMode); err != nil {
			return err
		}
		if used := viper.ConfigFileUsed(); used != "" {
			log.Debug("Using config file", "path", used)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			log.Sync()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default: ./coursegraph.yaml or ~/.config/coursegraph/coursegraph.yaml)")
	flags.String("backend", config.BackendFirestore, "Course store: firestore or sqlite")
	flags.String("log-mode", "dev", "Log encoding: dev or prod")
	flags.BoolVar(&noCache, "no-cache", false, "Bypass the web cache configured by cache_dir (default: false)")

	_ = viper.BindPFlag("backend", flags.Lookup("backend"))
	_ = viper.BindPFlag("log_mode", flags.Lookup("log-mode"))
}

func newCollector() *colly.Collector {
	opts := scrape.CollectorOptions{
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.RequestTimeout,
	}
	if !noCache {
		opts.CacheDir = cfg.CacheDir
	}
	return scrape.NewCollector(opts)
}

func openStore(ctx context.Context) (database.Database, error) {
	if err := cfg.ValidateStore(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case config.BackendSqlite:
		log.Debug("Opening sqlite store", "path", cfg.SqlitePath)
		return database.NewSqlite(cfg.SqlitePath)
	default:
		log.Debug("Opening firestore store", "project", cfg.Project, "collection", cfg.Collection)
		return database.NewFirestore(ctx, database.FirestoreOptions{
			ProjectID:       cfg.Project,
			DatabaseID:      cfg.Database,
			CredentialsFile: cfg.Credentials,
			Collection:      cfg.Collection,
		})
	}
}

func newEmbedder(ctx context.Context) (*embed.Gemini, error) {
	if err := cfg.ValidateEmbedding(); err != nil {
		return nil, err
	}
	key, err := embed.LoadAPIKey(cfg.APIKeyFile)
	if err != nil {
		return nil, err
	}
	return embed.NewGemini(ctx, key, cfg.EmbeddingModel, cfg.EmbeddingDims)
}

func cloudOptions() []option.ClientOption {
	if cfg.Credentials == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(cfg.Credentials)}
}
