package cmd

import (
	"fmt"
	"strconv"

	"github.com/openswoop/coursegraph/pkg/ingest"
	"github.com/openswoop/coursegraph/pkg/scrape"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var regenerate bool

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch [limit]",
	Short: "Scrape new courses into the store and link prerequisites",
	Long: `Reads the catalog sitemap, fetches every course page that is not
stored yet, embeds and saves each course, then recomputes the prerequisite
graph over the whole collection. An optional limit caps the number of
course pages read from the sitemap.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit := 0
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 0 {
				return fmt.Errorf("limit must be a non-negative number, got %q", args[0])
			}
			limit = n
		}
		ctx := cmd.Context()

		// Fail on missing credentials before any page is read
		db, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close()
		embedder, err := newEmbedder(ctx)
		if err != nil {
			return err
		}

		c := newCollector()
		urls, err := scrape.GetCourseUrls(c, cfg.SitemapIndex, limit, log)
		if err != nil {
			return err
		}
		log.Info("Found course pages", "count", len(urls))

		pipeline := &ingest.Pipeline{
			DB:          db,
			Embedder:    embedder,
			Fetcher:     scrape.NewPageFetcher(c),
			Log:         log,
			Concurrency: cfg.Concurrency,
		}
		summary, err := pipeline.Run(ctx, urls, ingest.Options{Regenerate: regenerate})
		if err != nil {
			return err
		}

		log.Info("Done",
			"saved", summary.Saved,
			"fetch_errors", summary.FetchErrors,
			"embed_errors", summary.EmbedErrors,
			"save_errors", summary.SaveErrors,
			"updated_prerequisites", summary.Relations)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().BoolVar(&regenerate, "regenerate", false, "Delete every stored course before fetching (default: false)")
	fetchCmd.Flags().Int("concurrency", scrape.DefaultConcurrency, "Number of pages fetched at once")
	_ = viper.BindPFlag("concurrency", fetchCmd.Flags().Lookup("concurrency"))
}
