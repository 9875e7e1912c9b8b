package cmd

import (
	"github.com/openswoop/coursegraph/pkg/database"
	"github.com/openswoop/coursegraph/pkg/notify"
	"github.com/openswoop/coursegraph/pkg/scrape"
	"github.com/spf13/cobra"
)

var dryRun bool

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Mirror the stored courses to BigQuery",
	Long: `Reads every stored course, merges them into the BigQuery courses
table on key and publishes a courses-refreshed event.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		db, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		var courses []scrape.Course
		err = db.EachCourse(ctx, func(c scrape.Course) error {
			courses = append(courses, c)
			return nil
		})
		if err != nil {
			return err
		}
		log.Info("Read courses", "count", len(courses))

		if dryRun {
			log.Info("Dry run: data will not be inserted")
			return nil
		}

		// Connect to BigQuery
		bq, err := database.NewBigQuery(ctx, cfg.Project, cfg.BigQueryDataset, cloudOptions()...)
		if err != nil {
			return err
		}
		defer bq.Close()
		if err := bq.SyncCourses(ctx, courses); err != nil {
			return err
		}

		// Publish an event
		publisher, err := notify.NewPublisher(ctx, cfg.Project, cfg.Topic, cloudOptions()...)
		if err != nil {
			return err
		}
		defer publisher.Close()
		id, err := publisher.PublishRefreshed(ctx, len(courses))
		if err != nil {
			return err
		}

		log.Info("Done", "courses", len(courses), "message", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Run without modifying the warehouse (default: false)")
}
