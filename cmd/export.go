package cmd

import (
	"github.com/openswoop/coursegraph/pkg/report"
	"github.com/openswoop/coursegraph/pkg/scrape"
	"github.com/spf13/cobra"
)

var edges bool

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write the stored courses to a CSV file",
	Long: `Writes one row per stored course to the given file (default:
courses.csv). With --edges the prerequisite graph is written instead, one
row per edge (default: edges.csv).`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		var courses []scrape.Course
		err = db.EachCourse(cmd.Context(), func(c scrape.Course) error {
			courses = append(courses, c)
			return nil
		})
		if err != nil {
			return err
		}

		name, write := "courses.csv", report.WriteCourses
		if edges {
			name, write = "edges.csv", report.WriteEdges
		}
		if len(args) == 1 {
			name = args[0]
		}
		if err := write(name, courses); err != nil {
			return err
		}
		log.Info("Wrote to file", "path", name, "courses", len(courses))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().BoolVar(&edges, "edges", false, "Write the prerequisite edge list (default: false)")
}
