package cmd

import (
	"github.com/openswoop/coursegraph/pkg/prereq"
	"github.com/spf13/cobra"
)

var prereqsCmd = &cobra.Command{
	Use:   "prereqs",
	Short: "Recompute the prerequisite graph of the stored courses",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		_, err = prereq.Run(cmd.Context(), db, log)
		return err
	},
}

func init() {
	rootCmd.AddCommand(prereqsCmd)
}
