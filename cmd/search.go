package cmd

import (
	"fmt"
	"strings"

	"github.com/openswoop/coursegraph/pkg/scrape"
	"github.com/spf13/cobra"
)

const snippetLength = 150

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find the courses closest to a free-text query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		query := strings.Join(args, " ")

		db, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close()
		embedder, err := newEmbedder(ctx)
		if err != nil {
			return err
		}

		vector, err := embedder.Embed(ctx, query)
		if err != nil {
			return err
		}
		courses, err := db.Nearest(ctx, vector, searchLimit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for i, c := range courses {
			fmt.Fprintf(out, "%d. %s (%s)\n", i+1, scrape.Value(c.Title), c.Key)
			if blurb := snippet(scrape.Value(c.AboutBlurb)); blurb != "" {
				fmt.Fprintf(out, "   %s\n", blurb)
			}
		}
		return nil
	},
}

func snippet(s string) string {
	r := []rune(s)
	if len(r) <= snippetLength {
		return s
	}
	return string(r[:snippetLength]) + "..."
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVar(&searchLimit, "limit", 5, "Number of courses to show")
}
