package commands

import (
	"fmt"
	"log/slog"
	"time"

	"groupfeed-backend/lib/osutil"
	"groupfeed-backend/lib/scrapers/facebook"

	"github.com/spf13/cobra"
)

var (
	scrapeMaxPosts    *int
	scrapeComments    *bool
	scrapeMaxComments *int
)

func init() {
	scrapeMaxPosts = scrapeCmd.Flags().Int("max-posts", 50, "Maximum number of posts to extract.")
	scrapeComments = scrapeCmd.Flags().Bool("comments", true, "Extract comments alongside posts.")
	scrapeMaxComments = scrapeCmd.Flags().Int("max-comments", 20, "Maximum number of comments per post.")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape <group-id>",
	Short: "Scrapes a group feed and writes new posts to the database.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		service := buildService(readConfig())
		defer service.ReleaseSession(ctx)

		outcome, err := service.EstablishSession(ctx, readCredentials())
		if err != nil {
			osutil.Fatal("failed to establish session", err)
		}
		if !outcome.Success {
			osutil.Fatal("not authenticated", fmt.Errorf("%s: %s", outcome.Status, outcome.Message))
		}

		t1 := time.Now()
		result, err := service.ScrapeFeed(ctx, facebook.Request{
			GroupID:            args[0],
			MaxPosts:           *scrapeMaxPosts,
			IncludeComments:    scrapeComments,
			MaxCommentsPerPost: *scrapeMaxComments,
		})
		if err != nil {
			osutil.Fatal("scrape failed", err)
		}
		slog.Info("scraping time", "seconds", time.Since(t1).Seconds())

		fmt.Printf("%s (%d members)\n%s\n", result.FeedName, result.MemberCount, result.Message)
	},
}
