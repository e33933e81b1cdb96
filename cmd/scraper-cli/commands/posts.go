package commands

import (
	"fmt"
	"os"
	"time"

	"groupfeed-backend/lib/osutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	postsCmd.AddCommand(postsListCmd)
	postsCmd.AddCommand(postsCountCmd)
	postsCmd.AddCommand(postsClearCmd)
	rootCmd.AddCommand(postsCmd)
}

var postsCmd = &cobra.Command{
	Use:   "posts",
	Short: "Inspect or clear previously scraped posts.",
}

var postsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists scraped posts, newest first.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		service := buildService(readConfig())

		posts, err := service.Posts(ctx)
		if err != nil {
			osutil.Fatal("failed to list posts", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Author", "Text", "Posted", "Likes", "Comments", "Url"})
		for _, p := range posts {
			text := p.Text
			if len(text) > 60 {
				text = text[:57] + "..."
			}
			posted := ""
			if !p.Timestamp.IsZero() {
				posted = p.Timestamp.Format(time.DateTime)
			}
			t.AppendRow(table.Row{p.AuthorName, text, posted, p.LikesCount, len(p.Comments), p.Url})
		}
		t.Render()
		fmt.Printf("%d posts\n", len(posts))
	},
}

var postsCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Prints the number of scraped posts.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		service := buildService(readConfig())

		count, err := service.PostCount(ctx)
		if err != nil {
			osutil.Fatal("failed to count posts", err)
		}
		fmt.Println(count)
	},
}

var postsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Deletes all scraped posts and their comments.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		service := buildService(readConfig())

		err := service.ClearPosts(ctx)
		if err != nil {
			osutil.Fatal("failed to clear posts", err)
		}
		fmt.Println("cleared")
	},
}
