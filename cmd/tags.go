package cmd

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joescharf/changelog/internal/models"
	"github.com/joescharf/changelog/internal/output"
)

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List releases with commit, author and issue counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings()
		if err != nil {
			return err
		}
		res, err := runChangelog(cmd.Context(), s)
		if err != nil {
			return err
		}
		return printTags(res.Changelog.Tags, time.Now())
	},
}

func init() {
	addRefFlags(tagsCmd)
	rootCmd.AddCommand(tagsCmd)
}

func printTags(tags []*models.Tag, now time.Time) error {
	if len(tags) == 0 {
		ui.Info("No commits found")
		return nil
	}

	table := ui.Table([]string{"Tag", "Commits", "Authors", "Issues", "Latest"})
	for _, t := range tags {
		latest := "-"
		if c := t.Commit(); c != nil {
			latest = humanize.RelTime(time.UnixMilli(c.CommitTimeMillis), now, "ago", "from now")
		}
		table.Append([]string{
			output.Ref(t.Name),
			fmt.Sprintf("%d", len(t.Commits)),
			fmt.Sprintf("%d", len(t.Authors)),
			output.CountColor(len(t.Issues)),
			latest,
		})
	}
	return table.Render()
}
