package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/changelog/internal/changelog"
	"github.com/joescharf/changelog/internal/output"
)

var issuesBucket string

var issuesCmd = &cobra.Command{
	Use:   "issues",
	Short: "List issues referenced in the commit history",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings()
		if err != nil {
			return err
		}
		res, err := runChangelog(cmd.Context(), s)
		if err != nil {
			return err
		}
		return printIssues(changelog.IssueSummaries(res.Changelog, issuesBucket))
	},
}

func init() {
	issuesCmd.Flags().StringVarP(&issuesBucket, "bucket", "b", "", "Only issues of this bucket, e.g. Bugs")
	addRefFlags(issuesCmd)
	rootCmd.AddCommand(issuesCmd)
}

func printIssues(list []changelog.IssueSummary) error {
	if len(list) == 0 {
		ui.Info("No issues found")
		return nil
	}

	table := ui.Table([]string{"Bucket", "Issue", "Title", "Labels", "Commits"})
	for _, is := range list {
		title := is.Title
		if title == is.ID {
			title = ""
		}
		table.Append([]string{
			is.Bucket,
			output.Ref(is.ID),
			title,
			strings.Join(is.Labels, ", "),
			fmt.Sprintf("%d", is.Commits),
		})
	}
	return table.Render()
}
