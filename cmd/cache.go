package cmd

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joescharf/changelog/internal/models"
	"github.com/joescharf/changelog/internal/output"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the tracker lookup cache",
	Long: `Inspect or clear the SQLite cache of GitHub and Jira lookups.

Running bare 'changelog cache' is the same as 'changelog cache stats'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cacheStatsRun(cmd)
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cached entries per tracker",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cacheStatsRun(cmd)
	},
}

var cacheClearCmd = &cobra.Command{
	Use:       "clear [github|jira]",
	Short:     "Delete cached entries, all or of one tracker",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"github", "jira"},
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := ""
		if len(args) == 1 {
			kind = args[0]
		}
		return cacheClearRun(cmd, kind)
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func cacheStatsRun(cmd *cobra.Command) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	c, err := getCache(cmd.Context(), s)
	if err != nil {
		return err
	}

	stats, err := c.Stats(cmd.Context())
	if err != nil {
		return err
	}
	ui.Info("Cache: %s (ttl %s)", s.Cache.DBPath, s.Cache.TTL)
	return printCacheStats(stats, time.Now())
}

func printCacheStats(stats []models.CacheStat, now time.Time) error {
	if len(stats) == 0 {
		ui.Info("Cache is empty")
		return nil
	}

	table := ui.Table([]string{"Tracker", "Entries", "Oldest", "Newest"})
	for _, st := range stats {
		table.Append([]string{
			output.KindColor(st.Kind),
			output.CountColor(st.Entries),
			humanize.RelTime(st.Oldest, now, "ago", "from now"),
			humanize.RelTime(st.Newest, now, "ago", "from now"),
		})
	}
	return table.Render()
}

func cacheClearRun(cmd *cobra.Command, kind string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}

	what := "all cached lookups"
	if kind != "" {
		what = "cached " + kind + " lookups"
	}
	if dryRun {
		ui.DryRunMsg("Would delete %s from %s", what, s.Cache.DBPath)
		return nil
	}

	c, err := getCache(cmd.Context(), s)
	if err != nil {
		return err
	}
	n, err := c.Clear(cmd.Context(), kind)
	if err != nil {
		return err
	}
	ui.Success("Deleted %d entries (%s)", n, what)
	return nil
}
