package cmd

import (
	"github.com/spf13/cobra"

	"github.com/joescharf/changelog/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets MCP clients generate changelogs and list releases and issues
of the configured repository. Configure a client with:

  {
    "mcpServers": {
      "changelog": { "command": "changelog", "args": ["mcp"] }
    }
  }

Available tools: changelog_generate, changelog_tags, changelog_issues`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings()
		if err != nil {
			return err
		}
		gc, tr, err := pipeline(cmd.Context(), s)
		if err != nil {
			return err
		}
		return mcp.NewServer(s, gc, tr, logger, buildVersion).ServeStdio(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
