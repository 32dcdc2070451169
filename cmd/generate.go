package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joescharf/changelog/internal/changelog"
	"github.com/joescharf/changelog/internal/config"
	"github.com/joescharf/changelog/internal/render"
)

var (
	genOutput string
	genFormat string
	genFrom   string
	genTo     string
)

var generateCmd = &cobra.Command{
	Use:     "generate",
	Aliases: []string{"gen"},
	Short:   "Generate the changelog",
	Long: `Generate the changelog of the configured repository.

The report is written to stdout unless --output names a file. Issues whose
tracker lookup fails are still listed, and the failures are reported as
warnings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return generateRun(cmd)
	},
}

func init() {
	addGenerateFlags(generateCmd)
	rootCmd.AddCommand(generateCmd)
}

func addGenerateFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&genOutput, "output", "o", "", "Write the changelog to this file instead of stdout")
	cmd.Flags().StringVarP(&genFormat, "format", "f", "", "Output format: markdown, json or yaml (default from config)")
	addRefFlags(cmd)
}

// addRefFlags registers --from and --to on commands that read history.
func addRefFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&genFrom, "from", "", "Exclude this ref and its history")
	cmd.Flags().StringVar(&genTo, "to", "", "Newest ref to include (default from config, HEAD)")
}

func generateRun(cmd *cobra.Command) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}

	format := s.OutputFormat
	if genFormat != "" {
		format = genFormat
	}
	r, err := render.New(format, s.Template)
	if err != nil {
		return err
	}

	res, err := runChangelog(cmd.Context(), s)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := r.Render(&buf, res.Changelog); err != nil {
		return err
	}

	if genOutput == "" || genOutput == "-" {
		_, err := ui.Out.Write(buf.Bytes())
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would write %s (%d tags, %d bytes)", genOutput, len(res.Changelog.Tags), buf.Len())
		return nil
	}
	if err := os.WriteFile(genOutput, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write changelog: %w", err)
	}
	ui.Success("Wrote %s (%d tags, %d issues)", genOutput, len(res.Changelog.Tags), len(res.Changelog.Issues))
	return nil
}

// runChangelog generates the changelog for s with the --from/--to
// overrides and reports tracker failures as warnings.
func runChangelog(ctx context.Context, s *config.Settings) (*changelog.Result, error) {
	gc, tr, err := pipeline(ctx, s)
	if err != nil {
		return nil, err
	}

	res, err := changelog.Generate(ctx, s, gc, tr, logger, changelog.Options{FromRef: genFrom, ToRef: genTo})
	if err != nil {
		return nil, err
	}
	ui.VerboseLog("Read %d tags from %s", len(res.Tags), res.Repo)

	ui.Diagnostics(res.Diagnostics)
	return res, nil
}
