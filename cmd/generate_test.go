package cmd

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/changelog/internal/changelog"
	"github.com/joescharf/changelog/internal/models"
)

func gitRun(t *testing.T, dir string, env []string, args ...string) {
	t.Helper()
	c := exec.Command("git", append([]string{"-C", dir}, args...)...)
	c.Env = append(os.Environ(), env...)
	out, err := c.CombinedOutput()
	require.NoError(t, err, string(out))
}

// testRepo builds a repository with one release and two unreleased
// commits, and points the configuration at it.
func testRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	gitRun(t, dir, nil, "init")
	gitRun(t, dir, nil, "config", "user.email", "ann@example.com")
	gitRun(t, dir, nil, "config", "user.name", "Ann")

	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	for i, msg := range []string{"initial import", "BUG-7 fix crash", "FEAT-3 add search #ui"} {
		date := base.Add(time.Duration(i) * time.Hour).Format(time.RFC3339)
		gitRun(t, dir, []string{"GIT_AUTHOR_DATE=" + date, "GIT_COMMITTER_DATE=" + date}, "commit", "--allow-empty", "-m", msg)
		if i == 0 {
			gitRun(t, dir, nil, "tag", "v1.0.0")
		}
	}

	viper.Set("repo", dir)
	viper.Set("issues", []map[string]any{
		{"name": "Bugs", "pattern": `BUG-[0-9]+`, "link": "https://bugs.example.com/${PATTERN_GROUP}"},
		{"name": "Features", "pattern": `FEAT-[0-9]+`},
	})
	viper.Set("labels", []map[string]any{
		{"name": "${PATTERN_GROUP_1}", "pattern": `#(\w+)`},
	})
	return dir
}

func testCmd() *cobra.Command {
	c := &cobra.Command{}
	c.SetContext(context.Background())
	return c
}

func resetGenerateFlags(t *testing.T) {
	t.Cleanup(func() {
		genOutput, genFormat, genFrom, genTo = "", "", "", ""
	})
}

func TestGenerate_Stdout(t *testing.T) {
	testEnv(t)
	testRepo(t)
	resetGenerateFlags(t)

	require.NoError(t, generateRun(testCmd()))

	out := uiOut()
	assert.Contains(t, out, "## Unreleased")
	assert.Contains(t, out, "## v1.0.0")
	assert.Contains(t, out, "[BUG-7](https://bugs.example.com/BUG-7)")
	assert.Contains(t, out, "FEAT-3 _(ui)_")
	assert.Contains(t, out, "initial import")
}

func TestGenerate_BothBackendsAgree(t *testing.T) {
	testEnv(t)
	testRepo(t)
	resetGenerateFlags(t)
	genFormat = "json"

	var got []models.Changelog
	for _, backend := range []string{"cli", "go-git"} {
		viper.Set("git.backend", backend)
		ui.Out.(interface{ Reset() }).Reset()
		require.NoError(t, generateRun(testCmd()), backend)

		var cl models.Changelog
		require.NoError(t, json.Unmarshal([]byte(uiOut()), &cl), backend)
		got = append(got, cl)
	}
	assert.Equal(t, got[0], got[1])
	require.Len(t, got[0].Tags, 2)
	assert.Equal(t, "Unreleased", got[0].Tags[0].Name)
	assert.Len(t, got[0].Tags[0].Commits, 2)
}

func TestGenerate_FromRef(t *testing.T) {
	testEnv(t)
	testRepo(t)
	resetGenerateFlags(t)
	genFormat = "json"
	genFrom = "v1.0.0"

	require.NoError(t, generateRun(testCmd()))

	var cl models.Changelog
	require.NoError(t, json.Unmarshal([]byte(uiOut()), &cl))
	require.Len(t, cl.Tags, 1)
	assert.Equal(t, "Unreleased", cl.Tags[0].Name)
	assert.Len(t, cl.Commits, 2)
}

func TestGenerate_OutputFile(t *testing.T) {
	testEnv(t)
	dir := testRepo(t)
	resetGenerateFlags(t)
	genOutput = filepath.Join(dir, "CHANGELOG.md")

	require.NoError(t, generateRun(testCmd()))

	data, err := os.ReadFile(genOutput)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Changelog")
	assert.Contains(t, uiOut(), "Wrote")
}

func TestGenerate_OutputFileDryRun(t *testing.T) {
	testEnv(t)
	dir := testRepo(t)
	resetGenerateFlags(t)
	genOutput = filepath.Join(dir, "CHANGELOG.md")
	dryRun = true
	ui.DryRun = true
	defer func() { dryRun = false }()

	require.NoError(t, generateRun(testCmd()))

	_, err := os.Stat(genOutput)
	assert.True(t, os.IsNotExist(err), "changelog should not be written in dry-run mode")
	assert.Contains(t, uiErr(), "Would write")
}

func TestGenerate_BadConfig(t *testing.T) {
	testEnv(t)
	testRepo(t)
	resetGenerateFlags(t)
	viper.Set("git.backend", "svn")

	err := generateRun(testCmd())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "git.backend")
}

func TestGenerate_BadFormat(t *testing.T) {
	testEnv(t)
	testRepo(t)
	resetGenerateFlags(t)
	genFormat = "pdf"

	assert.Error(t, generateRun(testCmd()))
}

func TestPrintTags(t *testing.T) {
	testEnv(t)
	now := time.Date(2024, 5, 3, 9, 0, 0, 0, time.UTC)
	tags := []*models.Tag{
		{
			Name:    "v1.1.0",
			Commits: []*models.Commit{{Hash: "c2", CommitTimeMillis: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC).UnixMilli()}},
			Issues:  []*models.Issue{{ID: "BUG-1"}},
		},
	}

	require.NoError(t, printTags(tags, now))
	out := uiOut()
	assert.Contains(t, out, "v1.1.0")
	assert.Contains(t, out, "2 days ago")
}

func TestPrintTags_Empty(t *testing.T) {
	testEnv(t)
	require.NoError(t, printTags(nil, time.Now()))
	assert.Contains(t, uiOut(), "No commits found")
}

func TestPrintIssues(t *testing.T) {
	testEnv(t)
	list := []changelog.IssueSummary{
		{Bucket: "Bugs", ID: "BUG-1", Title: "Crash on start", Commits: 2},
		{Bucket: "Features", ID: "FEAT-2", Title: "FEAT-2", Labels: []string{"ui", "perf"}, Commits: 1},
	}

	require.NoError(t, printIssues(list))
	out := uiOut()
	assert.Contains(t, out, "Crash on start")
	assert.Contains(t, out, "ui, perf")
	assert.Equal(t, 1, strings.Count(out, "FEAT-2"), "a title equal to the id is not repeated")
}

func TestPrintIssues_None(t *testing.T) {
	testEnv(t)
	require.NoError(t, printIssues(nil))
	assert.Contains(t, uiOut(), "No issues found")
}
