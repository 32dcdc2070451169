package render

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/joescharf/changelog/internal/models"
)

func sampleChangelog() *models.Changelog {
	fix := &models.Commit{AuthorName: "Ann", AuthorEmail: "ann@example.com", CommitTime: "2024-05-01 09:00:00", CommitTimeMillis: 1714554000000, Message: " fix crash\n\nlong body", Hash: "0123456789abcdef"}
	docs := &models.Commit{AuthorName: "Bob", AuthorEmail: "bob@example.com", CommitTime: "2024-04-30 10:00:00", Message: "update docs", Hash: "fedcba9876543210"}

	bug := &models.Issue{Name: "Bugs", Title: "Crash on start", ID: "BUG-1", Link: "https://bugs/BUG-1", Labels: []string{"perf"}, Commits: []*models.Commit{fix}}
	none := &models.Issue{Name: "No issue", NoIssue: true, Commits: []*models.Commit{docs}}

	tag := &models.Tag{
		Name:        "v1.0.0",
		Commits:     []*models.Commit{fix, docs},
		Issues:      []*models.Issue{bug},
		IssueTypes:  []*models.IssueType{{Name: "Bugs", Issues: []*models.Issue{bug}}, {Name: "No issue", Issues: []*models.Issue{none}}},
		IssueLabels: []*models.IssueLabel{{Name: "perf", Issues: []*models.Issue{bug}}},
	}
	return &models.Changelog{Commits: tag.Commits, Tags: []*models.Tag{tag}, Issues: tag.Issues}
}

func TestRender_Markdown(t *testing.T) {
	r, err := New("markdown", "")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, sampleChangelog()))
	out := buf.String()

	assert.Contains(t, out, "# Changelog")
	assert.Contains(t, out, "## v1.0.0 (2024-05-01 09:00:00)")
	assert.Contains(t, out, "### Bugs")
	assert.Contains(t, out, "- [BUG-1](https://bugs/BUG-1) Crash on start _(perf)_")
	assert.Contains(t, out, "  - fix crash (0123456)")
	assert.Contains(t, out, "### No issue")
	assert.Contains(t, out, "- update docs (fedcba9, Bob)")
	assert.NotContains(t, out, "long body")
}

func TestRender_MarkdownIssueWithoutID(t *testing.T) {
	task := &models.Commit{AuthorName: "Ann", Message: "wire retries", Hash: "aaaaaaa1111111"}
	cl := &models.Changelog{Tags: []*models.Tag{{
		Name: "v2.0.0",
		IssueTypes: []*models.IssueType{{Name: "Tasks", Issues: []*models.Issue{
			{Name: "Tasks", Title: "Retry policy", Commits: []*models.Commit{task}},
		}}},
	}}}

	r, err := New("markdown", "")
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, cl))
	out := buf.String()

	assert.Contains(t, out, "- Retry policy\n  - wire retries (aaaaaaa)")
	assert.NotContains(t, out, "wire retries (aaaaaaa, Ann)", "an issue is never rendered as the no-issue bucket")
}

func TestRender_UserTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.tmpl")
	require.NoError(t, os.WriteFile(path, []byte(`{{range .Tags}}{{upper .Name}}:{{range .Issues}} {{.ID}}{{end}}{{end}}`), 0o644))

	r, err := New("", path)
	require.NoError(t, err)
	assert.Equal(t, "markdown", r.Format())

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, sampleChangelog()))
	assert.Equal(t, "V1.0.0: BUG-1", buf.String())
}

func TestNew_Errors(t *testing.T) {
	_, err := New("pdf", "")
	assert.Error(t, err)

	_, err = New("markdown", filepath.Join(t.TempDir(), "missing.tmpl"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.tmpl")
	require.NoError(t, os.WriteFile(path, []byte(`{{range}}`), 0o644))
	_, err = New("markdown", path)
	assert.Error(t, err)
}

func TestRender_JSON(t *testing.T) {
	r, err := New("json", "")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, sampleChangelog()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	tags := decoded["tags"].([]any)
	require.Len(t, tags, 1)
	tag := tags[0].(map[string]any)
	assert.Equal(t, "v1.0.0", tag["name"])
	issue := tag["issues"].([]any)[0].(map[string]any)
	assert.Equal(t, "BUG-1", issue["issue"])
	commit := tag["commits"].([]any)[0].(map[string]any)
	assert.Equal(t, float64(1714554000000), commit["commitTimeLong"])
}

func TestRender_YAML(t *testing.T) {
	r, err := New("YAML", "")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, sampleChangelog()))

	var decoded struct {
		Tags []struct {
			Name        string `yaml:"name"`
			IssueLabels []struct {
				Name string `yaml:"name"`
			} `yaml:"issueLabels"`
		} `yaml:"tags"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Tags, 1)
	assert.Equal(t, "v1.0.0", decoded.Tags[0].Name)
	assert.Equal(t, "perf", decoded.Tags[0].IssueLabels[0].Name)
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "subject", FirstLine("\n  subject  \nbody"))
	assert.Equal(t, "", FirstLine("  \n "))
}

func TestShortHash(t *testing.T) {
	assert.Equal(t, "0123456", ShortHash("0123456789"))
	assert.Equal(t, "abc", ShortHash("abc"))
}
