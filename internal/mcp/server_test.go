package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/changelog/internal/config"
	"github.com/joescharf/changelog/internal/git"
	"github.com/joescharf/changelog/internal/issues"
	"github.com/joescharf/changelog/internal/models"
)

// ---------------------------------------------------------------------------
// Mock implementations
// ---------------------------------------------------------------------------

// mockGitClient implements git.Client for testing.
type mockGitClient struct {
	tags       []models.GitTag
	historyErr error
	lastOpts   git.HistoryOptions
}

func (m *mockGitClient) RepoRoot(path string) (string, error)  { return path, nil }
func (m *mockGitClient) RemoteURL(path string) (string, error) { return "", nil }
func (m *mockGitClient) History(_ string, opts git.HistoryOptions) ([]models.GitTag, error) {
	m.lastOpts = opts
	return m.tags, m.historyErr
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func newTestServer(t *testing.T) (*Server, *mockGitClient) {
	t.Helper()

	s, err := config.Config{
		Repo:                   "/repo",
		ToRef:                  "HEAD",
		UntaggedName:           "Unreleased",
		ReadableTagName:        config.DefaultReadableTagName,
		IgnoreCommitsPattern:   config.DefaultIgnoreCommits,
		DateFormat:             config.DefaultDateFormat,
		NoIssueName:            "No issue",
		RemoveIssueFromMessage: true,
		Issues: []config.IssueConfig{
			{Name: "Bugs", Pattern: `BUG-\d+`, Link: "https://bugs/${PATTERN_GROUP}"},
			{Name: "Features", Pattern: `FEAT-\d+`},
		},
		Labels: []config.LabelConfig{{Name: "${PATTERN_GROUP_1}", Pattern: `#(\w+)`}},
		Git:    config.GitConfig{Backend: config.BackendCLI},
		Output: config.OutputConfig{Format: config.FormatMarkdown},
	}.Compile()
	require.NoError(t, err)

	when := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	commit := func(hash, msg string) *models.GitCommit {
		return &models.GitCommit{Hash: hash, AuthorName: "Ann", AuthorEmail: "ann@example.com", CommitTime: when, Message: msg}
	}
	gc := &mockGitClient{tags: []models.GitTag{
		{Name: "refs/tags/v1.1.0", Commits: []*models.GitCommit{commit("c3", "FEAT-2 search #ui"), commit("c2", "BUG-1 crash")}},
		{Name: "refs/tags/v1.0.0", Commits: []*models.GitCommit{commit("c1", "initial import")}},
	}}

	return NewServer(s, gc, nil, nil, "1.2.3"), gc
}

// callToolReq builds a CallToolRequest with the given tool name and arguments.
func callToolReq(name string, args map[string]any) mcpgo.CallToolRequest {
	return mcpgo.CallToolRequest{
		Params: mcpgo.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// resultText extracts the concatenated text from a CallToolResult.
func resultText(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	var b strings.Builder
	for _, c := range result.Content {
		tc, ok := c.(mcpgo.TextContent)
		if ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

// resultJSON parses the text result as JSON into the provided target.
func resultJSON(t *testing.T, result *mcpgo.CallToolResult, target any) {
	t.Helper()
	text := resultText(t, result)
	err := json.Unmarshal([]byte(text), target)
	require.NoError(t, err, "failed to parse result JSON: %s", text)
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestNewServer(t *testing.T) {
	srv, _ := newTestServer(t)
	mcpSrv := srv.MCPServer()
	require.NotNil(t, mcpSrv, "MCPServer() should return non-nil")
}

func TestHandleGenerate_Markdown(t *testing.T) {
	srv, gc := newTestServer(t)

	result, err := srv.handleGenerate(context.Background(), callToolReq("changelog_generate", map[string]any{"from_ref": "v0.9.0"}))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "## v1.1.0")
	assert.Contains(t, text, "[BUG-1](https://bugs/BUG-1)")
	assert.Contains(t, text, "### Features")
	assert.Equal(t, "v0.9.0", gc.lastOpts.FromRef)
	assert.Equal(t, "HEAD", gc.lastOpts.ToRef)
}

func TestHandleGenerate_JSON(t *testing.T) {
	srv, _ := newTestServer(t)

	result, err := srv.handleGenerate(context.Background(), callToolReq("changelog_generate", map[string]any{"format": "json"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var cl models.Changelog
	resultJSON(t, result, &cl)
	require.Len(t, cl.Tags, 2)
	assert.Len(t, cl.Issues, 2)
}

func TestHandleGenerate_BadFormat(t *testing.T) {
	srv, _ := newTestServer(t)

	result, err := srv.handleGenerate(context.Background(), callToolReq("changelog_generate", map[string]any{"format": "pdf"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleGenerate_HistoryError(t *testing.T) {
	srv, gc := newTestServer(t)
	gc.historyErr = errors.New("bad revision")

	result, err := srv.handleGenerate(context.Background(), callToolReq("changelog_generate", nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "bad revision")
}

func TestHandleGenerate_OptionLikeRef(t *testing.T) {
	srv, gc := newTestServer(t)

	result, err := srv.handleGenerate(context.Background(), callToolReq("changelog_generate", map[string]any{"from_ref": "--all"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "invalid ref")
	assert.Empty(t, gc.lastOpts.ToRef)
}

func TestHandleGenerate_Warnings(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.settings.IssuePatterns[0].Kind = issues.KindJira
	srv.trackers = issues.Trackers{issues.KindJira: issues.TrackerFunc(func(context.Context, string) (*issues.TrackerIssue, error) {
		return nil, errors.New("timeout")
	})}

	result, err := srv.handleGenerate(context.Background(), callToolReq("changelog_generate", nil))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	require.Len(t, result.Content, 2)
	assert.Contains(t, resultText(t, result), "ignored issue \"BUG-1\"")
}

func TestHandleTags(t *testing.T) {
	srv, gc := newTestServer(t)

	result, err := srv.handleTags(context.Background(), callToolReq("changelog_tags", map[string]any{"to_ref": "v1.1.0"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "v1.1.0", gc.lastOpts.ToRef)

	var tags []struct {
		Name    string `json:"name"`
		Commits int    `json:"commits"`
		Issues  int    `json:"issues"`
		Latest  string `json:"latest"`
	}
	resultJSON(t, result, &tags)
	require.Len(t, tags, 2)
	assert.Equal(t, "v1.1.0", tags[0].Name)
	assert.Equal(t, 2, tags[0].Commits)
	assert.Equal(t, 2, tags[0].Issues)
	assert.Equal(t, "2024-05-01 09:00:00", tags[0].Latest)
	assert.Equal(t, 0, tags[1].Issues)
}

func TestHandleIssues(t *testing.T) {
	srv, _ := newTestServer(t)

	result, err := srv.handleIssues(context.Background(), callToolReq("changelog_issues", nil))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var all []struct {
		Bucket string   `json:"bucket"`
		ID     string   `json:"id"`
		Labels []string `json:"labels"`
	}
	resultJSON(t, result, &all)
	require.Len(t, all, 2)
	assert.Equal(t, "BUG-1", all[0].ID)
	assert.Equal(t, "FEAT-2", all[1].ID)
	assert.Equal(t, []string{"ui"}, all[1].Labels)
}

func TestHandleIssues_BucketFilter(t *testing.T) {
	srv, _ := newTestServer(t)

	result, err := srv.handleIssues(context.Background(), callToolReq("changelog_issues", map[string]any{"bucket": "bugs"}))
	require.NoError(t, err)

	var bugs []map[string]any
	resultJSON(t, result, &bugs)
	require.Len(t, bugs, 1)
	assert.Equal(t, "Bugs", bugs[0]["bucket"])
}
